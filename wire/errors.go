package wire

import "errors"

// Error codes for the wire codec.
var (
	// ErrSerialization is returned on a short read inside a frame: an
	// inner field needs more bytes than the frame's outer length left
	// for it (or the frame is empty). Fatal to the session that
	// produced it.
	ErrSerialization = errors.New("wire: serialization error (short frame)")

	// ErrDataLengthMismatch is returned when an inner length field
	// disagrees with the outer frame length. Fatal to the session.
	ErrDataLengthMismatch = errors.New("wire: data length mismatch")
)
