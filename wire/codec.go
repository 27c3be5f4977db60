package wire

import (
	"encoding/binary"
	"net"
	"strings"
)

// writer accumulates a payload (everything after the 8-byte frame
// length) in big-endian wire format.
type writer struct{ buf []byte }

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

// str8 writes a u8-length-prefixed string (0 means absent).
func (w *writer) str8(s string) {
	w.u8(uint8(len(s)))
	w.bytes([]byte(s))
}

// strU64 writes a u64-length-prefixed string (0 means absent).
func (w *writer) strU64(s string) {
	w.u64(uint64(len(s)))
	w.bytes([]byte(s))
}

// reader consumes a bounded payload slice, erroring on short reads
// rather than ever reading past its own bound.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) need(n int) error {
	if n < 0 || r.remaining() < n {
		return ErrSerialization
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n > 1<<28 {
		// an inner length this large inside a single frame can only be
		// a corrupt or adversarial claim; refuse rather than allocate.
		return nil, ErrDataLengthMismatch
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) str8() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return trimNUL(b), nil
}

func (r *reader) strU64() (string, error) {
	n, err := r.u64()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return trimNUL(b), nil
}

func trimNUL(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

// EncodePeerBytes encodes p using the standard Peer layout with no
// surrounding frame length or tag — used by the on-disk peer snapshot
// format, which wraps this with its own u8 length prefix.
func EncodePeerBytes(p Peer) []byte {
	w := &writer{}
	encodePeer(w, p)
	return w.buf
}

// DecodePeerBytes decodes the standard Peer layout from b with no
// surrounding frame. It is the inverse of EncodePeerBytes.
func DecodePeerBytes(b []byte) (Peer, error) {
	r := &reader{buf: b}
	p, err := decodePeer(r)
	if err != nil {
		return Peer{}, err
	}
	if r.remaining() != 0 {
		return Peer{}, ErrDataLengthMismatch
	}
	return p, nil
}

func encodePeer(w *writer, p Peer) {
	ip := p.IP.To16()
	if ip == nil {
		ip = make(net.IP, 16)
	}
	w.u64(16)
	w.bytes(ip)
	w.u16(p.Port)
	if p.AcceptIncoming {
		w.u8(1)
	} else {
		w.u8(0)
	}
	w.str8(p.Name)
	w.str8(p.PublicKey)
	w.str8(p.Signature)
}

func decodePeer(r *reader) (Peer, error) {
	iplen, err := r.u64()
	if err != nil {
		return Peer{}, err
	}
	if iplen != 16 {
		return Peer{}, ErrDataLengthMismatch
	}
	addr, err := r.bytes(16)
	if err != nil {
		return Peer{}, err
	}
	port, err := r.u16()
	if err != nil {
		return Peer{}, err
	}
	accept, err := r.u8()
	if err != nil {
		return Peer{}, err
	}
	name, err := r.str8()
	if err != nil {
		return Peer{}, err
	}
	pubkey, err := r.str8()
	if err != nil {
		return Peer{}, err
	}
	sig, err := r.str8()
	if err != nil {
		return Peer{}, err
	}
	ip := make(net.IP, 16)
	copy(ip, addr)
	return Peer{
		IP:             ip,
		Port:           port,
		AcceptIncoming: accept != 0,
		Name:           name,
		PublicKey:      pubkey,
		Signature:      sig,
	}, nil
}

func encodeTrack(w *writer, t TrackData) {
	w.strU64(t.Title)
	w.u16(t.Bitrate)
	w.u8(t.Length)
}

func decodeTrack(r *reader) (TrackData, error) {
	title, err := r.strU64()
	if err != nil {
		return TrackData{}, err
	}
	bitrate, err := r.u16()
	if err != nil {
		return TrackData{}, err
	}
	length, err := r.u8()
	if err != nil {
		return TrackData{}, err
	}
	return TrackData{Title: title, Bitrate: bitrate, Length: length}, nil
}

func encodeAlbum(w *writer, a AlbumData) {
	if a.Artist != nil {
		w.strU64(*a.Artist)
	} else {
		w.strU64("")
	}
	w.strU64(a.AlbumTitle)
	w.u8(a.TrackCount)
	if a.HasTracks() {
		w.u8(1)
		w.u64(uint64(len(a.Tracks)))
		for _, t := range a.Tracks {
			encodeTrack(w, t)
		}
	} else {
		w.u8(0)
	}
}

func decodeAlbum(r *reader) (AlbumData, error) {
	artist, err := r.strU64()
	if err != nil {
		return AlbumData{}, err
	}
	var artistPtr *string
	if artist != "" {
		artistPtr = &artist
	}
	title, err := r.strU64()
	if err != nil {
		return AlbumData{}, err
	}
	trackCount, err := r.u8()
	if err != nil {
		return AlbumData{}, err
	}
	hasTracks, err := r.u8()
	if err != nil {
		return AlbumData{}, err
	}
	var tracks []TrackData
	if hasTracks != 0 {
		n, err := r.u64()
		if err != nil {
			return AlbumData{}, err
		}
		tracks = make([]TrackData, 0, n)
		for i := uint64(0); i < n; i++ {
			t, err := decodeTrack(r)
			if err != nil {
				return AlbumData{}, err
			}
			tracks = append(tracks, t)
		}
	}
	return AlbumData{Artist: artistPtr, AlbumTitle: title, TrackCount: trackCount, Tracks: tracks}, nil
}

func encodeArtist(w *writer, a ArtistData) {
	w.strU64(a.Artist)
	w.u64(uint64(len(a.Albums)))
	for _, al := range a.Albums {
		encodeAlbum(w, al)
	}
}

func decodeArtist(r *reader) (ArtistData, error) {
	name, err := r.strU64()
	if err != nil {
		return ArtistData{}, err
	}
	n, err := r.u64()
	if err != nil {
		return ArtistData{}, err
	}
	var albums []AlbumData
	if n > 0 {
		albums = make([]AlbumData, 0, n)
		for i := uint64(0); i < n; i++ {
			al, err := decodeAlbum(r)
			if err != nil {
				return ArtistData{}, err
			}
			albums = append(albums, al)
		}
	}
	return ArtistData{Artist: name, Albums: albums}, nil
}

// Encode serializes m as exactly one complete frame: an 8-byte
// big-endian length followed by the tag and its payload.
func Encode(m Message) []byte {
	w := &writer{}
	w.u8(uint8(m.Tag))
	switch m.Tag {
	case TagPing, TagPong:
		encodePeer(w, m.Peer)
	case TagPayload:
		w.strU64(m.Text)
	case TagRequestFile:
		encodeArtist(w, m.Artist)
	case TagArtistsRequest, TagPeersRequest, TagOk:
		// empty payload
	case TagAlbumRequest, TagAlbumResponse, TagDownloadRequest:
		encodeAlbum(w, m.Album)
	case TagArtistsResponse:
		w.u64(uint64(len(m.Artists)))
		for _, a := range m.Artists {
			encodeArtist(w, a)
		}
	case TagPeersResponse:
		w.u64(uint64(len(m.Peers)))
		for _, p := range m.Peers {
			pw := &writer{}
			encodePeer(pw, p)
			w.u64(uint64(len(pw.buf)))
			w.bytes(pw.buf)
		}
	}
	frame := make([]byte, 8+len(w.buf))
	binary.BigEndian.PutUint64(frame, uint64(len(w.buf)))
	copy(frame[8:], w.buf)
	return frame
}

func decodeBody(tag Tag, r *reader) (*Message, error) {
	switch tag {
	case TagPing, TagPong:
		p, err := decodePeer(r)
		if err != nil {
			return nil, err
		}
		return &Message{Tag: tag, Peer: p}, nil
	case TagPayload:
		s, err := r.strU64()
		if err != nil {
			return nil, err
		}
		return &Message{Tag: tag, Text: s}, nil
	case TagRequestFile:
		a, err := decodeArtist(r)
		if err != nil {
			return nil, err
		}
		return &Message{Tag: tag, Artist: a}, nil
	case TagArtistsRequest, TagPeersRequest, TagOk:
		return &Message{Tag: tag}, nil
	case TagAlbumRequest, TagAlbumResponse, TagDownloadRequest:
		a, err := decodeAlbum(r)
		if err != nil {
			return nil, err
		}
		return &Message{Tag: tag, Album: a}, nil
	case TagArtistsResponse:
		n, err := r.u64()
		if err != nil {
			return nil, err
		}
		xs := make([]ArtistData, 0, n)
		for i := uint64(0); i < n; i++ {
			a, err := decodeArtist(r)
			if err != nil {
				return nil, err
			}
			xs = append(xs, a)
		}
		return &Message{Tag: tag, Artists: xs}, nil
	case TagPeersResponse:
		n, err := r.u64()
		if err != nil {
			return nil, err
		}
		ps := make([]Peer, 0, n)
		for i := uint64(0); i < n; i++ {
			pl, err := r.u64()
			if err != nil {
				return nil, err
			}
			pb, err := r.bytes(int(pl))
			if err != nil {
				return nil, err
			}
			pr := &reader{buf: pb}
			p, err := decodePeer(pr)
			if err != nil {
				return nil, err
			}
			if pr.remaining() != 0 {
				return nil, ErrDataLengthMismatch
			}
			ps = append(ps, p)
		}
		return &Message{Tag: tag, Peers: ps}, nil
	default:
		// Unknown tag, including the never-on-wire Received marker:
		// forward-compatible drop. The caller already knows how many
		// bytes the frame occupied from the outer length.
		return nil, nil
	}
}

// DecodeFrame attempts to decode exactly one frame from the front of
// buf. It returns (nil, 0, nil) when buf does not yet hold a complete
// frame. n is the number of bytes the frame occupied (0 when nothing
// was consumed); the caller advances its buffer by n. msg is nil both
// when more data is needed (n == 0) and when a known-length frame held
// an unrecognized tag (n > 0, dropped for forward compatibility) —
// callers distinguish the two by n.
func DecodeFrame(buf []byte) (msg *Message, n int, err error) {
	if len(buf) < 8 {
		return nil, 0, nil
	}
	l := binary.BigEndian.Uint64(buf[:8])
	total := uint64(8) + l
	if total > uint64(1<<32) {
		return nil, 0, ErrDataLengthMismatch
	}
	if uint64(len(buf)) < total {
		return nil, 0, nil
	}
	if l == 0 {
		return nil, 0, ErrSerialization
	}
	payload := buf[8:total]
	r := &reader{buf: payload}
	tagByte, err := r.u8()
	if err != nil {
		return nil, 0, err
	}
	m, err := decodeBody(Tag(tagByte), r)
	if err != nil {
		return nil, 0, err
	}
	if m != nil && r.remaining() != 0 {
		return nil, 0, ErrDataLengthMismatch
	}
	return m, int(total), nil
}

// Decoder buffers bytes arriving from a stream transport and yields
// one decoded frame at a time, tolerating arbitrary read-boundary
// splits of the underlying byte stream.
type Decoder struct {
	buf []byte
}

func NewDecoder() *Decoder { return &Decoder{} }

// Feed appends newly-read transport bytes to the decode buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next consumes at most one frame from the buffered stream. ok is
// false when no complete frame is buffered yet (the caller should read
// more from the transport). ok is true with msg == nil when a frame
// was consumed but carried an unrecognized tag — the caller should
// call Next again immediately, since more frames may already be
// buffered.
func (d *Decoder) Next() (msg *Message, ok bool, err error) {
	m, n, err := DecodeFrame(d.buf)
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	d.buf = d.buf[n:]
	return m, true, nil
}
