// Package identity implements an advisory, non-gating signature check:
// when a peer declares both a public key and a signature, the handler
// verifies the signature without ever letting the outcome affect
// registry admission.
package identity

import (
	"crypto/sha512"
	"encoding/hex"

	"github.com/bfix/gospel/crypto/ed25519"
	"github.com/bfix/gospel/logger"
)

// decodeHex decodes the hex encoding self-declared key/signature
// strings use on the wire; the core otherwise treats them as opaque.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// Verify checks sig as an EdDSA signature by pubKey over data. It
// never panics on malformed key/signature material; malformed input
// is reported as a failed verification, identically to a genuine
// mismatch, since the caller only ever logs/records the boolean.
func Verify(pubKey, signature []byte, data []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}
	hv := sha512.Sum512(data)
	defer func() {
		// ed25519.Verify panics on a signature of the wrong length;
		// recovering here keeps a malformed peer-declared signature
		// from taking down the handler goroutine.
		recover()
	}()
	return ed25519.Verify(pubKey, hv[:], signature)
}

// VerifyPeerClaim checks the Ping/Pong-carried (public_key, signature)
// pair over address||name. It returns false without logging when
// either field is empty, and false (logged at WARN) for malformed hex
// or a signature that does not verify; it returns true (DEBUG) on a
// clean verification.
// Neither outcome gates registry admission.
func VerifyPeerClaim(address, name, publicKeyHex, signatureHex string) bool {
	if publicKeyHex == "" || signatureHex == "" {
		return false
	}
	pub, err := decodeHex(publicKeyHex)
	if err != nil {
		logger.Printf(logger.WARN, "[identity] %s: malformed public_key: %s", address, err)
		return false
	}
	sig, err := decodeHex(signatureHex)
	if err != nil {
		logger.Printf(logger.WARN, "[identity] %s: malformed signature: %s", address, err)
		return false
	}
	ok := Verify(pub, sig, []byte(address+name))
	if ok {
		logger.Printf(logger.DBG, "[identity] %s: signature verified", address)
	} else {
		logger.Printf(logger.WARN, "[identity] %s: signature verification failed", address)
	}
	return ok
}
