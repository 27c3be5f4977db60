package identity

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/bfix/gospel/crypto/ed25519"
)

func signClaim(t *testing.T, address, name string) (pubHex, sigHex string) {
	t.Helper()
	pub, prv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hv := sha512.Sum512([]byte(address + name))
	sig := ed25519.Sign(prv, hv[:])
	return hex.EncodeToString(pub), hex.EncodeToString(sig)
}

func TestVerifyPeerClaimAcceptsValidSignature(t *testing.T) {
	pubHex, sigHex := signClaim(t, "127.0.0.1:9001", "alice")
	if !VerifyPeerClaim("127.0.0.1:9001", "alice", pubHex, sigHex) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyPeerClaimRejectsTamperedName(t *testing.T) {
	pubHex, sigHex := signClaim(t, "127.0.0.1:9001", "alice")
	if VerifyPeerClaim("127.0.0.1:9001", "mallory", pubHex, sigHex) {
		t.Fatal("expected tampered claim to fail verification")
	}
}

func TestVerifyPeerClaimAbsentFieldsFalse(t *testing.T) {
	if VerifyPeerClaim("127.0.0.1:9001", "alice", "", "") {
		t.Fatal("expected absent public_key/signature to report unverified")
	}
}

func TestVerifyPeerClaimMalformedHexFalse(t *testing.T) {
	if VerifyPeerClaim("127.0.0.1:9001", "alice", "not-hex", "not-hex-either") {
		t.Fatal("expected malformed hex to report unverified, not panic")
	}
}

func TestVerifyPeerClaimWrongLengthSignatureFalse(t *testing.T) {
	pubHex, _ := signClaim(t, "127.0.0.1:9001", "alice")
	shortSig := hex.EncodeToString([]byte("too-short"))
	if VerifyPeerClaim("127.0.0.1:9001", "alice", pubHex, shortSig) {
		t.Fatal("expected malformed-length signature to report unverified, not panic")
	}
}
