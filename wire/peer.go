package wire

import (
	"fmt"
	"net"
	"strconv"
)

// Peer is the identity of a remote (or the local) node. Equality and
// hash key is Address() alone — Name/PublicKey/Signature are opaque,
// self-declared metadata that never affect identity or admission (the
// handler only feeds PublicKey/Signature to an advisory check).
type Peer struct {
	IP             net.IP // always carried in 16-byte form
	Port           uint16
	AcceptIncoming bool
	Name           string
	PublicKey      string
	Signature      string
}

// NewPeer builds a Peer from a "host:port" address. Host must be an IP
// literal; DNS names are resolved by the caller (see supervisor's
// friend-dialing path) before constructing a Peer.
func NewPeer(addr, name string, acceptIncoming bool) (Peer, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Peer{}, fmt.Errorf("wire: invalid peer address %q: %w", addr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return Peer{}, fmt.Errorf("wire: invalid peer address %q: not an IP literal", addr)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Peer{}, fmt.Errorf("wire: invalid peer address %q: %w", addr, err)
	}
	return Peer{
		IP:             ip.To16(),
		Port:           uint16(port),
		AcceptIncoming: acceptIncoming,
		Name:           name,
	}, nil
}

// Address is the canonical identity key for this peer. Two peers with
// the same Address are the same identity regardless of
// Name/PublicKey/Signature.
func (p Peer) Address() string {
	return net.JoinHostPort(p.IP.String(), strconv.Itoa(int(p.Port)))
}

func (p Peer) String() string {
	return fmt.Sprintf("Peer{%s, name=%q}", p.Address(), p.Name)
}
