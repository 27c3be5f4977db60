package registry

import (
	"fmt"
	"os"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/wire"
)

// LoadSnapshot reads the on-disk peer snapshot format: u8 count, then
// count × (u8 peer_bytes_len, peer bytes in the wire Peer layout). A
// missing or empty file yields an empty slice, not an error — a fresh
// node simply starts with no known peers.
func LoadSnapshot(path string) ([]wire.Peer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	count := int(data[0])
	pos := 1
	peers := make([]wire.Peer, 0, count)
	for i := 0; i < count; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("registry: truncated snapshot at peer %d/%d", i, count)
		}
		n := int(data[pos])
		pos++
		if pos+n > len(data) {
			return nil, fmt.Errorf("registry: truncated snapshot peer body at peer %d/%d", i, count)
		}
		p, err := wire.DecodePeerBytes(data[pos : pos+n])
		if err != nil {
			return nil, fmt.Errorf("registry: decoding snapshot peer %d/%d: %w", i, count, err)
		}
		pos += n
		peers = append(peers, p)
	}
	return peers, nil
}

// SaveSnapshot writes peers to path in LoadSnapshot's format. A peer
// whose encoded byte length exceeds 255 (the format's u8 length
// prefix) cannot be represented and is skipped with a WARN log rather
// than corrupting the file or failing the whole snapshot.
func SaveSnapshot(path string, peers []wire.Peer) error {
	buf := make([]byte, 0, 1+len(peers)*32)
	count := 0
	body := make([]byte, 0, len(peers)*32)
	for _, p := range peers {
		pb := wire.EncodePeerBytes(p)
		if len(pb) > 255 {
			logger.Printf(logger.WARN, "[registry] snapshot: peer %s encodes to %d bytes, exceeds u8 length prefix, skipping", p.Address(), len(pb))
			continue
		}
		body = append(body, byte(len(pb)))
		body = append(body, pb...)
		count++
	}
	if count > 255 {
		return fmt.Errorf("registry: %d peers exceeds u8 snapshot count", count)
	}
	buf = append(buf, byte(count))
	buf = append(buf, body...)
	return os.WriteFile(path, buf, 0644)
}

// Snapshot returns the registry's current peer set for persistence.
func (r *Registry) Snapshot() []wire.Peer {
	return r.AllPeers()
}

// Seed admits every peer in peers (typically loaded via LoadSnapshot
// or configured initial peers) via AddPeers.
func (r *Registry) Seed(peers []wire.Peer) {
	r.AddPeers(peers)
}
