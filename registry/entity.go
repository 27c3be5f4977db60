package registry

import "github.com/rlkelly/p2p/wire"

// entity is the registry's (Peer, Collection) record. A slot holding a
// removed entity is kept around (tombstoned) until the next Compact()
// so that in-flight address lookups started before the removal don't
// race a slice reshuffle.
type entity struct {
	peer       wire.Peer
	collection []wire.ArtistData
	removed    bool
	verified   bool // advisory EdDSA check result, never gates admission
}

func newEntity(p wire.Peer, c []wire.ArtistData) *entity {
	return &entity{peer: p, collection: c}
}
