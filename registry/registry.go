package registry

import (
	"fmt"
	"sync"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/wire"
)

// Registry is the in-memory, address-indexed store of known peers and
// their catalogs. All access is serialized behind a single exclusive
// lock; callers must never hold it across a transport await.
type Registry struct {
	mu sync.Mutex

	local           wire.Peer
	localCollection []wire.ArtistData

	order     []*entity          // stable insertion order, tombstones until Compact
	byService map[string]*entity // Peer.Address() -> entity
	byConn    map[string]*entity // observed connection address -> entity

	events *eventLog
}

// New creates a registry that will always refuse to admit local.
func New(local wire.Peer) *Registry {
	return &Registry{
		local:     local,
		byService: make(map[string]*entity),
		byConn:    make(map[string]*entity),
		events:    newEventLog(),
	}
}

// RegisterConsumer attaches a named cursor to the event log (used by
// tests; neither the admin API nor the core scheduler consumes
// events).
func (r *Registry) RegisterConsumer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.Register(name)
}

// PollEvents drains unseen events for the named consumer.
func (r *Registry) PollEvents(consumer string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events.Poll(consumer)
}

// AddPeer admits p with collection c. If an entity already answers to
// p.Address(), the old entity is tombstoned and a fresh one takes its
// place, and the event log observes Removed(old) then Modified(new).
// AddPeer never admits the local peer.
func (r *Registry) AddPeer(p wire.Peer, c []wire.ArtistData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addPeer(p, c)
}

func (r *Registry) addPeer(p wire.Peer, c []wire.ArtistData) *entity {
	if p.Address() == r.local.Address() {
		return nil
	}
	if old, ok := r.byService[p.Address()]; ok {
		old.removed = true
		r.events.emit(Event{Kind: Removed, Peer: old.peer})
		delete(r.byService, old.peer.Address())
		e := newEntity(p, c)
		r.order = append(r.order, e)
		r.byService[p.Address()] = e
		r.events.emit(Event{Kind: Modified, Peer: p})
		logger.Printf(logger.DBG, "[registry] rekeyed entity for %s (%s -> %s)", p.Address(), old.peer.Name, p.Name)
		return e
	}
	e := newEntity(p, c)
	r.order = append(r.order, e)
	r.byService[p.Address()] = e
	r.events.emit(Event{Kind: Discovered, Peer: p})
	return e
}

// AddPeers bulk-adds xs, preserving each existing entity's collection
// when one is already present.
func (r *Registry) AddPeers(xs []wire.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range xs {
		if p.Address() == r.local.Address() {
			continue
		}
		var preserved []wire.ArtistData
		if existing, ok := r.byService[p.Address()]; ok {
			preserved = existing.collection
		}
		r.addPeer(p, preserved)
	}
}

// InsertAddress binds conn_addr to the entity identified by p.Address(),
// used by the handler's rekey rule. A no-op, logged at DEBUG, if no
// entity answers to p.Address() yet.
func (r *Registry) InsertAddress(connAddr string, p wire.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byService[p.Address()]
	if !ok {
		logger.Printf(logger.DBG, "[registry] InsertAddress(%s): no entity for %s yet", connAddr, p.Address())
		return
	}
	r.byConn[connAddr] = e
}

// RemoveAddress detaches the conn_addr binding only; the entity itself
// (and its service-address binding) is untouched.
func (r *Registry) RemoveAddress(connAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byConn, connAddr)
}

// GetEntity resolves addr by either service or connection address.
func (r *Registry) GetEntity(addr string) (wire.Peer, []wire.ArtistData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.resolve(addr)
	if e == nil {
		return wire.Peer{}, nil, false
	}
	return e.peer, e.collection, true
}

func (r *Registry) resolve(addr string) *entity {
	if e, ok := r.byService[addr]; ok {
		return e
	}
	if e, ok := r.byConn[addr]; ok {
		return e
	}
	return nil
}

// UpdateCollection replaces the Collection on the entity resolved by
// addr. It is a programmer error if addr resolves to nothing; the
// caller (the handler) recovers it at the session boundary and tears
// down only that session.
func (r *Registry) UpdateCollection(addr string, c []wire.ArtistData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.resolve(addr)
	if e == nil {
		panic(fmt.Sprintf("registry: update_collection on unknown address %q", addr))
	}
	e.collection = c
}

// AddTracks merges album into the entity resolved by addr, following
// the registry's artist/album-splice policy. Like UpdateCollection, an
// unresolved addr is a programmer error.
func (r *Registry) AddTracks(addr string, album wire.AlbumData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.resolve(addr)
	if e == nil {
		panic(fmt.Sprintf("registry: add_tracks on unknown address %q", addr))
	}
	artistName := ""
	if album.Artist != nil {
		artistName = *album.Artist
	}
	for i := range e.collection {
		if e.collection[i].Artist != artistName {
			continue
		}
		spliceAlbum(&e.collection[i], album)
		return
	}
	e.collection = append(e.collection, wire.ArtistData{
		Artist: artistName,
		Albums: []wire.AlbumData{album},
	})
}

// spliceAlbum implements the within-artist half of add_tracks: replace
// an existing album of the same title wholesale, else append.
func spliceAlbum(artist *wire.ArtistData, album wire.AlbumData) {
	for i := range artist.Albums {
		if artist.Albums[i].AlbumTitle == album.AlbumTitle {
			artist.Albums[i] = album
			return
		}
	}
	artist.Albums = append(artist.Albums, album)
}

// DeleteEntity removes the entity resolved by addr along with both of
// its address bindings. A no-op if addr resolves to nothing.
func (r *Registry) DeleteEntity(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.resolve(addr)
	if e == nil {
		return
	}
	e.removed = true
	delete(r.byService, e.peer.Address())
	for conn, v := range r.byConn {
		if v == e {
			delete(r.byConn, conn)
		}
	}
	r.events.emit(Event{Kind: Removed, Peer: e.peer})
}

// AllPeers returns a stable-order snapshot of currently-live peers.
func (r *Registry) AllPeers() []wire.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.Peer, 0, len(r.order))
	for _, e := range r.order {
		if !e.removed {
			out = append(out, e.peer)
		}
	}
	return out
}

// GetCollection returns the current collection for addr, or an empty
// one if addr is unknown (never fatal, unlike UpdateCollection).
func (r *Registry) GetCollection(addr string) []wire.ArtistData {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.resolve(addr)
	if e == nil {
		return nil
	}
	return e.collection
}

// SetVerified records the outcome of the advisory identity check
// against the entity resolved by addr. A no-op if addr does not
// resolve — verification never creates or gates registry state.
func (r *Registry) SetVerified(addr string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.resolve(addr); e != nil {
		e.verified = ok
	}
}

// EntityView is a read-only projection of one registry entity, used
// by the admin API to avoid leaking mutable entity pointers.
type EntityView struct {
	Peer       wire.Peer
	Verified   bool
	ArtistsCnt int
	AlbumsCnt  int
	TracksCnt  int
}

// Entities returns a stable-order snapshot of every live entity with
// its verification status and catalog summary counts.
func (r *Registry) Entities() []EntityView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntityView, 0, len(r.order))
	for _, e := range r.order {
		if e.removed {
			continue
		}
		v := EntityView{Peer: e.peer, Verified: e.verified, ArtistsCnt: len(e.collection)}
		for _, a := range e.collection {
			v.AlbumsCnt += len(a.Albums)
			for _, al := range a.Albums {
				v.TracksCnt += len(al.Tracks)
			}
		}
		out = append(out, v)
	}
	return out
}

// SetLocalCollection replaces the local peer's own catalog, as
// scanned by the catalog collaborator at startup or /rescan.
func (r *Registry) SetLocalCollection(c []wire.ArtistData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.localCollection = c
}

// LocalCollection returns the local peer's own catalog, served in
// response to ArtistsRequest.
func (r *Registry) LocalCollection() []wire.ArtistData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localCollection
}

// LocalPeer returns the immutable local peer identity.
func (r *Registry) LocalPeer() wire.Peer {
	return r.local
}

// IsConnected reports whether the entity identified by serviceAddr
// currently has at least one connection-address binding — i.e. some
// live session has rekeyed to it. The scheduler uses this to decide
// which known peers need a fresh dial.
func (r *Registry) IsConnected(serviceAddr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byService[serviceAddr]
	if !ok {
		return false
	}
	for _, v := range r.byConn {
		if v == e {
			return true
		}
	}
	return false
}

// Compact physically drops tombstoned entities from the stable-order
// index. Safe to call periodically (the scheduler does so once per
// tick) or not at all — correctness never depends on it, only memory
// footprint.
func (r *Registry) Compact() {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := r.order[:0]
	for _, e := range r.order {
		if !e.removed {
			live = append(live, e)
		}
	}
	r.order = live
}
