package registry

import (
	"testing"

	"github.com/rlkelly/p2p/wire"
)

func mustPeer(t *testing.T, addr, name string) wire.Peer {
	t.Helper()
	p, err := wire.NewPeer(addr, name, true)
	if err != nil {
		t.Fatalf("wire.NewPeer(%q): %v", addr, err)
	}
	return p
}

func newTestRegistry(t *testing.T) (*Registry, wire.Peer) {
	t.Helper()
	local := mustPeer(t, "127.0.0.1:9000", "local")
	return New(local), local
}

func TestAddPeerIsNoOpForLocalPeer(t *testing.T) {
	r, local := newTestRegistry(t)
	r.AddPeer(local, nil)
	if got := r.AllPeers(); len(got) != 0 {
		t.Fatalf("expected local peer never admitted, got %+v", got)
	}
}

func TestAddPeerDedupReplacesAndEmitsRemovedThenModified(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.RegisterConsumer("test")

	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	alice2 := mustPeer(t, "127.0.0.1:9001", "alice2")

	r.AddPeer(alice, nil)
	r.AddPeer(alice2, nil)

	peers := r.AllPeers()
	if len(peers) != 1 {
		t.Fatalf("expected exactly one entry, got %d: %+v", len(peers), peers)
	}
	if peers[0].Name != "alice2" {
		t.Fatalf("expected surviving peer to be alice2, got %q", peers[0].Name)
	}

	events := r.PollEvents("test")
	if len(events) != 3 {
		t.Fatalf("expected 3 events (Discovered, Removed, Modified), got %d: %+v", len(events), events)
	}
	if events[0].Kind != Discovered {
		t.Fatalf("event[0] = %v, want Discovered", events[0].Kind)
	}
	if events[1].Kind != Removed || events[1].Peer.Name != "alice" {
		t.Fatalf("event[1] = %+v, want Removed(alice)", events[1])
	}
	if events[2].Kind != Modified || events[2].Peer.Name != "alice2" {
		t.Fatalf("event[2] = %+v, want Modified(alice2)", events[2])
	}
}

func TestInsertAddressThenGetEntityConverges(t *testing.T) {
	r, _ := newTestRegistry(t)
	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	r.AddPeer(alice, nil)

	r.InsertAddress("127.0.0.1:55000", alice)

	byService, _, ok1 := r.GetEntity(alice.Address())
	byConn, _, ok2 := r.GetEntity("127.0.0.1:55000")
	if !ok1 || !ok2 {
		t.Fatalf("expected both lookups to resolve: ok1=%v ok2=%v", ok1, ok2)
	}
	if byService.Address() != byConn.Address() {
		t.Fatalf("lookups diverged: %s vs %s", byService.Address(), byConn.Address())
	}
}

func TestDeleteEntityRemovesBothBindings(t *testing.T) {
	r, _ := newTestRegistry(t)
	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	r.AddPeer(alice, nil)
	r.InsertAddress("127.0.0.1:55000", alice)

	r.DeleteEntity(alice.Address())

	if _, _, ok := r.GetEntity(alice.Address()); ok {
		t.Fatalf("expected service-address binding gone")
	}
	if _, _, ok := r.GetEntity("127.0.0.1:55000"); ok {
		t.Fatalf("expected connection-address binding gone")
	}
}

func TestAddTracksReplacesExistingAlbumExactly(t *testing.T) {
	r, _ := newTestRegistry(t)
	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	r.AddPeer(alice, nil)

	artist := "X"
	album := wire.AlbumData{
		Artist:     &artist,
		AlbumTitle: "Y",
		Tracks:     []wire.TrackData{{Title: "T1"}},
	}
	r.AddTracks(alice.Address(), album)

	col := r.GetCollection(alice.Address())
	if len(col) != 1 || len(col[0].Albums) != 1 || len(col[0].Albums[0].Tracks) != 1 {
		t.Fatalf("unexpected collection after first add_tracks: %+v", col)
	}
	if col[0].Albums[0].Tracks[0].Title != "T1" {
		t.Fatalf("expected T1, got %+v", col[0].Albums[0].Tracks)
	}

	album2 := wire.AlbumData{
		Artist:     &artist,
		AlbumTitle: "Y",
		Tracks:     []wire.TrackData{{Title: "T2"}},
	}
	r.AddTracks(alice.Address(), album2)

	col = r.GetCollection(alice.Address())
	if len(col) != 1 || len(col[0].Albums) != 1 {
		t.Fatalf("expected artist/album count unchanged, got %+v", col)
	}
	tracks := col[0].Albums[0].Tracks
	if len(tracks) != 1 || tracks[0].Title != "T2" {
		t.Fatalf("expected replacement to [T2], got %+v", tracks)
	}
}

func TestUpdateCollectionOnUnknownAddressPanics(t *testing.T) {
	r, _ := newTestRegistry(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for update_collection on unknown address")
		}
	}()
	r.UpdateCollection("127.0.0.1:9999", nil)
}

func TestGetCollectionOnUnknownAddressIsEmptyNotFatal(t *testing.T) {
	r, _ := newTestRegistry(t)
	if got := r.GetCollection("127.0.0.1:9999"); len(got) != 0 {
		t.Fatalf("expected empty collection, got %+v", got)
	}
}

func TestAddPeersPreservesExistingCollection(t *testing.T) {
	r, _ := newTestRegistry(t)
	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	r.AddPeer(alice, nil)
	r.UpdateCollection(alice.Address(), []wire.ArtistData{{Artist: "X"}})

	alice2 := mustPeer(t, "127.0.0.1:9001", "alice2")
	r.AddPeers([]wire.Peer{alice2})

	col := r.GetCollection(alice.Address())
	if len(col) != 1 || col[0].Artist != "X" {
		t.Fatalf("expected preserved collection, got %+v", col)
	}
	peers := r.AllPeers()
	if len(peers) != 1 || peers[0].Name != "alice2" {
		t.Fatalf("expected renamed peer alice2, got %+v", peers)
	}
}

func TestAllPeersExcludesLocal(t *testing.T) {
	r, local := newTestRegistry(t)
	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	r.AddPeers([]wire.Peer{local, alice})

	peers := r.AllPeers()
	if len(peers) != 1 || peers[0].Address() != alice.Address() {
		t.Fatalf("expected only alice, got %+v", peers)
	}
}

func TestCompactDropsTombstones(t *testing.T) {
	r, _ := newTestRegistry(t)
	alice := mustPeer(t, "127.0.0.1:9001", "alice")
	r.AddPeer(alice, nil)
	r.DeleteEntity(alice.Address())
	r.Compact()
	if len(r.order) != 0 {
		t.Fatalf("expected order slice compacted to empty, got %d", len(r.order))
	}
}
