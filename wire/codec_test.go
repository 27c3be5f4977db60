package wire

import (
	"reflect"
	"testing"
)

func roundtrip(t *testing.T, m Message) Message {
	t.Helper()
	enc := Encode(m)
	dec, n, err := DecodeFrame(enc)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if n != len(enc) {
		t.Fatalf("consumed %d bytes, want %d", n, len(enc))
	}
	if dec == nil {
		t.Fatalf("DecodeFrame returned nil message for tag %v", m.Tag)
	}
	return *dec
}

func TestPingPongRoundtrip(t *testing.T) {
	p, err := NewPeer("127.0.0.1:9001", "alice", true)
	if err != nil {
		t.Fatal(err)
	}
	got := roundtrip(t, Ping(p))
	if got.Tag != TagPing || got.Peer.Address() != p.Address() || got.Peer.Name != "alice" {
		t.Fatalf("got %+v", got)
	}

	got = roundtrip(t, Pong(p))
	if got.Tag != TagPong || got.Peer.Address() != p.Address() {
		t.Fatalf("got %+v", got)
	}
}

func TestEmptyMessagesRoundtrip(t *testing.T) {
	for _, m := range []Message{ArtistsRequest(), PeersRequest(), Ok()} {
		got := roundtrip(t, m)
		if got.Tag != m.Tag {
			t.Fatalf("tag mismatch: got %v want %v", got.Tag, m.Tag)
		}
	}
}

func TestPayloadRoundtrip(t *testing.T) {
	got := roundtrip(t, Payload("hello, mesh"))
	if got.Text != "hello, mesh" {
		t.Fatalf("got %q", got.Text)
	}
}

func TestArtistsResponseRoundtrip(t *testing.T) {
	artist := "Radiohead"
	album := AlbumData{
		Artist:     &artist,
		AlbumTitle: "OK Computer",
		TrackCount: 2,
		Tracks: []TrackData{
			{Title: "Airbag", Bitrate: 320, Length: 244},
			{Title: "Paranoid Android", Bitrate: 320, Length: 255},
		},
	}
	xs := []ArtistData{{Artist: artist, Albums: []AlbumData{album}}}

	got := roundtrip(t, ArtistsResponse(xs))
	if !reflect.DeepEqual(got.Artists, xs) {
		t.Fatalf("got %+v want %+v", got.Artists, xs)
	}
}

func TestAlbumDataNoTracksVsEmptyTracks(t *testing.T) {
	noTracks := AlbumData{AlbumTitle: "Unknown Pleasures", TrackCount: 9}
	got := roundtrip(t, AlbumRequest(noTracks))
	if got.Album.HasTracks() {
		t.Fatalf("expected HasTracks()==false, got %+v", got.Album)
	}
	if got.Album.TrackCount != 9 {
		t.Fatalf("TrackCount = %d, want 9", got.Album.TrackCount)
	}

	withEmpty := AlbumData{AlbumTitle: "Unknown Pleasures", TrackCount: 9, Tracks: []TrackData{}}
	got = roundtrip(t, AlbumResponse(withEmpty))
	if !got.Album.HasTracks() {
		t.Fatalf("expected HasTracks()==true for non-nil empty slice")
	}
	if len(got.Album.Tracks) != 0 {
		t.Fatalf("expected zero tracks, got %d", len(got.Album.Tracks))
	}
}

func TestPeersResponseRoundtrip(t *testing.T) {
	a, _ := NewPeer("127.0.0.1:9001", "alice", true)
	b, _ := NewPeer("127.0.0.1:9002", "bob", false)
	got := roundtrip(t, PeersResponse([]Peer{a, b}))
	if len(got.Peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(got.Peers))
	}
	if got.Peers[0].Address() != a.Address() || got.Peers[1].Address() != b.Address() {
		t.Fatalf("got %+v", got.Peers)
	}
}

func TestDecodeFramePartialBufferReturnsNilNotError(t *testing.T) {
	p, _ := NewPeer("127.0.0.1:9001", "alice", true)
	full := Encode(Ping(p))
	for n := 0; n < len(full); n++ {
		msg, consumed, err := DecodeFrame(full[:n])
		if err != nil {
			t.Fatalf("prefix length %d: unexpected error %v", n, err)
		}
		if msg != nil || consumed != 0 {
			t.Fatalf("prefix length %d: expected (nil, 0), got (%+v, %d)", n, msg, consumed)
		}
	}
}

func TestFrameIsolation(t *testing.T) {
	p, _ := NewPeer("127.0.0.1:9001", "alice", true)
	m1 := Ping(p)
	m2 := Payload("second message")

	buf := append(Encode(m1), Encode(m2)...)

	dec := NewDecoder()
	dec.Feed(buf)

	got1, ok, err := dec.Next()
	if err != nil || !ok || got1 == nil {
		t.Fatalf("first Next(): got1=%+v ok=%v err=%v", got1, ok, err)
	}
	if got1.Tag != TagPing {
		t.Fatalf("first message tag = %v, want Ping", got1.Tag)
	}

	got2, ok, err := dec.Next()
	if err != nil || !ok || got2 == nil {
		t.Fatalf("second Next(): got2=%+v ok=%v err=%v", got2, ok, err)
	}
	if got2.Tag != TagPayload || got2.Text != "second message" {
		t.Fatalf("got %+v", got2)
	}

	_, ok, err = dec.Next()
	if err != nil || ok {
		t.Fatalf("expected no more frames, got ok=%v err=%v", ok, err)
	}
}

func TestDecoderUnknownTagDropsAndContinues(t *testing.T) {
	p, _ := NewPeer("127.0.0.1:9001", "alice", true)
	unknown := Message{Tag: Tag(0xEE)}
	buf := append(Encode(unknown), Encode(Ping(p))...)

	dec := NewDecoder()
	dec.Feed(buf)

	msg, ok, err := dec.Next()
	if err != nil || !ok || msg != nil {
		t.Fatalf("expected (nil, true, nil) for unknown tag, got (%+v, %v, %v)", msg, ok, err)
	}

	msg, ok, err = dec.Next()
	if err != nil || !ok || msg == nil || msg.Tag != TagPing {
		t.Fatalf("expected Ping after unknown tag, got (%+v, %v, %v)", msg, ok, err)
	}
}

func TestFeedByteAtATime(t *testing.T) {
	p, _ := NewPeer("127.0.0.1:9001", "alice", true)
	full := Encode(Ping(p))

	dec := NewDecoder()
	for i := 0; i < len(full)-1; i++ {
		dec.Feed(full[i : i+1])
		_, ok, err := dec.Next()
		if err != nil || ok {
			t.Fatalf("byte %d: expected incomplete frame, got ok=%v err=%v", i, ok, err)
		}
	}
	dec.Feed(full[len(full)-1:])
	msg, ok, err := dec.Next()
	if err != nil || !ok || msg == nil || msg.Tag != TagPing {
		t.Fatalf("final byte: got (%+v, %v, %v)", msg, ok, err)
	}
}
