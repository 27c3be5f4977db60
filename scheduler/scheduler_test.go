package scheduler

import (
	"errors"
	"testing"

	"github.com/rlkelly/p2p/registry"
	"github.com/rlkelly/p2p/wire"
)

type fakeSession struct {
	addr    string
	fail    bool
	sent    []wire.Tag
}

func (f *fakeSession) ConnAddr() string { return f.addr }

func (f *fakeSession) Send(m wire.Message) error {
	if f.fail {
		return errors.New("session closed")
	}
	f.sent = append(f.sent, m.Tag)
	return nil
}

type fakeDialer struct {
	sessions []Sendable
	dialed   []string
}

func (d *fakeDialer) Sessions() []Sendable { return d.sessions }
func (d *fakeDialer) DialAndSpawn(addr string) {
	d.dialed = append(d.dialed, addr)
}

func mustPeer(t *testing.T, addr, name string) wire.Peer {
	t.Helper()
	p, err := wire.NewPeer(addr, name, true)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTickPingsAllThenGossipsAll(t *testing.T) {
	local := mustPeer(t, "127.0.0.1:9000", "local")
	reg := registry.New(local)

	a := mustPeer(t, "127.0.0.1:9001", "a")
	b := mustPeer(t, "127.0.0.1:9002", "b")
	reg.AddPeer(a, nil)
	reg.AddPeer(b, nil)

	sa := &fakeSession{addr: "10.0.0.1:1"}
	sb := &fakeSession{addr: "10.0.0.1:2"}
	reg.InsertAddress(sa.addr, a)
	reg.InsertAddress(sb.addr, b)

	dialer := &fakeDialer{sessions: []Sendable{sa, sb}}
	s := New(reg, dialer, 0)
	s.tick()

	for _, sess := range []*fakeSession{sa, sb} {
		if len(sess.sent) != 2 || sess.sent[0] != wire.TagPing || sess.sent[1] != wire.TagPeersRequest {
			t.Fatalf("session %s: expected [Ping, PeersRequest], got %+v", sess.addr, sess.sent)
		}
	}
}

func TestTickDeletesEntityOnSendFailure(t *testing.T) {
	local := mustPeer(t, "127.0.0.1:9000", "local")
	reg := registry.New(local)

	a := mustPeer(t, "127.0.0.1:9001", "a")
	reg.AddPeer(a, nil)

	sa := &fakeSession{addr: "10.0.0.1:1", fail: true}
	reg.InsertAddress(sa.addr, a)

	dialer := &fakeDialer{sessions: []Sendable{sa}}
	s := New(reg, dialer, 0)
	s.tick()

	if _, _, ok := reg.GetEntity(a.Address()); ok {
		t.Fatalf("expected entity deleted after send failure")
	}
}

func TestTickDialsUnconnectedKnownPeers(t *testing.T) {
	local := mustPeer(t, "127.0.0.1:9000", "local")
	reg := registry.New(local)

	a := mustPeer(t, "127.0.0.1:9001", "a")
	reg.AddPeer(a, nil)
	// No session bound to a's address: scheduler should try to dial it.

	dialer := &fakeDialer{}
	s := New(reg, dialer, 0)
	s.tick()

	if len(dialer.dialed) != 1 || dialer.dialed[0] != a.Address() {
		t.Fatalf("expected dial to %s, got %+v", a.Address(), dialer.dialed)
	}
}

func TestTickSkipsConnectedPeers(t *testing.T) {
	local := mustPeer(t, "127.0.0.1:9000", "local")
	reg := registry.New(local)

	a := mustPeer(t, "127.0.0.1:9001", "a")
	reg.AddPeer(a, nil)
	sa := &fakeSession{addr: "10.0.0.1:1"}
	reg.InsertAddress(sa.addr, a)

	dialer := &fakeDialer{sessions: []Sendable{sa}}
	s := New(reg, dialer, 0)
	s.tick()

	if len(dialer.dialed) != 0 {
		t.Fatalf("expected no dials for already-connected peer, got %+v", dialer.dialed)
	}
}
