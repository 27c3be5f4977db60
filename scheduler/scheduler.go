// Package scheduler drives the periodic liveness probe and peer-list
// gossip that keep the registry in sync with which sessions are
// actually still alive.
package scheduler

import (
	"context"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/registry"
	"github.com/rlkelly/p2p/wire"
)

// DefaultInterval is the default tick period.
const DefaultInterval = 3 * time.Second

// Sendable is the minimal view of a live session the scheduler needs:
// where to enqueue an outbound message, and which connection address
// it answers to.
type Sendable interface {
	ConnAddr() string
	Send(wire.Message) error
}

// Dialer provides the scheduler with the current set of live sessions
// and a way to open new ones. The supervisor implements this.
type Dialer interface {
	Sessions() []Sendable
	DialAndSpawn(addr string)
}

// Scheduler runs the fixed-tick probe/gossip loop.
type Scheduler struct {
	reg      *registry.Registry
	dialer   Dialer
	interval time.Duration
}

// New builds a Scheduler with the given tick interval (DefaultInterval
// if zero).
func New(reg *registry.Registry, dialer Dialer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{reg: reg, dialer: dialer, interval: interval}
}

// Run blocks, ticking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick sends all pings before any peers_request, then dials every
// known peer not currently bound to a live session. The registry lock
// is never held while dialing.
func (s *Scheduler) tick() {
	sessions := s.dialer.Sessions()
	local := s.reg.LocalPeer()

	for _, sess := range sessions {
		if err := sess.Send(wire.Ping(local)); err != nil {
			logger.Printf(logger.WARN, "[scheduler] ping enqueue failed for %s: %s", sess.ConnAddr(), err)
			s.reg.DeleteEntity(sess.ConnAddr())
		}
	}
	for _, sess := range sessions {
		if err := sess.Send(wire.PeersRequest()); err != nil {
			logger.Printf(logger.WARN, "[scheduler] peers_request enqueue failed for %s: %s", sess.ConnAddr(), err)
			s.reg.DeleteEntity(sess.ConnAddr())
		}
	}

	s.reg.Compact()

	for _, p := range s.reg.AllPeers() {
		if s.reg.IsConnected(p.Address()) {
			continue
		}
		logger.Printf(logger.DBG, "[scheduler] dialing newly-known peer %s", p.Address())
		s.dialer.DialAndSpawn(p.Address())
	}
}
