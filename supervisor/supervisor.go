// Package supervisor wires together the listener, dialer, registry,
// and scheduler into one running node.
package supervisor

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/handler"
	"github.com/rlkelly/p2p/registry"
	"github.com/rlkelly/p2p/scheduler"
	"github.com/rlkelly/p2p/session"
	"github.com/rlkelly/p2p/wire"
)

// DialTimeout bounds an individual outbound connection attempt.
const DialTimeout = 5 * time.Second

// Supervisor binds the listening port, dials initial peers, spawns a
// Session+Handler per connection, and owns the shared registry. It
// implements session.Directory (for session registration) and
// scheduler.Dialer (for the scheduler's dial-newly-known-peers step).
type Supervisor struct {
	Registry *registry.Registry

	mu       sync.Mutex
	sessions map[string]session.Sender

	// life joins the accept loop, the listener-closing goroutine, one
	// goroutine per session, and the scheduler so Wait can block until
	// they have returned. The dial goroutines DialAndSpawn starts are
	// not joined.
	life sync.WaitGroup
}

// New builds a Supervisor around reg.
func New(reg *registry.Registry) *Supervisor {
	return &Supervisor{
		Registry: reg,
		sessions: make(map[string]session.Sender),
	}
}

// Register implements session.Directory.
func (sv *Supervisor) Register(connAddr string, s session.Sender) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.sessions[connAddr] = s
}

// Unregister implements session.Directory.
func (sv *Supervisor) Unregister(connAddr string) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	delete(sv.sessions, connAddr)
}

type sendableRef struct {
	addr   string
	sender session.Sender
}

func (w sendableRef) ConnAddr() string          { return w.addr }
func (w sendableRef) Send(m wire.Message) error { return w.sender.Send(m) }

// Sessions implements scheduler.Dialer.
func (sv *Supervisor) Sessions() []scheduler.Sendable {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	out := make([]scheduler.Sendable, 0, len(sv.sessions))
	for addr, s := range sv.sessions {
		out = append(out, sendableRef{addr: addr, sender: s})
	}
	return out
}

// DialAndSpawn implements scheduler.Dialer: it dials addr in the
// background and, on success, spawns a Session+Handler for it. Dial
// failures are logged and not retried within the same tick.
func (sv *Supervisor) DialAndSpawn(addr string) {
	go func() {
		conn, err := net.DialTimeout("tcp", addr, DialTimeout)
		if err != nil {
			logger.Printf(logger.WARN, "[supervisor] dial %s failed: %s", addr, err)
			return
		}
		sv.spawn(context.Background(), conn)
	}()
}

func (sv *Supervisor) spawn(ctx context.Context, conn net.Conn) {
	sess := session.New(conn, sv)
	h := handler.New(sv.Registry, sess)
	sv.life.Add(1)
	go func() {
		defer sv.life.Done()
		if err := h.Run(ctx); err != nil {
			logger.Printf(logger.DBG, "[supervisor] session %s ended: %s", sess.ConnAddr(), err)
		}
	}()
}

// ListenAndServe binds addr and spawns a Session+Handler for every
// accepted connection until ctx is cancelled.
func (sv *Supervisor) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Printf(logger.INFO, "[supervisor] listening on %s", addr)

	sv.life.Add(1)
	go func() {
		defer sv.life.Done()
		<-ctx.Done()
		ln.Close()
	}()

	sv.life.Add(1)
	go func() {
		defer sv.life.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				logger.Printf(logger.WARN, "[supervisor] accept failed: %s", err)
				continue
			}
			sv.spawn(ctx, conn)
		}
	}()
	return nil
}

// DialInitialPeers dials every address in addrs, spawning a session
// for each that succeeds. Non-IP hosts are resolved first.
func (sv *Supervisor) DialInitialPeers(addrs []string) {
	for _, a := range addrs {
		resolved, err := ResolveFriend(a)
		if err != nil {
			logger.Printf(logger.WARN, "[supervisor] resolving initial peer %s: %s", a, err)
			continue
		}
		sv.DialAndSpawn(resolved)
	}
}

// RunScheduler spawns the scheduler as a long-running goroutine.
func (sv *Supervisor) RunScheduler(ctx context.Context, interval time.Duration) {
	s := scheduler.New(sv.Registry, sv, interval)
	sv.life.Add(1)
	go func() {
		defer sv.life.Done()
		s.Run(ctx)
	}()
}

// Wait blocks until every spawned goroutine (accept loop, sessions,
// scheduler) has returned — call after cancelling the context used to
// start them.
func (sv *Supervisor) Wait() {
	sv.life.Wait()
}
