package session

import (
	"context"
	"io"
	"net"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/wire"
)

// Kind discriminates the tagged variant a Poll yields: either a
// decoded inbound message or an outbound message ready to write.
type Kind int

const (
	Inbound Kind = iota
	Outbound
)

// Event is what Poll yields: either a decoded message that arrived on
// the transport (Inbound), or a message dequeued from the outbound
// queue that the caller must now write to the transport (Outbound).
type Event struct {
	Kind Kind
	Msg  wire.Message
}

// Sender is the handle other components (the registry's consumers,
// the scheduler, another session relaying gossip) use to push an
// outbound message at this session without touching its internals.
type Sender interface {
	Send(wire.Message) error
}

// Directory is where a Session registers its Sender, keyed by the
// observed connection address, and deregisters it on close. The
// supervisor owns the concrete Directory; keeping it as an interface
// here avoids session depending on supervisor's wiring.
type Directory interface {
	Register(connAddr string, s Sender)
	Unregister(connAddr string)
}

// Session wraps one accepted or dialed connection: an outbound queue
// (drained with priority) joined with inbound decoded messages from
// the framed transport.
type Session struct {
	conn     net.Conn
	connAddr string
	dir      Directory

	outq  *outboundQueue
	dec   *wire.Decoder
	inbox chan wire.Message
	inErr chan error
}

// New wraps conn as a Session. It records conn's remote address,
// allocates the outbound queue, registers its Sender in dir keyed by
// that address, and starts the background read loop. Deregistration
// happens in Close.
func New(conn net.Conn, dir Directory) *Session {
	s := &Session{
		conn:     conn,
		connAddr: conn.RemoteAddr().String(),
		dir:      dir,
		outq:     newOutboundQueue(),
		dec:      wire.NewDecoder(),
		inbox:    make(chan wire.Message, 32),
		inErr:    make(chan error, 1),
	}
	if dir != nil {
		dir.Register(s.connAddr, s)
	}
	go s.readLoop()
	return s
}

// ConnAddr is the remote socket address observed for this connection —
// may differ from the peer's advertised service address.
func (s *Session) ConnAddr() string { return s.connAddr }

// Send enqueues m on the outbound queue. It never blocks on queue
// depth; it only fails once the session has been closed.
func (s *Session) Send(m wire.Message) error {
	return s.outq.push(m)
}

// Poll yields the next event: an outbound message already queued, or
// else the next inbound decoded message, or else blocks until one of
// those or ctx is done. Outbound is always checked first, so queued
// replies are never starved behind a flood of inbound traffic.
func (s *Session) Poll(ctx context.Context) (Event, error) {
	if m, ok := s.outq.tryPop(); ok {
		return Event{Kind: Outbound, Msg: m}, nil
	}
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.outq.notify:
			if m, ok := s.outq.tryPop(); ok {
				return Event{Kind: Outbound, Msg: m}, nil
			}
			// closed with an empty queue: fall through to check inbox/inErr
		case m, ok := <-s.inbox:
			if !ok {
				return Event{}, io.EOF
			}
			return Event{Kind: Inbound, Msg: m}, nil
		case err := <-s.inErr:
			return Event{}, err
		}
	}
}

// WriteOutbound frames and writes m to the transport. Call this after
// Poll yields an Outbound event.
func (s *Session) WriteOutbound(m wire.Message) error {
	_, err := s.conn.Write(wire.Encode(m))
	return err
}

// Close tears down the session: closes the outbound queue (so Send
// starts failing with ErrClosed, the scheduler's signal to forget this
// peer), closes the transport (unblocking the read loop), and
// deregisters from the directory.
func (s *Session) Close() error {
	s.outq.close()
	err := s.conn.Close()
	if s.dir != nil {
		s.dir.Unregister(s.connAddr)
	}
	return err
}

func (s *Session) readLoop() {
	defer close(s.inbox)
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.dec.Feed(buf[:n])
			for {
				msg, ok, derr := s.dec.Next()
				if derr != nil {
					logger.Printf(logger.ERROR, "[session] %s: decode error: %s", s.connAddr, derr)
					s.inErr <- derr
					return
				}
				if !ok {
					break
				}
				if msg == nil {
					// unknown tag, dropped for forward compatibility
					logger.Printf(logger.DBG, "[session] %s: dropped frame with unknown tag", s.connAddr)
					continue
				}
				s.inbox <- *msg
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Printf(logger.DBG, "[session] %s: read error: %s", s.connAddr, err)
			}
			return
		}
	}
}
