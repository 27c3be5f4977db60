package handler

import (
	"context"
	"fmt"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/identity"
	"github.com/rlkelly/p2p/registry"
	"github.com/rlkelly/p2p/session"
	"github.com/rlkelly/p2p/wire"
)

// Handler is the stateless dispatcher driving one Session: for each
// yielded event it either writes a queued outbound message to the
// transport, or maps a decoded inbound message to registry updates and
// further outbound replies.
type Handler struct {
	reg  *registry.Registry
	sess *session.Session
}

// New builds a Handler bound to reg and sess.
func New(reg *registry.Registry, sess *session.Session) *Handler {
	return &Handler{reg: reg, sess: sess}
}

// Run polls sess until it returns a terminal error (end-of-stream or a
// fatal codec error), dispatching every event along the way. The
// session is always closed before Run returns, and the registry entry
// bound to its connection address is always removed alongside it —
// Close only unregisters the session's Sender from the dial loop, so
// without this the registry would never learn a connection died and
// would keep refusing to redial it.
func (h *Handler) Run(ctx context.Context) error {
	defer func() {
		h.sess.Close()
		h.reg.DeleteEntity(h.sess.ConnAddr())
	}()
	for {
		ev, err := h.sess.Poll(ctx)
		if err != nil {
			return err
		}
		switch ev.Kind {
		case session.Outbound:
			if err := h.sess.WriteOutbound(ev.Msg); err != nil {
				return err
			}
		case session.Inbound:
			if err := h.dispatch(ev.Msg); err != nil {
				// A decode/transport issue already tears the session
				// down via Poll's error path; a dispatch error here
				// is a recovered registry panic (programmer error) —
				// log and tear down this session only.
				logger.Printf(logger.ERROR, "[handler] %s: %s", h.sess.ConnAddr(), err)
				return err
			}
		}
	}
}

func (h *Handler) dispatch(m wire.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registry operation panicked: %v", r)
		}
	}()
	switch m.Tag {
	case wire.TagPing:
		h.rekey(m.Peer)
		if err := h.sess.Send(wire.Pong(h.reg.LocalPeer())); err != nil {
			return err
		}
		return h.sess.Send(wire.ArtistsRequest())

	case wire.TagPong:
		h.rekey(m.Peer)
		return h.sess.Send(wire.ArtistsRequest())

	case wire.TagArtistsRequest:
		return h.sess.Send(wire.ArtistsResponse(h.reg.LocalCollection()))

	case wire.TagArtistsResponse:
		h.reg.UpdateCollection(h.sess.ConnAddr(), m.Artists)
		return nil

	case wire.TagAlbumRequest:
		return h.sess.Send(wire.ArtistsResponse(filterForAlbum(h.reg.LocalCollection(), m.Album)))

	case wire.TagAlbumResponse:
		h.reg.AddTracks(h.sess.ConnAddr(), m.Album)
		return nil

	case wire.TagPeersRequest:
		peers := append([]wire.Peer{h.reg.LocalPeer()}, h.reg.AllPeers()...)
		return h.sess.Send(wire.PeersResponse(peers))

	case wire.TagPeersResponse:
		h.reg.AddPeers(m.Peers)
		return nil

	case wire.TagDownloadRequest:
		// out of scope for the core; accepted and ignored.
		return nil

	case wire.TagOk:
		return nil
	}
	return nil
}

// rekey binds the session's observed connection address to the entity
// identified by p.Address(). add_peer runs first so the entity is
// guaranteed to exist before the binding.
func (h *Handler) rekey(p wire.Peer) {
	h.reg.AddPeer(p, nil)
	h.reg.InsertAddress(h.sess.ConnAddr(), p)
	if p.PublicKey != "" && p.Signature != "" {
		ok := identity.VerifyPeerClaim(p.Address(), p.Name, p.PublicKey, p.Signature)
		h.reg.SetVerified(p.Address(), ok)
	}
}

// filterForAlbum builds the ArtistsResponse payload for an
// AlbumRequest: the single matching artist/album, tracks included. An
// unmatched request yields an empty slice.
func filterForAlbum(catalog []wire.ArtistData, want wire.AlbumData) []wire.ArtistData {
	wantArtist := ""
	if want.Artist != nil {
		wantArtist = *want.Artist
	}
	for _, a := range catalog {
		if a.Artist != wantArtist {
			continue
		}
		for _, al := range a.Albums {
			if al.AlbumTitle == want.AlbumTitle {
				return []wire.ArtistData{{Artist: a.Artist, Albums: []wire.AlbumData{al}}}
			}
		}
	}
	return nil
}
