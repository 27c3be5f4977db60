// Package admin exposes the node's introspection HTTP surface: a peer
// dump, a liveness probe, and a rescan trigger. It is pure
// introspection — it never mutates registry identity or session state
// directly; /rescan only replaces the local peer's own catalog through
// Registry.SetLocalCollection, the catalog the handler serves for
// ArtistsRequest.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bfix/gospel/logger"
	"github.com/gorilla/mux"

	"github.com/rlkelly/p2p/registry"
	"github.com/rlkelly/p2p/wire"
)

// Rescanner re-walks the configured music root and returns the
// resulting catalog. Implemented by the catalog package.
type Rescanner func() ([]wire.ArtistData, error)

// Server runs the admin HTTP surface against one registry.
type Server struct {
	reg      *registry.Registry
	rescan   Rescanner
	router   *mux.Router
	srv      *http.Server
}

// New builds a Server bound to reg. rescan may be nil, in which case
// /rescan responds 503.
func New(reg *registry.Registry, rescan Rescanner) *Server {
	s := &Server{reg: reg, rescan: rescan, router: mux.NewRouter()}
	s.router.HandleFunc("/peers", s.handlePeers).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/rescan", s.handleRescan).Methods(http.MethodPost)
	s.mountRPC()
	return s
}

// Start runs the HTTP server on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) {
	s.srv = &http.Server{
		Handler:      s.router,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf(logger.WARN, "[admin] server listen failed: %s", err)
		}
	}()
	go func() {
		<-ctx.Done()
		if err := s.srv.Shutdown(context.Background()); err != nil {
			logger.Printf(logger.WARN, "[admin] server shutdown failed: %s", err)
		}
	}()
	logger.Printf(logger.INFO, "[admin] listening on %s", addr)
}

type peerSummary struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	Verified   bool   `json:"verified"`
	ArtistsCnt int    `json:"artists"`
	AlbumsCnt  int    `json:"albums"`
	TracksCnt  int    `json:"tracks"`
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	views := s.reg.Entities()
	out := make([]peerSummary, 0, len(views))
	for _, v := range views {
		out = append(out, peerSummary{
			Address:    v.Peer.Address(),
			Name:       v.Peer.Name,
			Verified:   v.Verified,
			ArtistsCnt: v.ArtistsCnt,
			AlbumsCnt:  v.AlbumsCnt,
			TracksCnt:  v.TracksCnt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if s.rescan == nil {
		http.Error(w, "rescan not configured", http.StatusServiceUnavailable)
		return
	}
	catalog, err := s.rescan()
	if err != nil {
		logger.Printf(logger.WARN, "[admin] rescan failed: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.reg.SetLocalCollection(catalog)
	writeJSON(w, http.StatusOK, map[string]int{"artists": len(catalog)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf(logger.WARN, "[admin] encoding response: %s", err)
	}
}
