package admin

import (
	"net/http"

	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json"
)

// CatalogService is the JSON-RPC 2.0 counterpart of the POST /rescan
// REST endpoint, mounted at /rpc. It exists alongside the REST surface
// rather than replacing it: some admin tooling in this ecosystem
// expects a JSON-RPC envelope instead of plain REST.
type CatalogService struct {
	s *Server
}

// RescanArgs is the (empty) argument type for CatalogService.Rescan.
type RescanArgs struct{}

// RescanReply reports how many artists the rescan produced.
type RescanReply struct {
	Artists int `json:"artists"`
}

// Rescan re-walks the configured music root and replaces the local
// Collection, identically to POST /rescan.
func (c *CatalogService) Rescan(r *http.Request, args *RescanArgs, reply *RescanReply) error {
	if c.s.rescan == nil {
		return errRescanNotConfigured
	}
	catalog, err := c.s.rescan()
	if err != nil {
		return err
	}
	c.s.reg.SetLocalCollection(catalog)
	reply.Artists = len(catalog)
	return nil
}

var errRescanNotConfigured = &rpcError{"admin: rescan not configured"}

type rpcError struct{ msg string }

func (e *rpcError) Error() string { return e.msg }

// mountRPC registers the JSON-RPC 2.0 endpoint at /rpc.
func (s *Server) mountRPC() {
	rpcSrv := rpc.NewServer()
	rpcSrv.RegisterCodec(json.NewCodec(), "application/json")
	rpcSrv.RegisterService(&CatalogService{s: s}, "Catalog")
	s.router.Handle("/rpc", rpcSrv).Methods(http.MethodPost)
}
