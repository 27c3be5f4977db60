package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rlkelly/p2p/registry"
)

// tuiInterval is how often the text interface redraws the registry
// snapshot; it is set to the same value as the scheduler's default
// probe period (scheduler.DefaultInterval) for a natural refresh rate.
const tuiInterval = 3 * time.Second

// runTUI is the optional collaborator enabled by -text_interface: a
// plain-text dump of the registry's current snapshot, redrawn on a
// fixed interval until ctx is cancelled.
func runTUI(ctx context.Context, reg *registry.Registry) {
	ticker := time.NewTicker(tuiInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printRegistry(reg)
		}
	}
}

func printRegistry(reg *registry.Registry) {
	views := reg.Entities()
	fmt.Printf("--- known peers (%d) ---\n", len(views))
	for _, v := range views {
		fmt.Printf("  %-22s %-16q verified=%-5v artists=%d albums=%d tracks=%d\n",
			v.Peer.Address(), v.Peer.Name, v.Verified, v.ArtistsCnt, v.AlbumsCnt, v.TracksCnt)
	}
}
