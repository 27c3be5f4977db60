// Command musicd runs one node of the peer-to-peer music-catalog
// gossip mesh: it listens for inbound sessions, dials configured
// friends, scans a local music directory into its Collection, and
// periodically probes and gossips with the peers it has learned.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bfix/gospel/logger"

	"github.com/rlkelly/p2p/admin"
	"github.com/rlkelly/p2p/catalog"
	"github.com/rlkelly/p2p/config"
	"github.com/rlkelly/p2p/registry"
	"github.com/rlkelly/p2p/scheduler"
	"github.com/rlkelly/p2p/supervisor"
	"github.com/rlkelly/p2p/wire"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Println("musicd: " + err.Error())
		os.Exit(1)
	}
	logger.SetLogLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local, err := wire.NewPeer(cfg.ListenAddr(), cfg.Name, true)
	if err != nil {
		fmt.Println("musicd: " + err.Error())
		os.Exit(1)
	}

	fmt.Println("======================================================================")
	fmt.Println("musicd: peer-to-peer music-catalog gossip daemon")
	fmt.Printf("    Identity '%s' at %s\n", local.Name, local.Address())
	fmt.Println("======================================================================")

	reg := registry.New(local)

	if cfg.SnapshotFile != "" {
		peers, err := registry.LoadSnapshot(cfg.SnapshotFile)
		if err != nil {
			logger.Printf(logger.WARN, "[musicd] loading snapshot %s: %s", cfg.SnapshotFile, err)
		} else {
			reg.Seed(peers)
		}
	}

	var cache *catalog.Cache
	if cfg.CacheDB != "" {
		cache, err = catalog.OpenCache(cfg.CacheDB)
		if err != nil {
			logger.Printf(logger.WARN, "[musicd] opening catalog cache: %s", err)
		} else {
			defer cache.Close()
		}
	}

	rescan := func() ([]wire.ArtistData, error) {
		if cfg.MusicDir == "" {
			return nil, fmt.Errorf("no music directory configured")
		}
		return catalog.Scan(cfg.MusicDir, cache)
	}
	if cfg.MusicDir != "" {
		artists, err := rescan()
		if err != nil {
			logger.Printf(logger.WARN, "[musicd] initial catalog scan: %s", err)
		} else {
			reg.SetLocalCollection(artists)
			logger.Printf(logger.INFO, "[musicd] scanned %d artists from %s", len(artists), cfg.MusicDir)
		}
	}

	sv := supervisor.New(reg)
	if err := sv.ListenAndServe(ctx, cfg.ListenAddr()); err != nil {
		fmt.Println("musicd: " + err.Error())
		os.Exit(1)
	}
	sv.DialInitialPeers(cfg.Friends)
	sv.RunScheduler(ctx, scheduler.DefaultInterval)

	if cfg.AdminAddr != "" {
		admin.New(reg, rescan).Start(ctx, cfg.AdminAddr)
	}

	if cfg.TextInterface {
		go runTUI(ctx, reg)
	}

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

loop:
	for {
		sig := <-sigCh
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Printf(logger.INFO, "[musicd] terminating on signal %s", sig)
			break loop
		case syscall.SIGHUP:
			logger.Println(logger.INFO, "[musicd] SIGHUP (ignored)")
		}
	}

	cancel()
	sv.Wait()

	if cfg.SnapshotFile != "" {
		if err := registry.SaveSnapshot(cfg.SnapshotFile, reg.Snapshot()); err != nil {
			logger.Printf(logger.WARN, "[musicd] saving snapshot: %s", err)
		}
	}
	logger.Println(logger.INFO, "[musicd] bye.")
	logger.Flush()
}
