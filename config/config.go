// Package config parses musicd's CLI surface: listen port, snapshot
// file, music root, display name, initial friends, and the optional
// TUI/admin-API/cache-db toggles.
package config

import (
	"flag"
	"fmt"
	"strings"
)

// Config is the parsed result of one CLI invocation.
type Config struct {
	Port           int
	SnapshotFile   string
	PeersFile      string
	MusicDir       string
	Name           string
	Friends        []string
	TextInterface  bool
	AdminAddr      string
	CacheDB        string
	LogLevel       int
}

// Parse parses args (excluding argv[0]) into a Config, applying
// musicd's standard defaults.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("musicd", flag.ContinueOnError)

	cfg := &Config{}
	var friends string

	fs.IntVar(&cfg.Port, "port", 8081, "listen port")
	fs.StringVar(&cfg.SnapshotFile, "config", "", "path to peer snapshot file")
	fs.StringVar(&cfg.PeersFile, "peers", "", "path to peers config (unused by core)")
	fs.StringVar(&cfg.MusicDir, "music", "", "local music directory root")
	fs.StringVar(&cfg.Name, "name", "", "self-declared display name")
	fs.StringVar(&friends, "friends", "", "comma-separated host:port initial peers")
	fs.BoolVar(&cfg.TextInterface, "text_interface", false, "enable TUI collaborator")
	fs.StringVar(&cfg.AdminAddr, "admin_addr", "", "listen address for the admin API (empty disables it)")
	fs.StringVar(&cfg.CacheDB, "cache_db", "", "path to the SQLite catalog cache file")
	fs.IntVar(&cfg.LogLevel, "L", 2, "log level (0=ERROR .. 4=DBG)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if rest := fs.Args(); len(rest) > 0 {
		port, err := parsePositionalPort(rest[0])
		if err != nil {
			return nil, fmt.Errorf("config: invalid positional port %q: %w", rest[0], err)
		}
		cfg.Port = port
	}

	cfg.Friends = splitFriends(friends)
	return cfg, nil
}

func parsePositionalPort(s string) (int, error) {
	var port int
	if _, err := fmt.Sscanf(s, "%d", &port); err != nil {
		return 0, err
	}
	return port, nil
}

func splitFriends(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListenAddr is the local service address: "127.0.0.1:<port>".
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}
