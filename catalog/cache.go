// Package catalog implements the directory scanner (A3) and its
// SQLite-backed mtime cache (A4) that together seed and refresh the
// local peer's Collection.
package catalog

import (
	"database/sql"
	"fmt"

	"github.com/bfix/gospel/logger"

	_ "github.com/mattn/go-sqlite3" // init SQLite3 driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	path    TEXT PRIMARY KEY,
	artist  TEXT NOT NULL,
	album   TEXT NOT NULL,
	title   TEXT NOT NULL,
	bitrate INTEGER NOT NULL,
	length  INTEGER NOT NULL,
	mtime   INTEGER NOT NULL
);
`

// Cache mirrors the last scan's flattened track rows in a single
// SQLite file, keyed by path, so a rescan can skip ID3 parsing for
// files whose mtime has not changed. Never consulted by the core
// gossip pipeline — purely an optimization behind Scan.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if necessary) the cache file at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening cache %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: creating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// row is one cached track.
type row struct {
	artist, album, title   string
	bitrate, length, mtime int64
}

// lookup returns the cached row for path if its mtime still matches.
func (c *Cache) lookup(path string, mtime int64) (row, bool) {
	var r row
	err := c.db.QueryRow(
		`SELECT artist, album, title, bitrate, length, mtime FROM tracks WHERE path = ?`, path,
	).Scan(&r.artist, &r.album, &r.title, &r.bitrate, &r.length, &r.mtime)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Printf(logger.WARN, "[catalog] cache lookup %s: %s", path, err)
		}
		return row{}, false
	}
	if r.mtime != mtime {
		return row{}, false
	}
	return r, true
}

// store upserts the row for path.
func (c *Cache) store(path string, r row) {
	_, err := c.db.Exec(
		`INSERT INTO tracks(path, artist, album, title, bitrate, length, mtime)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   artist=excluded.artist, album=excluded.album, title=excluded.title,
		   bitrate=excluded.bitrate, length=excluded.length, mtime=excluded.mtime`,
		path, r.artist, r.album, r.title, r.bitrate, r.length, r.mtime,
	)
	if err != nil {
		logger.Printf(logger.WARN, "[catalog] cache store %s: %s", path, err)
	}
}
