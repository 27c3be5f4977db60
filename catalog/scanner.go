package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bfix/gospel/logger"
	"github.com/jlubawy/go-id3v2/id3v230"

	"github.com/rlkelly/p2p/wire"
)

// artistAccumulator collects one ArtistData per artist directory from
// concurrent scanArtist goroutines. Unlike a plain map guarded by a
// mutex held across the whole scan, add only locks for the append
// itself, so the artist goroutines never contend while they're doing
// the expensive part (reading tags off disk).
type artistAccumulator struct {
	mu      sync.Mutex
	artists []wire.ArtistData
}

func (a *artistAccumulator) add(data wire.ArtistData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.artists = append(a.artists, data)
}

// Scan walks root, assumed laid out root/<artist>/<album>/<track>.mp3,
// and returns the resulting catalog. cache may be nil, in which case
// every file is re-tagged. A malformed or unreadable track is logged
// and skipped rather than failing the whole walk.
func Scan(root string, cache *Cache) ([]wire.ArtistData, error) {
	if err := requireDir(root); err != nil {
		return nil, err
	}
	artistDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	acc := &artistAccumulator{}
	var wg sync.WaitGroup

	for _, ad := range artistDirs {
		if !ad.IsDir() {
			continue
		}
		ad := ad
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := ad.Name()
			albums := scanArtist(filepath.Join(root, name), cache)
			if len(albums) == 0 {
				return
			}
			acc.add(wire.ArtistData{Artist: name, Albums: albums})
		}()
	}
	wg.Wait()

	return acc.artists, nil
}

// requireDir makes sure path exists as a directory, creating it if
// it's simply missing.
func requireDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.Mkdir(path, 0770)
		}
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}
	return nil
}

func scanArtist(dir string, cache *Cache) []wire.AlbumData {
	albumDirs, err := os.ReadDir(dir)
	if err != nil {
		logger.Printf(logger.WARN, "[catalog] reading artist dir %s: %s", dir, err)
		return nil
	}
	var albums []wire.AlbumData
	for _, ald := range albumDirs {
		if !ald.IsDir() {
			continue
		}
		albumDir := filepath.Join(dir, ald.Name())
		tracks := scanAlbum(albumDir, cache)
		if len(tracks) == 0 {
			continue
		}
		albums = append(albums, wire.AlbumData{
			AlbumTitle: ald.Name(),
			TrackCount: uint8(len(tracks)),
			Tracks:     tracks,
		})
	}
	return albums
}

func scanAlbum(dir string, cache *Cache) []wire.TrackData {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Printf(logger.WARN, "[catalog] reading album dir %s: %s", dir, err)
		return nil
	}
	var tracks []wire.TrackData
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, ok := scanTrack(path, cache)
		if !ok {
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func scanTrack(path string, cache *Cache) (wire.TrackData, bool) {
	info, err := os.Stat(path)
	if err != nil {
		logger.Printf(logger.WARN, "[catalog] stat %s: %s", path, err)
		return wire.TrackData{}, false
	}
	mtime := info.ModTime().Unix()

	if cache != nil {
		if r, ok := cache.lookup(path, mtime); ok {
			return wire.TrackData{Title: r.title, Bitrate: uint16(r.bitrate), Length: uint8(r.length)}, true
		}
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Printf(logger.WARN, "[catalog] open %s: %s", path, err)
		return wire.TrackData{}, false
	}
	defer f.Close()

	tag, err := id3v230.Decode(f)
	if err != nil {
		logger.Printf(logger.WARN, "[catalog] decoding ID3 tag for %s: %s", path, err)
		return wire.TrackData{}, false
	}
	frames := tag.Frames()

	title := frameText(frames["TIT2"])
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	length := frameUint8(frames["TLEN"])

	if cache != nil {
		album := filepath.Base(filepath.Dir(path))
		artist := filepath.Base(filepath.Dir(filepath.Dir(path)))
		cache.store(path, row{artist: artist, album: album, title: title, length: int64(length), mtime: mtime})
	}
	return wire.TrackData{Title: title, Length: length}, true
}

// frameText strips the ID3v2 text-frame encoding byte and trailing
// NULs, returning plain text. Frames absent or empty yield "".
func frameText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// first byte is the text-encoding marker (0 = ISO-8859-1, 1 = UTF-16).
	return strings.Trim(string(b[1:]), "\x00 ")
}

// frameUint8 parses a numeric text frame (e.g. TLEN, milliseconds),
// clamped to fit the wire's u8 length field; absent or unparsable
// frames fall back to zero.
func frameUint8(b []byte) uint8 {
	s := frameText(b)
	if s == "" {
		return 0
	}
	var ms int
	if _, err := fmt.Sscanf(s, "%d", &ms); err != nil || ms < 0 {
		return 0
	}
	secs := ms / 1000
	if secs > 255 {
		return 255
	}
	return uint8(secs)
}
