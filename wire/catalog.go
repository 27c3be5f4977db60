package wire

// TrackData is one track. Artist/Album are optional in-memory
// back-references; neither the registry nor the handler fills them in,
// and they are never present on the wire — the wire layout for
// TrackData is title/bitrate/length only.
type TrackData struct {
	Title   string
	Bitrate uint16
	Length  uint8
	Artist  *string
	Album   *string
}

// AlbumData is one album, optionally carrying its track list. Tracks
// == nil means "has_tracks=0" on the wire: no track list known or
// requested. A non-nil (possibly empty) slice means "has_tracks=1".
type AlbumData struct {
	Artist     *string
	AlbumTitle string
	TrackCount uint8
	Tracks     []TrackData
}

// HasTracks reports whether this AlbumData carries a track list.
func (a AlbumData) HasTracks() bool { return a.Tracks != nil }

// ArtistData is one artist and its albums. Albums == nil is treated
// identically to an empty slice by registry append logic; on the wire
// both encode as album_count=0.
type ArtistData struct {
	Artist string
	Albums []AlbumData
}
