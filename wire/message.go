package wire

// Tag identifies the concrete payload carried by a frame.
type Tag byte

const (
	TagPing            Tag = 0xF0
	TagPong            Tag = 0xF1
	TagPayload         Tag = 0xF2
	tagReceived        Tag = 0xF3 // internal only, never produced on the wire
	TagRequestFile     Tag = 0xF4
	TagArtistsRequest  Tag = 0xF5
	TagAlbumRequest    Tag = 0xF6
	TagAlbumResponse   Tag = 0xF7
	TagArtistsResponse Tag = 0xF8
	TagPeersRequest    Tag = 0xF9
	TagPeersResponse   Tag = 0xFA
	TagOk              Tag = 0xFB
	TagDownloadRequest Tag = 0xFC
)

// Message is a decoded frame payload. Tag identifies which of the
// concrete fields below is meaningful; zero values fill the rest.
type Message struct {
	Tag Tag

	Peer            Peer         // Ping, Pong
	Text            string       // Payload
	Artist          ArtistData   // RequestFile
	Album           AlbumData    // AlbumRequest, AlbumResponse, DownloadRequest
	Artists         []ArtistData // ArtistsResponse
	Peers           []Peer       // PeersResponse
}

func Ping(p Peer) Message  { return Message{Tag: TagPing, Peer: p} }
func Pong(p Peer) Message  { return Message{Tag: TagPong, Peer: p} }
func Payload(s string) Message {
	return Message{Tag: TagPayload, Text: s}
}
func RequestFile(a ArtistData) Message {
	return Message{Tag: TagRequestFile, Artist: a}
}
func ArtistsRequest() Message { return Message{Tag: TagArtistsRequest} }
func AlbumRequest(a AlbumData) Message {
	return Message{Tag: TagAlbumRequest, Album: a}
}
func AlbumResponse(a AlbumData) Message {
	return Message{Tag: TagAlbumResponse, Album: a}
}
func ArtistsResponse(xs []ArtistData) Message {
	return Message{Tag: TagArtistsResponse, Artists: xs}
}
func PeersRequest() Message { return Message{Tag: TagPeersRequest} }
func PeersResponse(xs []Peer) Message {
	return Message{Tag: TagPeersResponse, Peers: xs}
}
func Ok() Message { return Message{Tag: TagOk} }
func DownloadRequest(a AlbumData) Message {
	return Message{Tag: TagDownloadRequest, Album: a}
}
