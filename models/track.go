package models

// Track is the normalized shape of the most recently played track, as served
// to the front end.
type Track struct {
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	PlayedAt   string `json:"played_at"`
	DurationMs int64  `json:"duration_ms"`
	AlbumCover string `json:"album_cover,omitempty"`
}

// HistoryRecord is one row of the play-history table. CreatedAt carries the
// provider's played-at timestamp, not the insertion time.
type HistoryRecord struct {
	ID          int64  `json:"id,omitempty"`
	SongName    string `json:"song_name"`
	CreatedAt   string `json:"created_at"`
	SongArtists string `json:"song_artists"`
	AlbumCover  string `json:"album_cover"`
}
