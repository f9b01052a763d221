package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/amberlin/portfolio-api/models"
)

// DB is a wrapper around sql.DB
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Initialize sets up the database tables
func (db *DB) Initialize() error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS song_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		song_name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		song_artists TEXT,
		album_cover TEXT,
		inserted_at TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	// Used by the background tracker's INSERT OR IGNORE path. The web write
	// path deliberately does not rely on it, see RecordIfNew.
	_, err = db.Exec(`
	CREATE UNIQUE INDEX IF NOT EXISTS idx_song_history_name_played
	ON song_history (song_name, created_at)`)

	return err
}

// HasSong reports whether a track with the given name is already recorded.
func (db *DB) HasSong(songName string) (bool, error) {
	var count int
	err := db.QueryRow(`
	SELECT COUNT(1) FROM song_history WHERE song_name = ?`, songName).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert stores a history record unconditionally.
func (db *DB) Insert(rec *models.HistoryRecord) (int64, error) {
	result, err := db.Exec(`
	INSERT INTO song_history (song_name, created_at, song_artists, album_cover, inserted_at)
	VALUES (?, ?, ?, ?, ?)`,
		rec.SongName, rec.CreatedAt, rec.SongArtists, rec.AlbumCover, time.Now())

	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// RecordIfNew inserts the record unless a song with the same name already
// exists. The check and the insert are two separate statements with no
// transaction around them: two concurrent callers can both see "absent" and
// both insert. That matches the contract the front end was built against.
func (db *DB) RecordIfNew(rec *models.HistoryRecord) (bool, error) {
	exists, err := db.HasSong(rec.SongName)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := db.Insert(rec); err != nil {
		return false, err
	}
	return true, nil
}

// InsertIgnore stores a record unless the (song_name, created_at) pair is
// already present. Used by the tracker, where the same provider item is seen
// on every poll until a new track plays.
func (db *DB) InsertIgnore(rec *models.HistoryRecord) (bool, error) {
	result, err := db.Exec(`
	INSERT OR IGNORE INTO song_history (song_name, created_at, song_artists, album_cover, inserted_at)
	VALUES (?, ?, ?, ?, ?)`,
		rec.SongName, rec.CreatedAt, rec.SongArtists, rec.AlbumCover, time.Now())

	if err != nil {
		return false, err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecentSongs returns history rows, most recently played first.
func (db *DB) RecentSongs(limit int) ([]*models.HistoryRecord, error) {
	rows, err := db.Query(`
    SELECT id, song_name, created_at, song_artists, album_cover
    FROM song_history
    ORDER BY created_at DESC
    LIMIT ?`, limit)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.HistoryRecord

	for rows.Next() {
		rec := &models.HistoryRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.SongName,
			&rec.CreatedAt,
			&rec.SongArtists,
			&rec.AlbumCover,
		)

		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}
