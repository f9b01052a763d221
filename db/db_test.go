package db

import (
	"testing"

	"github.com/amberlin/portfolio-api/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	return database
}

func testRecord(song, playedAt string) *models.HistoryRecord {
	return &models.HistoryRecord{
		SongName:    song,
		CreatedAt:   playedAt,
		SongArtists: "Test Artist",
		AlbumCover:  "https://images.example/cover.jpg",
	}
}

func TestRecordIfNew(t *testing.T) {
	database := setupTestDB(t)

	inserted, err := database.RecordIfNew(testRecord("Song A", "2024-01-15T10:00:00Z"))
	if err != nil {
		t.Fatalf("RecordIfNew failed: %v", err)
	}
	if !inserted {
		t.Error("Expected first record to be inserted")
	}

	// Same song name again, even with a different played-at, is a duplicate.
	inserted, err = database.RecordIfNew(testRecord("Song A", "2024-01-16T09:00:00Z"))
	if err != nil {
		t.Fatalf("RecordIfNew failed: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate song name to be skipped")
	}

	records, err := database.RecentSongs(10)
	if err != nil {
		t.Fatalf("RecentSongs failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}
}

// The check and insert in RecordIfNew are separate statements: two callers
// that both pass the check can both insert. This pins down that the storage
// layer does not stop same-name rows with different played-at values, which
// is exactly the window the race lives in.
func TestCheckThenInsertRaceWindow(t *testing.T) {
	database := setupTestDB(t)

	recA := testRecord("Song A", "2024-01-15T10:00:00Z")
	recB := testRecord("Song A", "2024-01-15T10:00:01Z")

	// Both callers observe "absent".
	for _, rec := range []*models.HistoryRecord{recA, recB} {
		exists, err := database.HasSong(rec.SongName)
		if err != nil {
			t.Fatalf("HasSong failed: %v", err)
		}
		if exists {
			t.Fatal("Expected song to be absent before either insert")
		}
	}

	// Both then insert.
	if _, err := database.Insert(recA); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := database.Insert(recB); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	records, err := database.RecentSongs(10)
	if err != nil {
		t.Fatalf("RecentSongs failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 rows with the same song name, got %d", len(records))
	}
}

func TestInsertIgnore(t *testing.T) {
	database := setupTestDB(t)

	inserted, err := database.InsertIgnore(testRecord("Song A", "2024-01-15T10:00:00Z"))
	if err != nil {
		t.Fatalf("InsertIgnore failed: %v", err)
	}
	if !inserted {
		t.Error("Expected first insert to happen")
	}

	// Same (song_name, created_at) pair is ignored.
	inserted, err = database.InsertIgnore(testRecord("Song A", "2024-01-15T10:00:00Z"))
	if err != nil {
		t.Fatalf("InsertIgnore failed: %v", err)
	}
	if inserted {
		t.Error("Expected identical play to be ignored")
	}

	// Same song played again later is a new row.
	inserted, err = database.InsertIgnore(testRecord("Song A", "2024-01-15T11:00:00Z"))
	if err != nil {
		t.Fatalf("InsertIgnore failed: %v", err)
	}
	if !inserted {
		t.Error("Expected replay at a later time to be inserted")
	}

	records, err := database.RecentSongs(10)
	if err != nil {
		t.Fatalf("RecentSongs failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}

func TestRecentSongsOrderAndLimit(t *testing.T) {
	database := setupTestDB(t)

	plays := []struct {
		song     string
		playedAt string
	}{
		{"Song A", "2024-01-15T10:00:00Z"},
		{"Song C", "2024-01-15T12:00:00Z"},
		{"Song B", "2024-01-15T11:00:00Z"},
	}
	for _, p := range plays {
		if _, err := database.Insert(testRecord(p.song, p.playedAt)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := database.RecentSongs(2)
	if err != nil {
		t.Fatalf("RecentSongs failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].SongName != "Song C" || records[1].SongName != "Song B" {
		t.Errorf("Expected newest-first order [Song C, Song B], got [%s, %s]",
			records[0].SongName, records[1].SongName)
	}
}
