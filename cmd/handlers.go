package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/amberlin/portfolio-api/models"
)

// jsonResponse returns a JSON response
func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (app *application) healthCheck(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHistoryList serves the play history, newest first.
func (app *application) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := app.database.RecentSongs(limit)
	if err != nil {
		app.logger.Error("error reading history", "err", err)
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read song history"})
		return
	}

	if records == nil {
		records = []*models.HistoryRecord{}
	}

	jsonResponse(w, http.StatusOK, records)
}

// handleHistoryRecord is the check-then-insert write the front end issues
// after a successful now-playing fetch. Duplicate checking is by song name
// only, matching what the history view keys on.
func (app *application) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	var rec models.HistoryRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	if rec.SongName == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "song_name is required"})
		return
	}

	inserted, err := app.database.RecordIfNew(&rec)
	if err != nil {
		app.logger.Error("error recording song", "err", err, "song", rec.SongName)
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to record song"})
		return
	}

	if !inserted {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "Song already recorded"})
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{"message": "Song recorded"})
}
