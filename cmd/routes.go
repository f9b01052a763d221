package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", app.healthCheck)

	// OAuth routes
	mux.HandleFunc("GET /api/spotify", app.oauthService.HandleLogin)
	mux.HandleFunc("GET /api/callback", app.oauthService.HandleCallback)

	// API routes
	mux.HandleFunc("GET /api/now-playing", app.spotifyService.HandleNowPlaying)
	mux.HandleFunc("GET /api/history", app.handleHistoryList)
	mux.HandleFunc("POST /api/history", app.handleHistoryRecord)

	standard := alice.New(app.recoverPanic, app.logRequest, app.corsHeaders)
	return standard.Then(mux)
}
