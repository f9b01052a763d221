package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/amberlin/portfolio-api/config"
	"github.com/amberlin/portfolio-api/db"
	"github.com/amberlin/portfolio-api/oauth"
	"github.com/amberlin/portfolio-api/service/spotify"
)

type application struct {
	logger         *slog.Logger
	database       *db.DB
	oauthService   *oauth.Service
	spotifyService *spotify.Service
	frontendOrigin string
}

func main() {
	config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbPath := viper.GetString("db.path")
	if dir := filepath.Dir(dbPath); dir != "." && dir != "/" {
		os.MkdirAll(dir, 0o755)
	}

	database, err := db.New(dbPath)
	if err != nil {
		logger.Error("error connecting to database", "err", err)
		os.Exit(1)
	}

	if err := database.Initialize(); err != nil {
		logger.Error("error initializing database", "err", err)
		os.Exit(1)
	}

	oauthService := oauth.NewService(
		oauth.Credentials{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
			RedirectURI:  viper.GetString("callback.spotify"),
		},
		viper.GetStringSlice("spotify.scopes"),
		oauth2.Endpoint{
			AuthURL:  viper.GetString("spotify.auth_url"),
			TokenURL: viper.GetString("spotify.token_url"),
		},
		logger,
	)

	spotifyService := spotify.NewService(
		database,
		spotify.Credentials{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
			RefreshToken: viper.GetString("spotify.refresh_token"),
		},
		viper.GetString("spotify.token_url"),
		viper.GetString("spotify.api_url"),
		logger,
	)

	app := &application{
		logger:         logger,
		database:       database,
		oauthService:   oauthService,
		spotifyService: spotifyService,
		frontendOrigin: viper.GetString("frontend.origin"),
	}

	if viper.GetBool("tracker.enabled") {
		trackerInterval := time.Duration(viper.GetInt("tracker.interval")) * time.Second
		go spotifyService.StartHistoryTracker(trackerInterval)
	}

	serverAddr := fmt.Sprintf("%s:%s", viper.GetString("server.host"), viper.GetString("server.port"))
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      app.routes(),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info(fmt.Sprintf("starting server at: http://%s", serverAddr))

	err = server.ListenAndServe()
	logger.Error(err.Error())
	os.Exit(1)
}
