package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration with viper
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it. Using default values and environment variables.")
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("spotify.auth_url", "https://accounts.spotify.com/authorize")
	viper.SetDefault("spotify.token_url", "https://accounts.spotify.com/api/token")
	viper.SetDefault("spotify.api_url", "https://api.spotify.com/v1")
	viper.SetDefault("spotify.scopes", "user-read-recently-played user-read-playback-state user-read-playback-position")
	viper.SetDefault("frontend.origin", "*")
	viper.SetDefault("db.path", "./data/history.db")
	viper.SetDefault("tracker.enabled", false)
	viper.SetDefault("tracker.interval", 60)

	viper.AutomaticEnv()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error reading config file: %v", err)
		}
		log.Println("Config file not found, using default values and environment variables")
	} else {
		log.Println("Using config file:", viper.ConfigFileUsed())
	}

	// The callback must match the redirect URI registered with the provider.
	// When deployed behind a public URL, derive it from there; otherwise fall
	// back to the local default.
	if !viper.IsSet("callback.spotify") {
		if publicURL := viper.GetString("server.public_url"); publicURL != "" {
			viper.SetDefault("callback.spotify", strings.TrimSuffix(publicURL, "/")+"/api/callback")
		} else {
			viper.SetDefault("callback.spotify", "http://localhost:8080/api/callback")
		}
	}

	// Missing provider credentials are not fatal here: handlers validate and
	// fail per-request so the rest of the site keeps serving.
	for _, v := range []string{"spotify.client_id", "spotify.client_secret"} {
		if !viper.IsSet(v) {
			log.Printf("Warning: %s is not set, Spotify endpoints will fail until it is configured", v)
		}
	}
}
