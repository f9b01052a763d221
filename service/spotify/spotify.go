package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/amberlin/portfolio-api/db"
	"github.com/amberlin/portfolio-api/models"
)

const (
	// recently-played is an idempotent read, so a short bounded retry on
	// transient failures is safe. The token grant stays single-shot.
	maxFetchAttempts = 3
	retryBaseDelay   = 250 * time.Millisecond
)

// Credentials holds everything needed to act on the operator's behalf: the
// app credentials plus the long-lived refresh token obtained via /api/callback.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Credentials) missing() []string {
	var m []string
	if c.ClientID == "" {
		m = append(m, "client_id")
	}
	if c.ClientSecret == "" {
		m = append(m, "client_secret")
	}
	if c.RefreshToken == "" {
		m = append(m, "refresh_token")
	}
	return m
}

// Service fetches the operator's recently played track from the provider.
// Every call is request-scoped: a fresh access token is minted from the
// refresh token, used once, and dropped.
type Service struct {
	DB       *db.DB
	creds    Credentials
	tokenURL string
	apiURL   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewService(database *db.DB, creds Credentials, tokenURL, apiURL string, logger *slog.Logger) *Service {
	return &Service{
		DB:       database,
		creds:    creds,
		tokenURL: tokenURL,
		apiURL:   strings.TrimSuffix(apiURL, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		// courtesy pacing of outbound provider calls; bursts of client polls
		// still map 1:1 onto upstream calls, just not all at once
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:  logger,
	}
}

// accessToken trades the stored refresh token for a short-lived access token.
// The token is never cached or persisted.
func (s *Service) accessToken(ctx context.Context) (string, error) {
	cfg := oauth2.Config{
		ClientID:     s.creds.ClientID,
		ClientSecret: s.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)

	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.creds.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %s", providerErrorText(err))
	}

	return token.AccessToken, nil
}

// Provider response shape for /me/player/recently-played.
type recentlyPlayedResponse struct {
	Items []playedItem `json:"items"`
}

type playedItem struct {
	Track struct {
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		DurationMs int64 `json:"duration_ms"`
		Album      struct {
			Images []struct {
				URL    string `json:"url"`
				Height int    `json:"height"`
				Width  int    `json:"width"`
			} `json:"images"`
		} `json:"album"`
	} `json:"track"`
	PlayedAt string `json:"played_at"`
}

// recentlyPlayed calls the provider's recently-played endpoint with a Bearer
// token, retrying transport errors and 5xx responses a bounded number of
// times. 4xx responses are surfaced immediately.
func (s *Service) recentlyPlayed(ctx context.Context, accessToken string, limit int) (*recentlyPlayedResponse, error) {
	url := fmt.Sprintf("%s/me/player/recently-played?limit=%d", s.apiURL, limit)

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("spotify API error (%d): %s", resp.StatusCode, body)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("spotify API error (%d): %s", resp.StatusCode, body)
		}

		var parsed recentlyPlayedResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	}

	return nil, lastErr
}

// fetchRecentItem runs the two-step flow: refresh grant, then a limit=1
// recently-played fetch. Returns nil when the provider reports no items.
func (s *Service) fetchRecentItem(ctx context.Context) (*playedItem, error) {
	if missing := s.creds.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.recentlyPlayed(ctx, token, 1)
	if err != nil {
		return nil, err
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}

	return &resp.Items[0], nil
}

// FetchRecentTrack returns the most recently played track in normalized form,
// or nil when the provider reports no recent items.
func (s *Service) FetchRecentTrack(ctx context.Context) (*models.Track, error) {
	item, err := s.fetchRecentItem(ctx)
	if err != nil || item == nil {
		return nil, err
	}
	return normalizeTrack(*item), nil
}

func normalizeTrack(item playedItem) *models.Track {
	names := make([]string, 0, len(item.Track.Artists))
	for _, a := range item.Track.Artists {
		names = append(names, a.Name)
	}

	track := &models.Track{
		Name:       item.Track.Name,
		Artists:    strings.Join(names, ", "),
		PlayedAt:   item.PlayedAt,
		DurationMs: item.Track.DurationMs,
	}

	if len(item.Track.Album.Images) > 0 {
		track.AlbumCover = item.Track.Album.Images[0].URL
	}

	return track
}

// historyRecord shapes a provider item the way the front end writes history
// rows: song_artists carries the first artist only.
func historyRecord(item playedItem) *models.HistoryRecord {
	rec := &models.HistoryRecord{
		SongName:  item.Track.Name,
		CreatedAt: item.PlayedAt,
	}
	if len(item.Track.Artists) > 0 {
		rec.SongArtists = item.Track.Artists[0].Name
	}
	if len(item.Track.Album.Images) > 0 {
		rec.AlbumCover = item.Track.Album.Images[0].URL
	}
	return rec
}

// HandleNowPlaying serves the normalized most-recently-played track. Missing
// configuration fails before any outbound call; upstream failures surface as
// 500 with the provider's error text.
func (s *Service) HandleNowPlaying(w http.ResponseWriter, r *http.Request) {
	if missing := s.creds.missing(); len(missing) > 0 {
		s.logger.Error("now-playing request with incomplete configuration", "missing", missing)
		jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Missing configuration: %s", strings.Join(missing, ", ")),
		})
		return
	}

	track, err := s.FetchRecentTrack(r.Context())
	if err != nil {
		s.logger.Error("error fetching now playing", "err", err)
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if track == nil {
		jsonResponse(w, http.StatusOK, map[string]any{
			"items":   []any{},
			"message": "No recently played tracks found",
		})
		return
	}

	jsonResponse(w, http.StatusOK, track)
}

func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// providerErrorText pulls the provider's error description out of a failed
// token request when there is one.
func providerErrorText(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
		return strings.TrimSpace(string(retrieveErr.Body))
	}
	return err.Error()
}
