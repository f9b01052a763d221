package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Credentials holds the confidential-client configuration for the provider.
// Loaded once at startup and injected here; handlers never read ambient state.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// missing returns the names of unset fields so errors can say which ones.
func (c Credentials) missing() []string {
	var m []string
	if c.ClientID == "" {
		m = append(m, "client_id")
	}
	if c.ClientSecret == "" {
		m = append(m, "client_secret")
	}
	if c.RedirectURI == "" {
		m = append(m, "redirect_uri")
	}
	return m
}

// Service implements the authorization-code leg of the provider's OAuth2
// flow: the redirect to the consent page and the callback that trades the
// code for a token pair.
type Service struct {
	creds  Credentials
	config oauth2.Config
	logger *slog.Logger
}

// NewService creates a Service for a confidential client. The endpoint is
// taken from configuration so tests can point it at a local server. The
// token request authenticates with HTTP Basic client_id:client_secret.
func NewService(creds Credentials, scopes []string, endpoint oauth2.Endpoint, logger *slog.Logger) *Service {
	endpoint.AuthStyle = oauth2.AuthStyleInHeader

	return &Service{
		creds: creds,
		config: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		logger: logger,
	}
}

// RedirectURI returns the redirect URI the service was built with. The
// callback handler must present the identical value to the provider or the
// exchange is rejected.
func (s *Service) RedirectURI() string {
	return s.config.RedirectURL
}

// AuthCodeURL builds the provider authorization URL with response_type=code
// and the configured scope set.
func (s *Service) AuthCodeURL() string {
	return s.config.AuthCodeURL("")
}

// HandleLogin redirects the browser to the provider's consent page.
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if missing := s.creds.missing(); len(missing) > 0 {
		s.logger.Error("cannot build authorization URL", "missing", missing)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create auth URL"})
		return
	}

	http.Redirect(w, r, s.AuthCodeURL(), http.StatusFound)
}

// HandleCallback receives the authorization code, exchanges it for a token
// pair, and hands the refresh token back to the operator. Nothing is
// persisted: the operator copies the token into configuration by hand.
func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No code provided"})
		return
	}

	if missing := s.creds.missing(); len(missing) > 0 {
		s.logger.Error("cannot exchange code", "missing", missing)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Provider credentials are not configured"})
		return
	}

	token, err := s.config.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("token exchange failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Failed to exchange code for token: %s", providerErrorText(err)),
		})
		return
	}

	// Spotify omits the refresh token when the app was already authorized.
	// Without one the whole exercise was pointless, so treat it as a failure.
	if token.RefreshToken == "" {
		s.logger.Error("provider response carried no refresh token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Provider did not return a refresh token; revoke the app's access and authorize again",
		})
		return
	}

	s.logger.Info("authorization code exchanged, refresh token issued")

	if wantsHTML(r) {
		renderTokenPage(w, token.RefreshToken)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":       "Copy the refresh token into your configuration (SPOTIFY_REFRESH_TOKEN)",
		"refresh_token": token.RefreshToken,
	})
}

// providerErrorText pulls the provider's own error description out of a
// failed token request when there is one.
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

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

var tokenPage = template.Must(template.New("token").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        code { display: block; margin-top: 1rem; padding: 0.5rem; background: #eee;
               border-radius: 4px; word-break: break-all; max-width: 32rem; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Successful</h1>
        <p>Copy this refresh token into your configuration, then close this window.</p>
        <code>{{.}}</code>
    </div>
</body>
</html>
`))

func renderTokenPage(w http.ResponseWriter, refreshToken string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if err := tokenPage.Execute(w, refreshToken); err != nil {
		// headers are out already, nothing left to do
		return
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
