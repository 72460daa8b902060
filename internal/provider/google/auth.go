// Package google implements provider.Remote against the Google Calendar
// REST API, driven from cmd/caldir-provider-google as a JSON-over-stdio
// subprocess.
package google

import (
	"context"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/caldirhq/caldir/internal/caldirerr"
)

// credentialsPathEnv names the OAuth client credentials JSON downloaded
// from Google Cloud Console (the app registration caldir itself runs
// under, shared across every Google calendar caldir talks to).
// tokenPathEnv names where the per-account token this provider obtains
// during auth_submit gets persisted. Both are environment variables
// rather than remote_config fields because auth_init and auth_submit run
// before a calendar's config.toml exists — caldir sets them on the
// subprocess environment for the duration of the auth flow.
const (
	credentialsPathEnv = "CALDIR_GOOGLE_CREDENTIALS_PATH"
	tokenPathEnv       = "CALDIR_GOOGLE_TOKEN_PATH"

	// redirectURL is fixed rather than randomly chosen because auth_init
	// and auth_submit are two independent subprocess invocations with no
	// shared memory: whatever local callback server caldir runs to catch
	// the redirect must already be listening on this address before
	// auth_init's authorization_url is opened.
	redirectURL = "http://127.0.0.1:8722/oauth/callback"
)

func oauthConfig() (*oauth2.Config, error) {
	path := os.Getenv(credentialsPathEnv)
	if path == "" {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, credentialsPathEnv+" is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindAuthRequired, "read Google OAuth credentials", err)
	}
	cfg, err := oauthgoogle.ConfigFromJSON(data, calendar.CalendarScope)
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindAuthRequired, "parse Google OAuth credentials", err)
	}
	cfg.RedirectURL = redirectURL
	return cfg, nil
}

func tokenStoreFromEnv() (fileTokenStore, error) {
	path := os.Getenv(tokenPathEnv)
	if path == "" {
		return fileTokenStore{}, caldirerr.New(caldirerr.KindAuthRequired, tokenPathEnv+" is not set")
	}
	return fileTokenStore{Path: path}, nil
}

func tokenStoreFromConfig(remoteConfig map[string]string) (fileTokenStore, error) {
	path := remoteConfig["token_path"]
	if path == "" {
		return fileTokenStore{}, caldirerr.New(caldirerr.KindAuthRequired, "remote config missing token_path")
	}
	return fileTokenStore{Path: path}, nil
}

// httpClient loads the stored token from store and wraps it in a client
// that persists any refreshed token back to the same store.
func httpClient(ctx context.Context, store fileTokenStore) (*http.Client, error) {
	cfg, err := oauthConfig()
	if err != nil {
		return nil, err
	}
	token, err := store.LoadToken()
	if err != nil {
		return nil, caldirerr.Wrap(caldirerr.KindAuthRequired, "load stored token", err)
	}
	if token == nil {
		return nil, caldirerr.New(caldirerr.KindAuthRequired, "no stored Google token; run auth_init/auth_submit first")
	}

	source := &autoSaveTokenSource{
		source:    oauth2.ReuseTokenSource(token, cfg.TokenSource(ctx, token)),
		store:     store,
		lastToken: token,
	}
	return oauth2.NewClient(ctx, source), nil
}
