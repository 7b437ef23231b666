// Package auth keeps a valid Spotify bearer token available to the poller,
// refreshing through the persisted OAuth refresh token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrAuthRequired signals that refresh has failed repeatedly (or no token
// exists) and the user must re-authenticate. The poller pauses on it instead
// of retrying forever.
var ErrAuthRequired = errors.New("authentication required")

// maxConsecutiveFailures is the number of refresh failures in a row after
// which the guard reports ErrAuthRequired.
const maxConsecutiveFailures = 2

// Scopes cover playback state, recently played and library modification
// (auto-unlike).
var Scopes = []string{
	"user-read-playback-state",
	"user-read-recently-played",
	"user-library-modify",
}

// Endpoint is the Spotify accounts service.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// Config builds the OAuth config used by both the authenticate command and
// the guard.
func Config(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     Endpoint,
	}
}

// TokenSaver persists rotated tokens.
type TokenSaver interface {
	SaveToken(tok *oauth2.Token) error
}

// Guard hands out valid access tokens, refreshing on expiry. Rotated tokens
// are persisted through the saver so a restart does not lose the session.
type Guard struct {
	mu       sync.Mutex
	cfg      *oauth2.Config
	tok      *oauth2.Token
	saver    TokenSaver
	failures int
}

func NewGuard(cfg *oauth2.Config, tok *oauth2.Token, saver TokenSaver) *Guard {
	return &Guard{cfg: cfg, tok: tok, saver: saver}
}

// Token returns a valid bearer token, refreshing if the cached one expired.
// After maxConsecutiveFailures failed refreshes it returns ErrAuthRequired.
func (g *Guard) Token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tok == nil {
		return "", ErrAuthRequired
	}
	if g.tok.Valid() {
		g.failures = 0
		return g.tok.AccessToken, nil
	}

	fresh, err := g.cfg.TokenSource(ctx, g.tok).Token()
	if err != nil {
		g.failures++
		if g.failures >= maxConsecutiveFailures {
			return "", fmt.Errorf("%w: %v", ErrAuthRequired, err)
		}
		return "", fmt.Errorf("refreshing token: %w", err)
	}
	g.failures = 0

	if g.saver != nil && fresh.AccessToken != g.tok.AccessToken {
		// Memory stays authoritative when the save fails.
		g.saver.SaveToken(fresh)
	}
	g.tok = fresh
	return fresh.AccessToken, nil
}

// EnsureValidToken is called before each poll tick.
func (g *Guard) EnsureValidToken(ctx context.Context) error {
	_, err := g.Token(ctx)
	return err
}

// Invalidate forces the next Token call to refresh. Used when the upstream
// rejects a token the guard still considered valid.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tok != nil {
		g.tok.Expiry = time.Now().Add(-time.Minute)
	}
}
