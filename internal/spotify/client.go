package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// requestTimeout is the hard ceiling per upstream call, independent of the
// retry policy's backoff.
const requestTimeout = 10 * time.Second

// TokenProvider is the credential collaborator: usually *auth.Guard.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// PlaybackSnapshot is one poll's view of the player. Ephemeral, never
// persisted.
type PlaybackSnapshot struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	ProgressMs int64
	DurationMs int64
	IsPlaying  bool
	DeviceID   string
	DeviceName string
	DeviceType string
	Timestamp  time.Time
}

// Client talks to the Spotify Web API. All calls are rate limited and go
// through the retry wrapper.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenProvider
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewClient(tokens TokenProvider, log zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: defaultBaseURL,
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		log:     log,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

type playbackResponse struct {
	IsPlaying  bool  `json:"is_playing"`
	ProgressMs int64 `json:"progress_ms"`
	Timestamp  int64 `json:"timestamp"`
	Device     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"device"`
	Item struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DurationMs int64  `json:"duration_ms"`
		Artists    []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"item"`
}

// CurrentPlayback fetches the player state. A 204 or an empty item means
// nothing is playing and yields (nil, nil).
func (c *Client) CurrentPlayback(ctx context.Context) (*PlaybackSnapshot, error) {
	var snap *PlaybackSnapshot
	err := c.withRetry(ctx, "current playback", func() error {
		body, err := c.get(ctx, "/me/player")
		if err != nil {
			return err
		}
		if body == nil {
			snap = nil
			return nil
		}
		var resp playbackResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return &Error{Kind: KindFatal, Err: fmt.Errorf("decoding playback: %w", err)}
		}
		if resp.Item.ID == "" {
			snap = nil
			return nil
		}
		names := make([]string, 0, len(resp.Item.Artists))
		for _, a := range resp.Item.Artists {
			names = append(names, a.Name)
		}
		var artistID string
		if len(resp.Item.Artists) > 0 {
			artistID = resp.Item.Artists[0].ID
		}
		ts := time.Now()
		if resp.Timestamp > 0 {
			ts = time.UnixMilli(resp.Timestamp)
		}
		snap = &PlaybackSnapshot{
			TrackID:    resp.Item.ID,
			TrackName:  resp.Item.Name,
			ArtistID:   artistID,
			ArtistName: strings.Join(names, ", "),
			ProgressMs: resp.ProgressMs,
			DurationMs: resp.Item.DurationMs,
			IsPlaying:  resp.IsPlaying,
			DeviceID:   resp.Device.ID,
			DeviceName: resp.Device.Name,
			DeviceType: resp.Device.Type,
			Timestamp:  ts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// RecentlyPlayed returns the ids of recently played tracks, newest first.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	var ids []string
	err := c.withRetry(ctx, "recently played", func() error {
		body, err := c.get(ctx, fmt.Sprintf("/me/player/recently-played?limit=%d", limit))
		if err != nil {
			return err
		}
		if body == nil {
			return nil
		}
		var resp struct {
			Items []struct {
				Track struct {
					ID string `json:"id"`
				} `json:"track"`
			} `json:"items"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return &Error{Kind: KindFatal, Err: fmt.Errorf("decoding recently played: %w", err)}
		}
		ids = ids[:0]
		for _, item := range resp.Items {
			ids = append(ids, item.Track.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ArtistGenres fetches the genre list for an artist.
func (c *Client) ArtistGenres(ctx context.Context, artistID string) ([]string, error) {
	var genres []string
	err := c.withRetry(ctx, "artist genres", func() error {
		body, err := c.get(ctx, "/artists/"+artistID)
		if err != nil {
			return err
		}
		if body == nil {
			return nil
		}
		var resp struct {
			Genres []string `json:"genres"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return &Error{Kind: KindFatal, Err: fmt.Errorf("decoding artist: %w", err)}
		}
		genres = resp.Genres
		return nil
	})
	if err != nil {
		return nil, err
	}
	return genres, nil
}

// RemoveSavedTrack unlikes a track in the user's library.
func (c *Client) RemoveSavedTrack(ctx context.Context, trackID string) error {
	return c.withRetry(ctx, "remove saved track", func() error {
		_, err := c.request(ctx, http.MethodDelete, "/me/tracks?ids="+trackID)
		return err
	})
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path)
}

// request performs one classified HTTP call. A nil body with nil error means
// 204 No Content.
func (c *Client) request(ctx context.Context, method, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, &Error{Kind: KindFatal, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Err: err}
		}
		if len(body) == 0 {
			return nil, nil
		}
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &Error{Kind: KindUnauthorized, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Kind:       KindRateLimited,
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode}
	default:
		return nil, &Error{Kind: KindFatal, Status: resp.StatusCode}
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
