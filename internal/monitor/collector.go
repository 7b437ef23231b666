package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skipwatch/skipwatch/internal/auth"
	"github.com/skipwatch/skipwatch/internal/spotify"
	"github.com/skipwatch/skipwatch/internal/stats"
)

// Source is the now-playing collaborator, usually *spotify.Client.
type Source interface {
	CurrentPlayback(ctx context.Context) (*spotify.PlaybackSnapshot, error)
	RecentlyPlayed(ctx context.Context, limit int) ([]string, error)
	ArtistGenres(ctx context.Context, artistID string) ([]string, error)
	RemoveSavedTrack(ctx context.Context, trackID string) error
}

// TokenGuard is the credential collaborator.
type TokenGuard interface {
	EnsureValidToken(ctx context.Context) error
}

// SessionStore persists closed sessions.
type SessionStore interface {
	SaveSession(s stats.ListeningSession) error
}

// GenreStore caches artist genres between runs.
type GenreStore interface {
	ArtistGenres(artistID string) ([]string, bool, error)
	SaveArtistGenres(artistID, artistName string, genres []string) error
}

// Collector runs the monitoring loop: one dedicated goroutine drives the
// poll/classify/log/aggregate pipeline so no two ticks ever interleave.
type Collector struct {
	cfg          Config
	source       Source
	guard        TokenGuard
	classifier   *Classifier
	skips        *SkipLogger
	sessions     *SessionTracker
	agg          *stats.Aggregator
	sessionStore SessionStore
	genreStore   GenreStore
	log          zerolog.Logger
	now          func() time.Time

	mu           sync.Mutex
	active       bool
	authRequired bool
	stop         chan struct{}
	done         chan struct{}

	// Loop-goroutine state; never touched outside run().
	prev       *spotify.PlaybackSnapshot
	lastSeen   time.Time
	trackOrder []string
}

func NewCollector(cfg Config, source Source, guard TokenGuard, skips *SkipLogger,
	agg *stats.Aggregator, sessionStore SessionStore, genreStore GenreStore,
	log zerolog.Logger) *Collector {
	return &Collector{
		cfg:          cfg,
		source:       source,
		guard:        guard,
		classifier:   NewClassifier(cfg),
		skips:        skips,
		sessions:     NewSessionTracker(),
		agg:          agg,
		sessionStore: sessionStore,
		genreStore:   genreStore,
		log:          log,
		now:          time.Now,
	}
}

// Start launches the monitoring loop. Idempotent: a second call while active
// is a no-op returning false, never a second concurrent loop.
func (c *Collector) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return false
	}
	c.active = true
	c.authRequired = false
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
	return true
}

// Stop cancels the next scheduled tick and waits for any in-flight tick to
// complete. Safe to call when not active.
func (c *Collector) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done
}

func (c *Collector) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// AuthRequired reports whether the loop paused itself on repeated
// authentication failure.
func (c *Collector) AuthRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authRequired
}

func (c *Collector) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", c.cfg.PollInterval).Msg("playback monitoring started")
	for {
		select {
		case <-stop:
			c.closeSession(c.now())
			c.log.Info().Msg("playback monitoring stopped")
			return
		case <-ticker.C:
			if !c.tick(context.Background()) {
				c.pauseForAuth()
				return
			}
		}
	}
}

// pauseForAuth stops the loop without clearing the monitoring-paused state:
// IsActive turns false and AuthRequired true until a fresh Start.
func (c *Collector) pauseForAuth() {
	c.closeSession(c.now())
	c.mu.Lock()
	c.active = false
	c.authRequired = true
	c.mu.Unlock()
}

// tick runs one poll. It returns false only on a fatal auth condition; all
// transient failures degrade to a monitoring gap and keep the loop alive.
func (c *Collector) tick(ctx context.Context) bool {
	if err := c.guard.EnsureValidToken(ctx); err != nil {
		if errors.Is(err, auth.ErrAuthRequired) {
			c.log.Error().Err(err).Msg("authentication required, pausing monitoring")
			return false
		}
		c.log.Warn().Err(err).Msg("token not ready, skipping tick")
		c.observeGapTimeout()
		return true
	}

	snap, err := c.source.CurrentPlayback(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("playback fetch failed, treating tick as gap")
		c.observeGapTimeout()
		return true
	}

	c.process(snap)
	return true
}

func (c *Collector) process(snap *spotify.PlaybackSnapshot) {
	if snap == nil {
		c.observeGapTimeout()
		return
	}

	prev := c.prev
	outcome := c.classifier.Classify(prev, snap)
	switch outcome {
	case OutcomeIdle, OutcomeNothingPlaying:
		// Unreachable with a non-nil snapshot; nothing to do.
	case OutcomeGap:
		c.closeSession(prev.Timestamp)
		c.sessions.Observe(snap)
	case OutcomeTrackFinished:
		c.skips.RecordCompletion(prev.TrackID)
		c.agg.RecordPlay(c.event(prev, prev.DurationMs))
		c.sessions.Observe(snap)
	case OutcomeTrackSkipped:
		if c.isBackNavigation(snap.TrackID) {
			c.log.Debug().Str("track", snap.TrackName).Msg("recently played, not a forward skip")
		} else {
			c.handleSkip(prev)
		}
		c.sessions.Observe(snap)
	default:
		// Started, continued, paused, resumed, track-changed: extend the
		// session, no event.
		c.sessions.Observe(snap)
	}

	c.rememberTrack(snap.TrackID)
	c.prev = snap
	c.lastSeen = c.now()
}

func (c *Collector) handleSkip(prev *spotify.PlaybackSnapshot) {
	rec := c.skips.RecordSkip(prev.TrackID, prev.TrackName, prev.ArtistName, prev.Timestamp)
	c.sessions.MarkSkip(prev.TrackID)
	c.agg.RecordSkip(c.event(prev, prev.ProgressMs))

	if c.cfg.UnlikeThreshold > 0 && rec.SkipCount >= c.cfg.UnlikeThreshold && !rec.Unliked {
		ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
		defer cancel()
		if err := c.source.RemoveSavedTrack(ctx, prev.TrackID); err != nil {
			c.log.Warn().Err(err).Str("track", prev.TrackName).Msg("unliking track")
			return
		}
		c.skips.MarkUnliked(prev.TrackID)
		c.log.Info().Str("track", prev.TrackName).Int("skips", rec.SkipCount).Msg("track unliked")
	}
}

// requestBudget bounds the side calls a tick may make beyond the poll itself.
const requestBudget = 15 * time.Second

func (c *Collector) event(snap *spotify.PlaybackSnapshot, listenedMs int64) stats.TrackEvent {
	if listenedMs < 0 {
		listenedMs = 0
	}
	if snap.DurationMs > 0 && listenedMs > snap.DurationMs {
		listenedMs = snap.DurationMs
	}
	return stats.TrackEvent{
		TrackID:    snap.TrackID,
		TrackName:  snap.TrackName,
		ArtistID:   snap.ArtistID,
		ArtistName: snap.ArtistName,
		Genres:     c.genresFor(snap.ArtistID, snap.ArtistName),
		ListenedMs: listenedMs,
		DurationMs: snap.DurationMs,
		Timestamp:  snap.Timestamp,
		SessionID:  c.sessions.SessionID(),
	}
}

// genresFor resolves an artist's genres through the cache, fetching upstream
// on a miss. Best effort: failures yield no genres, never an error.
func (c *Collector) genresFor(artistID, artistName string) []string {
	if artistID == "" || c.genreStore == nil {
		return nil
	}
	genres, ok, err := c.genreStore.ArtistGenres(artistID)
	if err == nil && ok {
		return genres
	}
	if err != nil {
		c.log.Warn().Err(err).Str("artist", artistName).Msg("reading genre cache")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
	defer cancel()
	genres, err = c.source.ArtistGenres(ctx, artistID)
	if err != nil {
		c.log.Debug().Err(err).Str("artist", artistName).Msg("fetching artist genres")
		return nil
	}
	if err := c.genreStore.SaveArtistGenres(artistID, artistName, genres); err != nil {
		c.log.Warn().Err(err).Str("artist", artistName).Msg("caching artist genres")
	}
	return genres
}

// isBackNavigation distinguishes returning to an earlier track from a
// forward skip, using the local track-order window first and the
// recently-played feed as a fallback (a fetch failure counts as forward).
func (c *Collector) isBackNavigation(trackID string) bool {
	for _, id := range c.trackOrder {
		if id == trackID {
			return true
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestBudget)
	defer cancel()
	recent, err := c.source.RecentlyPlayed(ctx, 50)
	if err != nil {
		c.log.Debug().Err(err).Msg("fetching recently played")
		return false
	}
	for _, id := range recent {
		if id == trackID {
			return true
		}
	}
	return false
}

func (c *Collector) rememberTrack(trackID string) {
	if n := len(c.trackOrder); n > 0 && c.trackOrder[n-1] == trackID {
		return
	}
	c.trackOrder = append(c.trackOrder, trackID)
	if len(c.trackOrder) > c.cfg.TrackOrderDepth {
		c.trackOrder = c.trackOrder[1:]
	}
}

func (c *Collector) observeGapTimeout() {
	now := c.now()
	if !c.lastSeen.IsZero() && now.Sub(c.lastSeen) > c.cfg.SessionTimeout {
		c.closeSession(c.lastSeen)
		c.prev = nil
		c.lastSeen = time.Time{}
	}
}

func (c *Collector) closeSession(at time.Time) {
	s, ok := c.sessions.Close(at)
	if !ok {
		return
	}
	c.agg.RecordSession(s)
	if c.sessionStore != nil {
		if err := c.sessionStore.SaveSession(s); err != nil {
			c.log.Warn().Err(err).Str("session", s.ID).Msg("persisting session")
		}
	}
	c.log.Info().Str("session", s.ID).Int("tracks", len(s.TrackIDs)).
		Int("skipped", s.SkippedTracks).Msg("session closed")
}
