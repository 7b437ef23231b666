// Package monitor drives the poll/classify/log/aggregate pipeline.
package monitor

import (
	"time"

	"github.com/skipwatch/skipwatch/internal/spotify"
)

// Outcome is the classified listener action between two consecutive
// snapshots.
type Outcome int

const (
	// OutcomeIdle: nothing playing before or now.
	OutcomeIdle Outcome = iota
	// OutcomeStarted: playback appeared after silence.
	OutcomeStarted
	// OutcomeContinued: same track, still playing.
	OutcomeContinued
	// OutcomePaused: same track, playback stopped.
	OutcomePaused
	// OutcomeResumed: same track, playback restarted.
	OutcomeResumed
	// OutcomeNothingPlaying: playback disappeared this tick.
	OutcomeNothingPlaying
	// OutcomeGap: the interval between snapshots exceeded the session
	// timeout; the transition carries no skip information.
	OutcomeGap
	// OutcomeTrackChanged: new track, previous one too short or barely
	// sampled to judge. No event.
	OutcomeTrackChanged
	// OutcomeTrackFinished: new track, previous one completed naturally.
	OutcomeTrackFinished
	// OutcomeTrackSkipped: new track, previous one abandoned early.
	OutcomeTrackSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeStarted:
		return "started"
	case OutcomeContinued:
		return "continued"
	case OutcomePaused:
		return "paused"
	case OutcomeResumed:
		return "resumed"
	case OutcomeNothingPlaying:
		return "nothing-playing"
	case OutcomeGap:
		return "gap"
	case OutcomeTrackChanged:
		return "track-changed"
	case OutcomeTrackFinished:
		return "track-finished"
	case OutcomeTrackSkipped:
		return "track-skipped"
	default:
		return "unknown"
	}
}

// Config holds the tunables of the monitoring pipeline.
type Config struct {
	// PollInterval is the tick spacing of the poller.
	PollInterval time.Duration
	// SessionTimeout is the silence after which the session closes.
	SessionTimeout time.Duration
	// CompletionGrace: a track whose last seen progress is within this of
	// the end counts as finished.
	CompletionGrace time.Duration
	// CompletionRatio: progress past this fraction of the duration also
	// counts as finished.
	CompletionRatio float64
	// MinPlay is the minimum sampled playtime before a transition may be
	// called a skip. Tracks shorter than this are never skip-flagged.
	MinPlay time.Duration
	// TrackOrderDepth is the size of the local back-navigation window.
	TrackOrderDepth int
	// UnlikeThreshold removes a track from the library after this many
	// skips. 0 disables.
	UnlikeThreshold int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    3 * time.Second,
		SessionTimeout:  5 * time.Minute,
		CompletionGrace: 5 * time.Second,
		CompletionRatio: 0.95,
		MinPlay:         3 * time.Second,
		TrackOrderDepth: 5,
		UnlikeThreshold: 5,
	}
}

// Classifier compares consecutive playback snapshots. It is pure: no I/O, no
// clock, only its two inputs and the configuration.
type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify maps a (previous, current) snapshot pair to the listener action.
// Ambiguous transitions always resolve to a non-skip outcome.
func (c *Classifier) Classify(prev, cur *spotify.PlaybackSnapshot) Outcome {
	switch {
	case prev == nil && cur == nil:
		return OutcomeIdle
	case prev == nil:
		return OutcomeStarted
	case cur == nil:
		return OutcomeNothingPlaying
	}

	if cur.Timestamp.Sub(prev.Timestamp) > c.cfg.SessionTimeout {
		return OutcomeGap
	}

	// Device change without a track change is a continuation.
	if cur.TrackID == prev.TrackID {
		switch {
		case !cur.IsPlaying && prev.IsPlaying:
			return OutcomePaused
		case !cur.IsPlaying:
			return OutcomePaused
		case cur.IsPlaying && !prev.IsPlaying:
			return OutcomeResumed
		default:
			return OutcomeContinued
		}
	}

	// New track: judge the previous one by its last seen progress.
	if c.completed(prev.ProgressMs, prev.DurationMs) {
		return OutcomeTrackFinished
	}
	minPlay := c.cfg.MinPlay.Milliseconds()
	if prev.DurationMs < minPlay {
		// A single poll tick cannot reliably sample such a short track.
		return OutcomeTrackChanged
	}
	if prev.ProgressMs < minPlay {
		// Too little playtime to distinguish a deliberate skip from a
		// double-tap passing through.
		return OutcomeTrackChanged
	}
	return OutcomeTrackSkipped
}

// completed reports whether the given progress counts as a natural finish:
// within the grace window of the end, or past the completion ratio.
func (c *Classifier) completed(progressMs, durationMs int64) bool {
	if durationMs <= 0 {
		return false
	}
	threshold := durationMs - c.cfg.CompletionGrace.Milliseconds()
	ratio := int64(c.cfg.CompletionRatio * float64(durationMs))
	if ratio < threshold {
		threshold = ratio
	}
	return progressMs >= threshold
}
