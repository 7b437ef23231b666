package monitor

import (
	"time"

	"github.com/google/uuid"
	"github.com/skipwatch/skipwatch/internal/spotify"
	"github.com/skipwatch/skipwatch/internal/stats"
)

// SessionTracker groups consecutive playback activity into listening
// sessions. It is driven by the collector only; no locking of its own.
type SessionTracker struct {
	current *stats.ListeningSession
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{}
}

func (t *SessionTracker) Active() bool {
	return t.current != nil
}

// SessionID returns the open session's id, or "" when none is open.
func (t *SessionTracker) SessionID() string {
	if t.current == nil {
		return ""
	}
	return t.current.ID
}

// Observe extends the open session with a snapshot, opening one if needed.
func (t *SessionTracker) Observe(snap *spotify.PlaybackSnapshot) {
	if snap == nil {
		return
	}
	if t.current == nil {
		t.current = &stats.ListeningSession{
			ID:         uuid.NewString(),
			StartTime:  snap.Timestamp,
			EndTime:    snap.Timestamp,
			DeviceName: snap.DeviceName,
			DeviceType: snap.DeviceType,
		}
	}
	s := t.current
	if snap.Timestamp.After(s.EndTime) {
		s.EndTime = snap.Timestamp
	}
	if n := len(s.TrackIDs); n == 0 || s.TrackIDs[n-1] != snap.TrackID {
		s.TrackIDs = append(s.TrackIDs, snap.TrackID)
		s.SkippedFlags = append(s.SkippedFlags, false)
	}
}

// MarkSkip flags the most recent occurrence of the track in the open session.
func (t *SessionTracker) MarkSkip(trackID string) {
	if t.current == nil {
		return
	}
	s := t.current
	for i := len(s.TrackIDs) - 1; i >= 0; i-- {
		if s.TrackIDs[i] == trackID {
			if !s.SkippedFlags[i] {
				s.SkippedFlags[i] = true
				s.SkippedTracks++
			}
			return
		}
	}
}

// Close seals the open session and returns it. Sessions with no tracks are
// discarded: ok is false and nothing is emitted.
func (t *SessionTracker) Close(at time.Time) (stats.ListeningSession, bool) {
	s := t.current
	t.current = nil
	if s == nil || len(s.TrackIDs) == 0 {
		return stats.ListeningSession{}, false
	}
	if at.After(s.EndTime) {
		s.EndTime = at
	}
	if s.EndTime.Before(s.StartTime) {
		s.EndTime = s.StartTime
	}
	s.DurationMs = s.EndTime.Sub(s.StartTime).Milliseconds()
	return *s, true
}
