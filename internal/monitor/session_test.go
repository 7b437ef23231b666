package monitor

import (
	"testing"
	"time"
)

func TestSessionTrackerObserveAndClose(t *testing.T) {
	tr := NewSessionTracker()
	if tr.Active() {
		t.Fatalf("new tracker should not be active")
	}
	if tr.SessionID() != "" {
		t.Fatalf("new tracker should have no session id")
	}

	start := classifierEpoch
	tr.Observe(snap("a", 1000, 200000, true, start))
	if !tr.Active() {
		t.Fatalf("tracker should be active after observing")
	}
	if tr.SessionID() == "" {
		t.Fatalf("open session should have an id")
	}

	// Same track again does not duplicate the entry.
	tr.Observe(snap("a", 4000, 200000, true, start.Add(3*time.Second)))
	tr.Observe(snap("b", 500, 180000, true, start.Add(6*time.Second)))
	tr.Observe(snap("c", 500, 180000, true, start.Add(9*time.Second)))

	s, ok := tr.Close(start.Add(9 * time.Second))
	if !ok {
		t.Fatalf("Close should emit a session with tracks")
	}
	if len(s.TrackIDs) != 3 {
		t.Errorf("session has %d tracks, want 3", len(s.TrackIDs))
	}
	if len(s.SkippedFlags) != len(s.TrackIDs) {
		t.Errorf("SkippedFlags length %d != TrackIDs length %d", len(s.SkippedFlags), len(s.TrackIDs))
	}
	if want := int64(9000); s.DurationMs != want {
		t.Errorf("session duration %d, want %d", s.DurationMs, want)
	}
	if tr.Active() {
		t.Errorf("tracker should not be active after Close")
	}
}

func TestSessionTrackerDiscardsEmpty(t *testing.T) {
	tr := NewSessionTracker()
	if _, ok := tr.Close(classifierEpoch); ok {
		t.Errorf("closing with no session should not emit")
	}
}

func TestSessionTrackerMarkSkip(t *testing.T) {
	tr := NewSessionTracker()
	start := classifierEpoch
	tr.Observe(snap("a", 1000, 200000, true, start))
	tr.Observe(snap("b", 500, 180000, true, start.Add(3*time.Second)))

	tr.MarkSkip("a")
	tr.MarkSkip("a") // idempotent
	tr.MarkSkip("missing")

	s, ok := tr.Close(start.Add(3 * time.Second))
	if !ok {
		t.Fatalf("Close should emit")
	}
	if s.SkippedTracks != 1 {
		t.Errorf("SkippedTracks = %d, want 1", s.SkippedTracks)
	}
	if !s.SkippedFlags[0] || s.SkippedFlags[1] {
		t.Errorf("SkippedFlags = %v, want [true false]", s.SkippedFlags)
	}
}

func TestSessionTrackerMarkSkipFlagsLastOccurrence(t *testing.T) {
	tr := NewSessionTracker()
	start := classifierEpoch
	tr.Observe(snap("a", 1000, 200000, true, start))
	tr.Observe(snap("b", 500, 180000, true, start.Add(3*time.Second)))
	tr.Observe(snap("a", 1000, 200000, true, start.Add(6*time.Second)))

	tr.MarkSkip("a")

	s, _ := tr.Close(start.Add(6 * time.Second))
	if s.SkippedFlags[0] {
		t.Errorf("first occurrence should not be flagged")
	}
	if !s.SkippedFlags[2] {
		t.Errorf("last occurrence should be flagged")
	}
}

func TestSessionTrackerCloseClampsDuration(t *testing.T) {
	tr := NewSessionTracker()
	tr.Observe(snap("a", 1000, 200000, true, classifierEpoch))

	// Closing earlier than the start never yields a negative duration.
	s, ok := tr.Close(classifierEpoch.Add(-time.Minute))
	if !ok {
		t.Fatalf("Close should emit")
	}
	if s.DurationMs < 0 {
		t.Errorf("duration %d is negative", s.DurationMs)
	}
}
