package tracker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/skipwatch/skipwatch/internal/stats"
	"github.com/skipwatch/skipwatch/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "skipwatch.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewReadOnly(st, zerolog.Nop()), st
}

func TestReadOnlyTrackerCannotCollect(t *testing.T) {
	tr, _ := newTestTracker(t)

	if _, err := tr.StartCollection(); err == nil {
		t.Errorf("StartCollection without a source should error")
	}
	if tr.IsCollectionActive() {
		t.Errorf("read-only tracker reports active collection")
	}
	if tr.AuthRequired() {
		t.Errorf("read-only tracker reports auth required")
	}
	if err := tr.StopCollection(); err != nil {
		t.Errorf("StopCollection on read-only tracker: %v", err)
	}
}

func TestTriggerAggregationPersists(t *testing.T) {
	tr, st := newTestTracker(t)

	at := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	tr.agg.RecordSkip(stats.TrackEvent{
		TrackID: "t1", ArtistID: "a1", ArtistName: "Artist",
		ListenedMs: 30000, DurationMs: 200000, Timestamp: at,
	})
	if err := tr.TriggerAggregation(); err != nil {
		t.Fatalf("TriggerAggregation: %v", err)
	}

	// A fresh tracker over the same store sees the persisted aggregates.
	reloaded := NewReadOnly(st, zerolog.Nop())
	data := reloaded.Statistics()
	if data.TotalSkips != 1 {
		t.Errorf("TotalSkips = %d, want 1", data.TotalSkips)
	}
	if data.Artists["a1"] == nil {
		t.Errorf("artist metrics lost across reload")
	}
}

func TestLibraryStats(t *testing.T) {
	tr, _ := newTestTracker(t)

	at := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	tr.agg.RecordSkip(stats.TrackEvent{
		TrackID: "t1", ArtistID: "a1", ArtistName: "Artist",
		ListenedMs: 30000, DurationMs: 200000, Timestamp: at,
	})
	tr.agg.RecordPlay(stats.TrackEvent{
		TrackID: "t2", ArtistID: "a2", ArtistName: "Other",
		ListenedMs: 180000, DurationMs: 180000, Timestamp: at,
	})

	ls := tr.LibraryStats()
	if ls.TotalPlays != 2 || ls.TotalSkips != 1 {
		t.Errorf("totals = %d/%d, want 2/1", ls.TotalPlays, ls.TotalSkips)
	}
	if ls.OverallSkipRate != 0.5 {
		t.Errorf("OverallSkipRate = %v, want 0.5", ls.OverallSkipRate)
	}
	if ls.DiscoveryRate != 1 {
		t.Errorf("DiscoveryRate = %v, want 1 (both artists new)", ls.DiscoveryRate)
	}
	if len(ls.TopArtistIDs) != 2 {
		t.Errorf("TopArtistIDs = %v", ls.TopArtistIDs)
	}
}

func TestDetectPatternsUsesStoredSessions(t *testing.T) {
	tr, st := newTestTracker(t)

	start := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	sess := stats.ListeningSession{
		ID:           "s1",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		TrackIDs:     []string{"a", "b", "c", "d"},
		SkippedFlags: []bool{true, true, true, false},
	}
	if err := st.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	patterns, err := tr.DetectPatterns()
	if err != nil {
		t.Fatalf("DetectPatterns: %v", err)
	}
	found := false
	for _, p := range patterns {
		if p.Type == "skip-streak" {
			found = true
		}
	}
	if !found {
		t.Errorf("stored streaky session not detected: %+v", patterns)
	}
}

func TestSetDetectorConfig(t *testing.T) {
	tr, st := newTestTracker(t)

	start := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	sess := stats.ListeningSession{
		ID:           "s1",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		TrackIDs:     []string{"a", "b"},
		SkippedFlags: []bool{true, true},
	}
	if err := st.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Default streak length of 3 stays quiet; 2 fires.
	patterns, err := tr.DetectPatterns()
	if err != nil {
		t.Fatalf("DetectPatterns: %v", err)
	}
	if len(patterns) != 0 {
		t.Fatalf("default config produced %+v", patterns)
	}

	cfg := stats.DefaultDetectorConfig()
	cfg.StreakLength = 2
	tr.SetDetectorConfig(cfg)
	patterns, err = tr.DetectPatterns()
	if err != nil {
		t.Fatalf("DetectPatterns: %v", err)
	}
	if len(patterns) != 1 {
		t.Errorf("lowered threshold produced %d patterns, want 1", len(patterns))
	}
}

func TestRemoveSkippedTrack(t *testing.T) {
	tr, st := newTestTracker(t)

	at := time.Now().UTC()
	rec := &stats.SkippedTrackRecord{
		TrackID: "t1", TrackName: "Track One", SkipCount: 1,
		LastSkippedAt: at, SkipTimestamps: []time.Time{at},
	}
	if err := st.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}

	if err := tr.RemoveSkippedTrack("t1"); err != nil {
		t.Fatalf("RemoveSkippedTrack: %v", err)
	}
	records, err := tr.SkippedTracks()
	if err != nil {
		t.Fatalf("SkippedTracks: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v, want none", records)
	}
}
