package store

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/skipwatch/skipwatch/internal/stats"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "skipwatch.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSkippedTrackRoundTrip(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	rec := &stats.SkippedTrackRecord{
		TrackID:        "t1",
		TrackName:      "Track One",
		ArtistName:     "Artist",
		SkipCount:      2,
		LastSkippedAt:  at.Add(time.Hour),
		SkipTimestamps: []time.Time{at, at.Add(time.Hour)},
	}
	if err := s.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}

	loaded, err := s.LoadSkippedTracks()
	if err != nil {
		t.Fatalf("LoadSkippedTracks: %v", err)
	}
	got := loaded["t1"]
	if got == nil {
		t.Fatalf("record not found after save")
	}
	if got.SkipCount != 2 || got.TrackName != "Track One" || got.ArtistName != "Artist" {
		t.Errorf("loaded record = %+v", got)
	}
	if len(got.SkipTimestamps) != 2 {
		t.Fatalf("got %d timestamps, want 2", len(got.SkipTimestamps))
	}
	if !got.SkipTimestamps[0].Equal(at) || !got.SkipTimestamps[1].Equal(at.Add(time.Hour)) {
		t.Errorf("timestamps out of order: %v", got.SkipTimestamps)
	}
}

func TestSaveSkippedTrackAppendsOnlyNewEvents(t *testing.T) {
	s := newTestStore(t)

	at := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	rec := &stats.SkippedTrackRecord{
		TrackID:        "t1",
		TrackName:      "Track One",
		ArtistName:     "Artist",
		SkipCount:      1,
		LastSkippedAt:  at,
		SkipTimestamps: []time.Time{at},
	}
	if err := s.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}
	// Save again unchanged, then with one more skip.
	if err := s.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}
	rec.SkipCount = 2
	rec.SkipTimestamps = append(rec.SkipTimestamps, at.Add(time.Minute))
	if err := s.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}

	loaded, err := s.LoadSkippedTracks()
	if err != nil {
		t.Fatalf("LoadSkippedTracks: %v", err)
	}
	if got := len(loaded["t1"].SkipTimestamps); got != 2 {
		t.Errorf("got %d persisted events, want 2", got)
	}
}

func TestSkippedTracksSorted(t *testing.T) {
	s := newTestStore(t)

	at := time.Now().UTC()
	for _, rec := range []*stats.SkippedTrackRecord{
		{TrackID: "t1", TrackName: "Bravo", SkipCount: 2, LastSkippedAt: at},
		{TrackID: "t2", TrackName: "Alpha", SkipCount: 5, LastSkippedAt: at},
		{TrackID: "t3", TrackName: "Alpha Two", SkipCount: 2, LastSkippedAt: at},
	} {
		if err := s.SaveSkippedTrack(rec); err != nil {
			t.Fatalf("SaveSkippedTrack: %v", err)
		}
	}

	sorted, err := s.SkippedTracksSorted()
	if err != nil {
		t.Fatalf("SkippedTracksSorted: %v", err)
	}
	if len(sorted) != 3 {
		t.Fatalf("got %d records, want 3", len(sorted))
	}
	if sorted[0].TrackID != "t2" {
		t.Errorf("first = %q, want t2 (most skips)", sorted[0].TrackID)
	}
	if sorted[1].TrackName != "Alpha Two" || sorted[2].TrackName != "Bravo" {
		t.Errorf("ties not broken by name: %q then %q", sorted[1].TrackName, sorted[2].TrackName)
	}
}

func TestRemoveSkippedTrack(t *testing.T) {
	s := newTestStore(t)

	at := time.Now().UTC()
	rec := &stats.SkippedTrackRecord{
		TrackID: "t1", TrackName: "Track One", SkipCount: 1,
		LastSkippedAt: at, SkipTimestamps: []time.Time{at},
	}
	if err := s.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}
	if err := s.RemoveSkippedTrack("t1"); err != nil {
		t.Fatalf("RemoveSkippedTrack: %v", err)
	}

	loaded, err := s.LoadSkippedTracks()
	if err != nil {
		t.Fatalf("LoadSkippedTracks: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("record still present after removal: %v", loaded)
	}

	if err := s.RemoveSkippedTrack("missing"); err == nil {
		t.Errorf("removing a missing record should error")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)

	start := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	sess := stats.ListeningSession{
		ID:            "s1",
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
		DurationMs:    int64(30 * time.Minute / time.Millisecond),
		TrackIDs:      []string{"a", "b", "c"},
		SkippedFlags:  []bool{false, true, false},
		SkippedTracks: 1,
		DeviceName:    "Desk",
		DeviceType:    "Computer",
	}
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	sessions, err := s.RecentSessions(0)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	got := sessions[0]
	if got.ID != "s1" || got.SkippedTracks != 1 || got.DeviceName != "Desk" {
		t.Errorf("loaded session = %+v", got)
	}
	if len(got.TrackIDs) != 3 || got.TrackIDs[1] != "b" {
		t.Errorf("track order lost: %v", got.TrackIDs)
	}
	if len(got.SkippedFlags) != 3 || !got.SkippedFlags[1] || got.SkippedFlags[0] {
		t.Errorf("skip flags lost: %v", got.SkippedFlags)
	}
}

func TestRecentSessionsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		sess := stats.ListeningSession{
			ID:        id,
			StartTime: base.AddDate(0, 0, i),
			EndTime:   base.AddDate(0, 0, i).Add(time.Hour),
			TrackIDs:  []string{"t"},
		}
		if err := s.SaveSession(sess); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	sessions, err := s.RecentSessions(2)
	if err != nil {
		t.Fatalf("RecentSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "new" || sessions[1].ID != "mid" {
		t.Errorf("order = %q, %q, want new, mid", sessions[0].ID, sessions[1].ID)
	}
}

func TestArtistGenresCache(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.ArtistGenres("a1"); err != nil || ok {
		t.Fatalf("unknown artist: ok=%v err=%v, want false, nil", ok, err)
	}

	if err := s.SaveArtistGenres("a1", "Artist One", []string{"rock", "indie"}); err != nil {
		t.Fatalf("SaveArtistGenres: %v", err)
	}
	genres, ok, err := s.ArtistGenres("a1")
	if err != nil || !ok {
		t.Fatalf("ArtistGenres: ok=%v err=%v", ok, err)
	}
	if len(genres) != 2 || genres[0] != "indie" || genres[1] != "rock" {
		t.Errorf("genres = %v, want [indie rock]", genres)
	}

	// A cached empty list is distinguishable from never-fetched.
	if err := s.SaveArtistGenres("a2", "Artist Two", nil); err != nil {
		t.Fatalf("SaveArtistGenres: %v", err)
	}
	genres, ok, err = s.ArtistGenres("a2")
	if err != nil || !ok {
		t.Fatalf("ArtistGenres for empty: ok=%v err=%v", ok, err)
	}
	if len(genres) != 0 {
		t.Errorf("genres = %v, want none", genres)
	}

	// Refetching replaces the old set.
	if err := s.SaveArtistGenres("a1", "Artist One", []string{"shoegaze"}); err != nil {
		t.Fatalf("SaveArtistGenres: %v", err)
	}
	genres, _, _ = s.ArtistGenres("a1")
	if len(genres) != 1 || genres[0] != "shoegaze" {
		t.Errorf("genres = %v, want [shoegaze]", genres)
	}
}

func TestStatisticsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	// Nothing saved yet: a fresh, usable root.
	data, err := s.LoadStatistics()
	if err != nil {
		t.Fatalf("LoadStatistics: %v", err)
	}
	if data.TotalPlays != 0 || data.Daily == nil {
		t.Fatalf("fresh statistics = %+v", data)
	}

	agg := stats.NewAggregator(data)
	at := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	agg.RecordSkip(stats.TrackEvent{
		TrackID: "t1", ArtistID: "a1", ArtistName: "Artist",
		Genres: []string{"indie"}, ListenedMs: 30000, DurationMs: 200000, Timestamp: at,
	})
	if err := s.SaveStatistics(agg.Snapshot()); err != nil {
		t.Fatalf("SaveStatistics: %v", err)
	}

	loaded, err := s.LoadStatistics()
	if err != nil {
		t.Fatalf("LoadStatistics: %v", err)
	}
	if loaded.TotalSkips != 1 || loaded.TotalPlays != 1 {
		t.Errorf("loaded totals = %d/%d, want 1/1", loaded.TotalPlays, loaded.TotalSkips)
	}
	day := loaded.Daily["2024-03-04"]
	if day == nil || day.TracksSkipped != 1 {
		t.Errorf("daily bucket lost: %+v", day)
	}
	if !day.UniqueArtists.Contains("a1") {
		t.Errorf("unique artists lost: %v", day.UniqueArtists)
	}
	if loaded.Genres["indie"] == nil {
		t.Errorf("genre metrics lost")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	tok, err := s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if tok != nil {
		t.Fatalf("token before save = %+v, want nil", tok)
	}

	saved := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}
	if err := s.SaveToken(saved); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	tok, err = s.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
		t.Errorf("loaded token = %+v", tok)
	}

	// Saving again replaces, not duplicates.
	saved.AccessToken = "rotated"
	if err := s.SaveToken(saved); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	tok, _ = s.LoadToken()
	if tok.AccessToken != "rotated" {
		t.Errorf("AccessToken = %q, want rotated", tok.AccessToken)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skipwatch.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	at := time.Now().UTC()
	rec := &stats.SkippedTrackRecord{
		TrackID: "t1", TrackName: "Track One", SkipCount: 1,
		LastSkippedAt: at, SkipTimestamps: []time.Time{at},
	}
	if err := s.SaveSkippedTrack(rec); err != nil {
		t.Fatalf("SaveSkippedTrack: %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	loaded, err := s.LoadSkippedTracks()
	if err != nil {
		t.Fatalf("LoadSkippedTracks: %v", err)
	}
	if loaded["t1"] == nil {
		t.Errorf("data lost across reopen")
	}
}
