package stats

import (
	"testing"
	"time"
)

func TestDetectHourBias(t *testing.T) {
	cfg := DefaultDetectorConfig()
	data := NewStatisticsData()
	// 100 plays, 20 skips overall, but hour 23 runs at 80%.
	data.TotalPlays = 100
	data.TotalSkips = 20
	data.HourlyPlays[23] = 20
	data.HourlySkips[23] = 16
	data.HourlyPlays[9] = 20
	data.HourlySkips[9] = 4

	patterns := DetectPatterns(data, nil, cfg)
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns, want 1: %+v", len(patterns), patterns)
	}
	p := patterns[0]
	if p.Type != "time-of-day" {
		t.Errorf("Type = %q, want time-of-day", p.Type)
	}
	if p.Evidence["hour"] != 23 {
		t.Errorf("hour = %d, want 23", p.Evidence["hour"])
	}
	if p.Confidence <= 0 || p.Confidence > 1 {
		t.Errorf("confidence %v out of range", p.Confidence)
	}
}

func TestDetectHourBiasMinSampleGuard(t *testing.T) {
	cfg := DefaultDetectorConfig()
	data := NewStatisticsData()
	// 100% skip rate but below the sample minimum.
	data.TotalPlays = 5
	data.TotalSkips = 5
	data.HourlyPlays[3] = 5
	data.HourlySkips[3] = 5

	if patterns := DetectPatterns(data, nil, cfg); len(patterns) != 0 {
		t.Errorf("sparse bucket produced patterns: %+v", patterns)
	}
}

func TestDetectArtistAversion(t *testing.T) {
	cfg := DefaultDetectorConfig()
	data := NewStatisticsData()
	data.Artists["a1"] = &ArtistMetrics{ArtistID: "a1", ArtistName: "Skipped A Lot", Plays: 10, Skips: 8}
	data.Artists["a2"] = &ArtistMetrics{ArtistID: "a2", ArtistName: "Liked", Plays: 10, Skips: 1}
	data.Artists["a3"] = &ArtistMetrics{ArtistID: "a3", ArtistName: "Sparse", Plays: 2, Skips: 2}

	patterns := DetectPatterns(data, nil, cfg)
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns, want 1: %+v", len(patterns), patterns)
	}
	if patterns[0].Type != "artist-aversion" {
		t.Errorf("Type = %q, want artist-aversion", patterns[0].Type)
	}
	if patterns[0].Evidence["skips"] != 8 {
		t.Errorf("skips = %d, want 8", patterns[0].Evidence["skips"])
	}
}

func TestDetectGenreAversion(t *testing.T) {
	cfg := DefaultDetectorConfig()
	data := NewStatisticsData()
	data.Genres["metal"] = &GenreMetrics{Genre: "metal", Plays: 12, Skips: 9}
	data.Genres["jazz"] = &GenreMetrics{Genre: "jazz", Plays: 12, Skips: 2}
	data.Genres["ska"] = &GenreMetrics{Genre: "ska", Plays: 3, Skips: 3}

	patterns := DetectPatterns(data, nil, cfg)
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns, want 1: %+v", len(patterns), patterns)
	}
	if patterns[0].Type != "genre-aversion" {
		t.Errorf("Type = %q, want genre-aversion", patterns[0].Type)
	}
}

func TestDetectSkipStreaks(t *testing.T) {
	cfg := DefaultDetectorConfig()
	start := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	sessions := []ListeningSession{
		{
			ID:           "streaky",
			StartTime:    start,
			TrackIDs:     []string{"a", "b", "c", "d", "e"},
			SkippedFlags: []bool{false, true, true, true, false},
		},
		{
			ID:           "calm",
			StartTime:    start,
			TrackIDs:     []string{"a", "b", "c"},
			SkippedFlags: []bool{true, false, true},
		},
	}

	patterns := DetectPatterns(NewStatisticsData(), sessions, cfg)
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns, want 1: %+v", len(patterns), patterns)
	}
	if patterns[0].Type != "skip-streak" {
		t.Errorf("Type = %q, want skip-streak", patterns[0].Type)
	}
	if patterns[0].Evidence["streak"] != 3 {
		t.Errorf("streak = %d, want 3", patterns[0].Evidence["streak"])
	}
}

func TestDetectPatternsDeterministicOrder(t *testing.T) {
	cfg := DefaultDetectorConfig()
	data := NewStatisticsData()
	data.Artists["b"] = &ArtistMetrics{ArtistID: "b", ArtistName: "B", Plays: 10, Skips: 9}
	data.Artists["a"] = &ArtistMetrics{ArtistID: "a", ArtistName: "A", Plays: 10, Skips: 9}

	first := DetectPatterns(data, nil, cfg)
	for i := 0; i < 10; i++ {
		again := DetectPatterns(data, nil, cfg)
		if len(again) != len(first) {
			t.Fatalf("pattern count changed between runs")
		}
		for j := range again {
			if again[j].Description != first[j].Description {
				t.Fatalf("pattern order changed between runs")
			}
		}
	}
	if first[0].Description[:1] != "A" {
		t.Errorf("patterns not in key order: %q first", first[0].Description)
	}
}

func TestConfidenceBounds(t *testing.T) {
	if got := confidence(100, 10, 1, 1); got != 1 {
		t.Errorf("saturated confidence = %v, want 1", got)
	}
	if got := confidence(0, 10, 0, 1); got != 0 {
		t.Errorf("zero-evidence confidence = %v, want 0", got)
	}
	if got := confidence(5, 10, 0.5, 1); got != 0.5 {
		t.Errorf("half-evidence confidence = %v, want 0.5", got)
	}
}
