package stats

import (
	"fmt"
	"math"
	"sort"
)

// DetectorConfig bounds what counts as a statistically supported pattern.
// Every rule carries a minimum sample size so sparse buckets stay silent.
type DetectorConfig struct {
	MinHourSamples      int
	HourBiasMargin      float64
	ArtistSkipThreshold float64
	MinArtistPlays      int
	GenreSkipThreshold  float64
	MinGenrePlays       int
	StreakLength        int
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinHourSamples:      10,
		HourBiasMargin:      0.15,
		ArtistSkipThreshold: 0.6,
		MinArtistPlays:      5,
		GenreSkipThreshold:  0.6,
		MinGenrePlays:       10,
		StreakLength:        3,
	}
}

// DetectPatterns scans accumulated statistics and session history for
// recurring skip behavior. It never mutates its inputs; each pass produces a
// fresh pattern set that supersedes the previous one.
func DetectPatterns(data *StatisticsData, sessions []ListeningSession, cfg DetectorConfig) []DetectedPattern {
	var patterns []DetectedPattern
	patterns = append(patterns, detectHourBias(data, cfg)...)
	patterns = append(patterns, detectArtistAversion(data, cfg)...)
	patterns = append(patterns, detectGenreAversion(data, cfg)...)
	patterns = append(patterns, detectSkipStreaks(sessions, cfg)...)
	return patterns
}

func detectHourBias(data *StatisticsData, cfg DetectorConfig) []DetectedPattern {
	overall := data.OverallSkipRate()
	var out []DetectedPattern
	for hour := 0; hour < 24; hour++ {
		plays := data.HourlyPlays[hour]
		if plays < cfg.MinHourSamples {
			continue
		}
		rate := float64(data.HourlySkips[hour]) / float64(plays)
		if rate < overall+cfg.HourBiasMargin {
			continue
		}
		out = append(out, DetectedPattern{
			Type: "time-of-day",
			Description: fmt.Sprintf("Skip rate at %02d:00 is %.0f%% vs %.0f%% overall",
				hour, rate*100, overall*100),
			Confidence: confidence(plays, 2*cfg.MinHourSamples, rate-overall, 1-overall),
			Evidence: map[string]int64{
				"hour":  int64(hour),
				"plays": int64(plays),
				"skips": int64(data.HourlySkips[hour]),
			},
		})
	}
	return out
}

func detectArtistAversion(data *StatisticsData, cfg DetectorConfig) []DetectedPattern {
	keys := make([]string, 0, len(data.Artists))
	for k := range data.Artists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []DetectedPattern
	for _, k := range keys {
		m := data.Artists[k]
		if m.Plays < cfg.MinArtistPlays {
			continue
		}
		rate := m.SkipRate()
		if rate < cfg.ArtistSkipThreshold {
			continue
		}
		out = append(out, DetectedPattern{
			Type: "artist-aversion",
			Description: fmt.Sprintf("%s skipped %d of %d plays (%.0f%%)",
				m.ArtistName, m.Skips, m.Plays, rate*100),
			Confidence: confidence(m.Plays, 2*cfg.MinArtistPlays, rate-cfg.ArtistSkipThreshold, 1-cfg.ArtistSkipThreshold),
			Evidence: map[string]int64{
				"plays": int64(m.Plays),
				"skips": int64(m.Skips),
			},
		})
	}
	return out
}

func detectGenreAversion(data *StatisticsData, cfg DetectorConfig) []DetectedPattern {
	genres := make([]string, 0, len(data.Genres))
	for g := range data.Genres {
		genres = append(genres, g)
	}
	sort.Strings(genres)

	var out []DetectedPattern
	for _, g := range genres {
		m := data.Genres[g]
		if m.Plays < cfg.MinGenrePlays {
			continue
		}
		rate := m.SkipRate()
		if rate < cfg.GenreSkipThreshold {
			continue
		}
		out = append(out, DetectedPattern{
			Type: "genre-aversion",
			Description: fmt.Sprintf("Genre %q skipped %d of %d plays (%.0f%%)",
				g, m.Skips, m.Plays, rate*100),
			Confidence: confidence(m.Plays, 2*cfg.MinGenrePlays, rate-cfg.GenreSkipThreshold, 1-cfg.GenreSkipThreshold),
			Evidence: map[string]int64{
				"plays": int64(m.Plays),
				"skips": int64(m.Skips),
			},
		})
	}
	return out
}

func detectSkipStreaks(sessions []ListeningSession, cfg DetectorConfig) []DetectedPattern {
	if cfg.StreakLength <= 0 {
		return nil
	}
	var out []DetectedPattern
	for _, s := range sessions {
		streak, longest := 0, 0
		for _, skipped := range s.SkippedFlags {
			if skipped {
				streak++
				if streak > longest {
					longest = streak
				}
			} else {
				streak = 0
			}
		}
		if longest < cfg.StreakLength {
			continue
		}
		out = append(out, DetectedPattern{
			Type: "skip-streak",
			Description: fmt.Sprintf("%d consecutive skips in session starting %s",
				longest, s.StartTime.Format("2006-01-02 15:04")),
			Confidence: confidence(longest, 2*cfg.StreakLength, float64(longest-cfg.StreakLength+1), float64(cfg.StreakLength)),
			Evidence: map[string]int64{
				"streak": int64(longest),
				"tracks": int64(len(s.TrackIDs)),
			},
		})
	}
	return out
}

// confidence combines sample size and effect size into [0,1]: half the score
// comes from how far past the minimum sample the evidence goes, half from how
// large the effect is relative to its possible range.
func confidence(samples, fullSamples int, effect, effectRange float64) float64 {
	sampleScore := 1.0
	if fullSamples > 0 {
		sampleScore = math.Min(1, float64(samples)/float64(fullSamples))
	}
	effectScore := 1.0
	if effectRange > 0 {
		effectScore = math.Min(1, math.Max(0, effect/effectRange))
	}
	c := 0.5*sampleScore + 0.5*effectScore
	return math.Round(c*100) / 100
}
