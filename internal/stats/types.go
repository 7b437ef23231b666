package stats

import (
	"encoding/json"
	"sort"
	"time"
)

// StringSet is the canonical in-memory representation for unique-id tracking.
// It serializes as a sorted string slice so persisted snapshots are stable.
type StringSet map[string]struct{}

func NewStringSet(ids ...string) StringSet {
	s := make(StringSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s StringSet) Add(id string) {
	s[id] = struct{}{}
}

func (s StringSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewStringSet(ids...)
	return nil
}

// TrackEvent is one classified playback transition: a track that either
// finished naturally or was skipped early.
type TrackEvent struct {
	TrackID    string
	TrackName  string
	ArtistID   string
	ArtistName string
	Genres     []string
	ListenedMs int64
	DurationMs int64
	Timestamp  time.Time
	SessionID  string
}

// SkippedTrackRecord accumulates skip history for a single track. SkipCount
// is monotonic; records are only removed by explicit user action.
type SkippedTrackRecord struct {
	TrackID         string      `json:"trackId"`
	TrackName       string      `json:"trackName"`
	ArtistName      string      `json:"artistName"`
	SkipCount       int         `json:"skipCount"`
	NotSkippedCount int         `json:"notSkippedCount"`
	LastSkippedAt   time.Time   `json:"lastSkippedAt"`
	SkipTimestamps  []time.Time `json:"skipTimestamps"`
	Unliked         bool        `json:"unliked,omitempty"`
}

// ListeningSession is a contiguous span of playback bounded by gaps.
// Immutable once closed.
type ListeningSession struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	DurationMs    int64     `json:"durationMs"`
	TrackIDs      []string  `json:"trackIds"`
	SkippedFlags  []bool    `json:"skippedFlags"`
	SkippedTracks int       `json:"skippedTracks"`
	DeviceName    string    `json:"deviceName"`
	DeviceType    string    `json:"deviceType"`
}

// PeriodMetrics holds the raw accumulators shared by all time buckets.
// Ratios and period-specific summaries are derived on read.
type PeriodMetrics struct {
	PeriodKey       string    `json:"periodKey"`
	ListeningTimeMs int64     `json:"listeningTimeMs"`
	TracksPlayed    int       `json:"tracksPlayed"`
	TracksSkipped   int       `json:"tracksSkipped"`
	UniqueArtists   StringSet `json:"uniqueArtists"`
	UniqueTracks    StringSet `json:"uniqueTracks"`
}

func (p *PeriodMetrics) SkipRate() float64 {
	if p.TracksPlayed == 0 {
		return 0
	}
	return float64(p.TracksSkipped) / float64(p.TracksPlayed)
}

type DailyMetrics struct {
	PeriodMetrics
	HourCounts [24]int `json:"hourCounts"`
}

// PeakHour is the hour of day with the most track events, or -1 for an
// empty bucket.
func (d *DailyMetrics) PeakHour() int {
	peak, max := -1, 0
	for hour, n := range d.HourCounts {
		if n > max {
			peak, max = hour, n
		}
	}
	return peak
}

type WeeklyMetrics struct {
	PeriodMetrics
	// DayCounts is indexed by time.Weekday (Sunday = 0).
	DayCounts [7]int `json:"dayCounts"`
}

func (w *WeeklyMetrics) MostActiveDay() string {
	best, max := -1, 0
	for day, n := range w.DayCounts {
		if n > max {
			best, max = day, n
		}
	}
	if best < 0 {
		return ""
	}
	return time.Weekday(best).String()
}

type MonthlyMetrics struct {
	PeriodMetrics
	// WeekListeningMs maps ISO week keys to listening time, for the trend.
	WeekListeningMs map[string]int64 `json:"weekListeningMs"`
}

// WeeklyTrend compares the last two ISO weeks with data in the month.
func (m *MonthlyMetrics) WeeklyTrend() string {
	if len(m.WeekListeningMs) < 2 {
		return "flat"
	}
	weeks := make([]string, 0, len(m.WeekListeningMs))
	for w := range m.WeekListeningMs {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)
	prev := m.WeekListeningMs[weeks[len(weeks)-2]]
	last := m.WeekListeningMs[weeks[len(weeks)-1]]
	switch {
	case last > prev:
		return "rising"
	case last < prev:
		return "falling"
	default:
		return "flat"
	}
}

// ArtistMetrics is a running accumulator per artist. SkipRate and the
// average-listen-before-skip are derived from the sums on every read so the
// stored state cannot drift.
type ArtistMetrics struct {
	ArtistID             string `json:"artistId"`
	ArtistName           string `json:"artistName"`
	Plays                int    `json:"plays"`
	Skips                int    `json:"skips"`
	ListeningTimeMs      int64  `json:"listeningTimeMs"`
	ListenedBeforeSkipMs int64  `json:"listenedBeforeSkipMs"`
}

func (m *ArtistMetrics) SkipRate() float64 {
	if m.Plays == 0 {
		return 0
	}
	return float64(m.Skips) / float64(m.Plays)
}

func (m *ArtistMetrics) AvgListeningBeforeSkipMs() int64 {
	if m.Skips == 0 {
		return 0
	}
	return m.ListenedBeforeSkipMs / int64(m.Skips)
}

type GenreMetrics struct {
	Genre                string `json:"genre"`
	Plays                int    `json:"plays"`
	Skips                int    `json:"skips"`
	ListeningTimeMs      int64  `json:"listeningTimeMs"`
	ListenedBeforeSkipMs int64  `json:"listenedBeforeSkipMs"`
}

func (m *GenreMetrics) SkipRate() float64 {
	if m.Plays == 0 {
		return 0
	}
	return float64(m.Skips) / float64(m.Plays)
}

func (m *GenreMetrics) AvgListeningBeforeSkipMs() int64 {
	if m.Skips == 0 {
		return 0
	}
	return m.ListenedBeforeSkipMs / int64(m.Skips)
}

// StatisticsData is the aggregate root. It is owned by the Aggregator; other
// components only see deep copies taken under its lock.
type StatisticsData struct {
	Daily   map[string]*DailyMetrics   `json:"daily"`
	Weekly  map[string]*WeeklyMetrics  `json:"weekly"`
	Monthly map[string]*MonthlyMetrics `json:"monthly"`
	Artists map[string]*ArtistMetrics  `json:"artists"`
	Genres  map[string]*GenreMetrics   `json:"genres"`

	TotalPlays       int       `json:"totalPlays"`
	TotalSkips       int       `json:"totalSkips"`
	TotalSessions    int       `json:"totalSessions"`
	TotalListeningMs int64     `json:"totalListeningMs"`
	NewArtistPlays   int       `json:"newArtistPlays"`
	HourlyPlays      [24]int   `json:"hourlyPlays"`
	HourlySkips      [24]int   `json:"hourlySkips"`
	DailyPlays       [7]int    `json:"dailyPlays"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func NewStatisticsData() *StatisticsData {
	return &StatisticsData{
		Daily:   make(map[string]*DailyMetrics),
		Weekly:  make(map[string]*WeeklyMetrics),
		Monthly: make(map[string]*MonthlyMetrics),
		Artists: make(map[string]*ArtistMetrics),
		Genres:  make(map[string]*GenreMetrics),
	}
}

func (d *StatisticsData) OverallSkipRate() float64 {
	if d.TotalPlays == 0 {
		return 0
	}
	return float64(d.TotalSkips) / float64(d.TotalPlays)
}

// DiscoveryRate is the fraction of track events that introduced an artist not
// seen before.
func (d *StatisticsData) DiscoveryRate() float64 {
	if d.TotalPlays == 0 {
		return 0
	}
	return float64(d.NewArtistPlays) / float64(d.TotalPlays)
}

// TopArtistIDs returns up to n artist ids ordered by play count.
func (d *StatisticsData) TopArtistIDs(n int) []string {
	ids := make([]string, 0, len(d.Artists))
	for id := range d.Artists {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := d.Artists[ids[i]], d.Artists[ids[j]]
		if a.Plays != b.Plays {
			return a.Plays > b.Plays
		}
		return ids[i] < ids[j]
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// TopGenres returns up to n genres ordered by play count.
func (d *StatisticsData) TopGenres(n int) []string {
	genres := make([]string, 0, len(d.Genres))
	for g := range d.Genres {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		a, b := d.Genres[genres[i]], d.Genres[genres[j]]
		if a.Plays != b.Plays {
			return a.Plays > b.Plays
		}
		return genres[i] < genres[j]
	})
	if n > 0 && len(genres) > n {
		genres = genres[:n]
	}
	return genres
}

// DetectedPattern is pure detector output, superseded wholesale by the next
// detection pass.
type DetectedPattern struct {
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Confidence  float64          `json:"confidence"`
	Evidence    map[string]int64 `json:"evidence"`
}
