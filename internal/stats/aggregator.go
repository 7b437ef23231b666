package stats

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DayKey formats the daily bucket key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey formats the ISO-week bucket key, e.g. "2026-W08".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthKey formats the monthly bucket key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Aggregator folds track events and sessions into the statistics root.
// All updates touch only the buckets the event falls into; full history is
// never reprocessed. Reads get a deep copy taken under the lock, so a
// snapshot reflects every event recorded before the call and none after.
type Aggregator struct {
	mu   sync.RWMutex
	data *StatisticsData
}

// NewAggregator wraps an existing statistics root, or a fresh one when
// initial is nil.
func NewAggregator(initial *StatisticsData) *Aggregator {
	if initial == nil {
		initial = NewStatisticsData()
	}
	if initial.Daily == nil {
		initial.Daily = make(map[string]*DailyMetrics)
	}
	if initial.Weekly == nil {
		initial.Weekly = make(map[string]*WeeklyMetrics)
	}
	if initial.Monthly == nil {
		initial.Monthly = make(map[string]*MonthlyMetrics)
	}
	if initial.Artists == nil {
		initial.Artists = make(map[string]*ArtistMetrics)
	}
	if initial.Genres == nil {
		initial.Genres = make(map[string]*GenreMetrics)
	}
	return &Aggregator{data: initial}
}

func (a *Aggregator) RecordSkip(ev TrackEvent) {
	a.record(ev, true)
}

func (a *Aggregator) RecordPlay(ev TrackEvent) {
	a.record(ev, false)
}

func (a *Aggregator) record(ev TrackEvent, skipped bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	d := a.data
	ts := ev.Timestamp
	hour := ts.Hour()
	weekday := int(ts.Weekday())
	artistKey := ev.ArtistID
	if artistKey == "" {
		artistKey = ev.ArtistName
	}

	day := d.Daily[DayKey(ts)]
	if day == nil {
		day = &DailyMetrics{PeriodMetrics: newPeriod(DayKey(ts))}
		d.Daily[day.PeriodKey] = day
	}
	applyPeriod(&day.PeriodMetrics, ev, artistKey, skipped)
	day.HourCounts[hour]++

	week := d.Weekly[WeekKey(ts)]
	if week == nil {
		week = &WeeklyMetrics{PeriodMetrics: newPeriod(WeekKey(ts))}
		d.Weekly[week.PeriodKey] = week
	}
	applyPeriod(&week.PeriodMetrics, ev, artistKey, skipped)
	week.DayCounts[weekday]++

	month := d.Monthly[MonthKey(ts)]
	if month == nil {
		month = &MonthlyMetrics{
			PeriodMetrics:   newPeriod(MonthKey(ts)),
			WeekListeningMs: make(map[string]int64),
		}
		d.Monthly[month.PeriodKey] = month
	}
	applyPeriod(&month.PeriodMetrics, ev, artistKey, skipped)
	month.WeekListeningMs[WeekKey(ts)] += ev.ListenedMs

	artist := d.Artists[artistKey]
	if artist == nil {
		artist = &ArtistMetrics{ArtistID: ev.ArtistID, ArtistName: ev.ArtistName}
		d.Artists[artistKey] = artist
		d.NewArtistPlays++
	}
	artist.Plays++
	artist.ListeningTimeMs += ev.ListenedMs
	if skipped {
		artist.Skips++
		artist.ListenedBeforeSkipMs += ev.ListenedMs
	}

	for _, g := range ev.Genres {
		genre := d.Genres[g]
		if genre == nil {
			genre = &GenreMetrics{Genre: g}
			d.Genres[g] = genre
		}
		genre.Plays++
		genre.ListeningTimeMs += ev.ListenedMs
		if skipped {
			genre.Skips++
			genre.ListenedBeforeSkipMs += ev.ListenedMs
		}
	}

	d.TotalPlays++
	d.TotalListeningMs += ev.ListenedMs
	d.HourlyPlays[hour]++
	d.DailyPlays[weekday]++
	if skipped {
		d.TotalSkips++
		d.HourlySkips[hour]++
	}
	d.UpdatedAt = time.Now()
}

// RecordSession folds a closed session into the aggregate. Per-track time is
// already accounted by the track events, so only session-level counters move.
func (a *Aggregator) RecordSession(s ListeningSession) {
	if len(s.TrackIDs) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data.TotalSessions++
	a.data.UpdatedAt = time.Now()
}

// Snapshot returns a deep copy of the statistics root.
func (a *Aggregator) Snapshot() *StatisticsData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data.Clone()
}

func newPeriod(key string) PeriodMetrics {
	return PeriodMetrics{
		PeriodKey:     key,
		UniqueArtists: NewStringSet(),
		UniqueTracks:  NewStringSet(),
	}
}

func applyPeriod(p *PeriodMetrics, ev TrackEvent, artistKey string, skipped bool) {
	p.ListeningTimeMs += ev.ListenedMs
	p.TracksPlayed++
	if skipped {
		p.TracksSkipped++
	}
	p.UniqueArtists.Add(artistKey)
	p.UniqueTracks.Add(ev.TrackID)
}

// Clone deep-copies via the JSON form, which is also the persisted form, so
// a clone always equals what a save/load round trip would produce.
func (d *StatisticsData) Clone() *StatisticsData {
	raw, err := json.Marshal(d)
	if err != nil {
		return NewStatisticsData()
	}
	out := NewStatisticsData()
	if err := json.Unmarshal(raw, out); err != nil {
		return NewStatisticsData()
	}
	return out
}
