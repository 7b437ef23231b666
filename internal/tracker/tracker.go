// Package tracker wires the monitoring pipeline to the command surface.
package tracker

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/skipwatch/skipwatch/internal/monitor"
	"github.com/skipwatch/skipwatch/internal/stats"
	"github.com/skipwatch/skipwatch/internal/store"
)

// Tracker is the control surface over the collector, the aggregator and the
// store. The read side works without a collector; StartCollection requires
// one (see New vs NewReadOnly).
type Tracker struct {
	store       *store.Store
	agg         *stats.Aggregator
	collector   *monitor.Collector
	detectorCfg stats.DetectorConfig
	log         zerolog.Logger
}

// New builds a full tracker around a live now-playing source.
func New(cfg monitor.Config, st *store.Store, source monitor.Source,
	guard monitor.TokenGuard, log zerolog.Logger) *Tracker {
	t := newReadOnly(st, log)
	skips := monitor.NewSkipLogger(st, log)
	t.collector = monitor.NewCollector(cfg, source, guard, skips, t.agg, st, st, log)
	return t
}

// NewReadOnly builds a tracker for report/export/pattern commands that never
// poll.
func NewReadOnly(st *store.Store, log zerolog.Logger) *Tracker {
	return newReadOnly(st, log)
}

func newReadOnly(st *store.Store, log zerolog.Logger) *Tracker {
	data, err := st.LoadStatistics()
	if err != nil {
		// Stale reads are tolerated; monitoring proceeds from empty.
		log.Warn().Err(err).Msg("loading statistics, starting empty")
		data = stats.NewStatisticsData()
	}
	return &Tracker{
		store:       st,
		agg:         stats.NewAggregator(data),
		detectorCfg: stats.DefaultDetectorConfig(),
		log:         log,
	}
}

// SetDetectorConfig overrides the pattern-detection thresholds.
func (t *Tracker) SetDetectorConfig(cfg stats.DetectorConfig) {
	t.detectorCfg = cfg
}

// StartCollection starts the monitoring loop. Idempotent while active.
func (t *Tracker) StartCollection() (bool, error) {
	if t.collector == nil {
		return false, fmt.Errorf("no playback source configured")
	}
	return t.collector.Start(), nil
}

// StopCollection stops the loop, completes the in-flight tick and flushes a
// statistics snapshot.
func (t *Tracker) StopCollection() error {
	if t.collector == nil {
		return nil
	}
	t.collector.Stop()
	return t.TriggerAggregation()
}

func (t *Tracker) IsCollectionActive() bool {
	return t.collector != nil && t.collector.IsActive()
}

// AuthRequired reports whether monitoring paused on repeated auth failure.
func (t *Tracker) AuthRequired() bool {
	return t.collector != nil && t.collector.AuthRequired()
}

// TriggerAggregation persists the current statistics snapshot.
func (t *Tracker) TriggerAggregation() error {
	if err := t.store.SaveStatistics(t.agg.Snapshot()); err != nil {
		return fmt.Errorf("saving statistics: %w", err)
	}
	return nil
}

// Statistics returns an atomic snapshot of the aggregate root.
func (t *Tracker) Statistics() *stats.StatisticsData {
	return t.agg.Snapshot()
}

// DailyMetrics returns the daily buckets of the current snapshot.
func (t *Tracker) DailyMetrics() map[string]*stats.DailyMetrics {
	return t.agg.Snapshot().Daily
}

// ArtistMetrics returns the per-artist accumulators of the current snapshot.
func (t *Tracker) ArtistMetrics() map[string]*stats.ArtistMetrics {
	return t.agg.Snapshot().Artists
}

// LibraryStats summarizes the global derived values.
type LibraryStats struct {
	TotalPlays       int      `json:"totalPlays"`
	TotalSkips       int      `json:"totalSkips"`
	TotalSessions    int      `json:"totalSessions"`
	TotalListeningMs int64    `json:"totalListeningMs"`
	OverallSkipRate  float64  `json:"overallSkipRate"`
	DiscoveryRate    float64  `json:"discoveryRate"`
	TopArtistIDs     []string `json:"topArtistIds"`
	TopGenres        []string `json:"topGenres"`
}

func (t *Tracker) LibraryStats() LibraryStats {
	data := t.agg.Snapshot()
	return LibraryStats{
		TotalPlays:       data.TotalPlays,
		TotalSkips:       data.TotalSkips,
		TotalSessions:    data.TotalSessions,
		TotalListeningMs: data.TotalListeningMs,
		OverallSkipRate:  data.OverallSkipRate(),
		DiscoveryRate:    data.DiscoveryRate(),
		TopArtistIDs:     data.TopArtistIDs(10),
		TopGenres:        data.TopGenres(10),
	}
}

// SkippedTracks returns persisted records ordered by skip count.
func (t *Tracker) SkippedTracks() ([]*stats.SkippedTrackRecord, error) {
	return t.store.SkippedTracksSorted()
}

// RemoveSkippedTrack deletes a record. User-triggered only.
func (t *Tracker) RemoveSkippedTrack(trackID string) error {
	return t.store.RemoveSkippedTrack(trackID)
}

// DetectPatterns runs the detector over the current snapshot and the stored
// session history.
func (t *Tracker) DetectPatterns() ([]stats.DetectedPattern, error) {
	sessions, err := t.store.RecentSessions(0)
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	return stats.DetectPatterns(t.agg.Snapshot(), sessions, t.detectorCfg), nil
}
