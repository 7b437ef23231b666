package monitor

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/skipwatch/skipwatch/internal/stats"
)

// SkipStore is the slice of the storage collaborator the skip logger needs.
type SkipStore interface {
	LoadSkippedTracks() (map[string]*stats.SkippedTrackRecord, error)
	SaveSkippedTrack(rec *stats.SkippedTrackRecord) error
}

// SkipLogger owns the in-memory skipped-track records. Persistence is best
// effort: a failed flush is logged and memory stays the source of truth until
// the next successful write.
type SkipLogger struct {
	store   SkipStore
	records map[string]*stats.SkippedTrackRecord
	log     zerolog.Logger
}

func NewSkipLogger(store SkipStore, log zerolog.Logger) *SkipLogger {
	records, err := store.LoadSkippedTracks()
	if err != nil {
		log.Warn().Err(err).Msg("loading skipped tracks, starting empty")
		records = make(map[string]*stats.SkippedTrackRecord)
	}
	if records == nil {
		records = make(map[string]*stats.SkippedTrackRecord)
	}
	return &SkipLogger{store: store, records: records, log: log}
}

// RecordSkip appends a skip to the track's record, creating it on first skip.
func (l *SkipLogger) RecordSkip(trackID, trackName, artistName string, at time.Time) *stats.SkippedTrackRecord {
	rec := l.records[trackID]
	if rec == nil {
		rec = &stats.SkippedTrackRecord{
			TrackID:    trackID,
			TrackName:  trackName,
			ArtistName: artistName,
		}
		l.records[trackID] = rec
	}
	rec.SkipCount++
	rec.LastSkippedAt = at
	rec.SkipTimestamps = append(rec.SkipTimestamps, at)
	l.flush(rec)
	l.log.Info().Str("track", trackName).Str("artist", artistName).
		Int("skips", rec.SkipCount).Msg("track skipped")
	return rec
}

// RecordCompletion bumps the not-skipped counter for tracks with skip
// history. Tracks never skipped get no record.
func (l *SkipLogger) RecordCompletion(trackID string) {
	rec := l.records[trackID]
	if rec == nil {
		return
	}
	rec.NotSkippedCount++
	l.flush(rec)
}

// MarkUnliked records that the track was removed from the library.
func (l *SkipLogger) MarkUnliked(trackID string) {
	rec := l.records[trackID]
	if rec == nil {
		return
	}
	rec.Unliked = true
	l.flush(rec)
}

// Record returns the record for a track, or nil.
func (l *SkipLogger) Record(trackID string) *stats.SkippedTrackRecord {
	return l.records[trackID]
}

func (l *SkipLogger) flush(rec *stats.SkippedTrackRecord) {
	if err := l.store.SaveSkippedTrack(rec); err != nil {
		l.log.Warn().Err(err).Str("track", rec.TrackID).Msg("persisting skip record")
	}
}
