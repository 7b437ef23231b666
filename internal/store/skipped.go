package store

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/skipwatch/skipwatch/internal/stats"
)

// SaveSkippedTrack upserts the record and appends any skip timestamps not yet
// persisted, transactionally.
func (s *Store) SaveSkippedTrack(rec *stats.SkippedTrackRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	unliked := 0
	if rec.Unliked {
		unliked = 1
	}
	_, err = tx.Exec(`
INSERT INTO SkippedTrack (track_id, track_name, artist_name, skip_count, not_skipped_count, last_skipped_at, unliked)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(track_id) DO UPDATE SET
  track_name = excluded.track_name,
  artist_name = excluded.artist_name,
  skip_count = excluded.skip_count,
  not_skipped_count = excluded.not_skipped_count,
  last_skipped_at = excluded.last_skipped_at,
  unliked = excluded.unliked`,
		rec.TrackID, rec.TrackName, rec.ArtistName, rec.SkipCount, rec.NotSkippedCount, rec.LastSkippedAt, unliked)
	if err != nil {
		return fmt.Errorf("upserting skipped track %q: %w", rec.TrackID, err)
	}

	var persisted int
	if err := tx.QueryRow("SELECT COUNT(*) FROM SkipEvent WHERE track_id = ?", rec.TrackID).Scan(&persisted); err != nil {
		return fmt.Errorf("counting skip events for %q: %w", rec.TrackID, err)
	}
	for i := persisted; i < len(rec.SkipTimestamps); i++ {
		if _, err := tx.Exec("INSERT INTO SkipEvent (track_id, skipped_at) VALUES (?, ?)",
			rec.TrackID, rec.SkipTimestamps[i]); err != nil {
			return fmt.Errorf("inserting skip event for %q: %w", rec.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadSkippedTracks returns all skipped-track records with their ordered skip
// timestamps.
func (s *Store) LoadSkippedTracks() (map[string]*stats.SkippedTrackRecord, error) {
	rows, err := s.db.Query(`
SELECT track_id, track_name, artist_name, skip_count, not_skipped_count, last_skipped_at, unliked
FROM SkippedTrack`)
	if err != nil {
		return nil, fmt.Errorf("querying skipped tracks: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*stats.SkippedTrackRecord)
	for rows.Next() {
		rec := &stats.SkippedTrackRecord{}
		var lastSkipped sql.NullTime
		var unliked int
		if err := rows.Scan(&rec.TrackID, &rec.TrackName, &rec.ArtistName,
			&rec.SkipCount, &rec.NotSkippedCount, &lastSkipped, &unliked); err != nil {
			return nil, fmt.Errorf("scanning skipped track: %w", err)
		}
		if lastSkipped.Valid {
			rec.LastSkippedAt = lastSkipped.Time
		}
		rec.Unliked = unliked != 0
		records[rec.TrackID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading skipped tracks: %w", err)
	}

	events, err := s.db.Query("SELECT track_id, skipped_at FROM SkipEvent ORDER BY track_id, id")
	if err != nil {
		return nil, fmt.Errorf("querying skip events: %w", err)
	}
	defer events.Close()
	for events.Next() {
		var trackID string
		var at time.Time
		if err := events.Scan(&trackID, &at); err != nil {
			return nil, fmt.Errorf("scanning skip event: %w", err)
		}
		if rec, ok := records[trackID]; ok {
			rec.SkipTimestamps = append(rec.SkipTimestamps, at)
		}
	}
	if err := events.Err(); err != nil {
		return nil, fmt.Errorf("reading skip events: %w", err)
	}

	return records, nil
}

// SkippedTracksSorted returns records ordered by skip count, then track name.
func (s *Store) SkippedTracksSorted() ([]*stats.SkippedTrackRecord, error) {
	records, err := s.LoadSkippedTracks()
	if err != nil {
		return nil, err
	}
	out := make([]*stats.SkippedTrackRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SkipCount != out[j].SkipCount {
			return out[i].SkipCount > out[j].SkipCount
		}
		return out[i].TrackName < out[j].TrackName
	})
	return out, nil
}

// RemoveSkippedTrack deletes a record and its events. User-triggered only.
func (s *Store) RemoveSkippedTrack(trackID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM SkipEvent WHERE track_id = ?", trackID); err != nil {
		return fmt.Errorf("deleting skip events for %q: %w", trackID, err)
	}
	res, err := tx.Exec("DELETE FROM SkippedTrack WHERE track_id = ?", trackID)
	if err != nil {
		return fmt.Errorf("deleting skipped track %q: %w", trackID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("no skipped track with id %q", trackID)
	}

	return tx.Commit()
}
