package store

import (
	"fmt"
	"time"

	"github.com/skipwatch/skipwatch/internal/stats"
)

// SaveSession persists a closed session and its track order transactionally.
func (s *Store) SaveSession(session stats.ListeningSession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
INSERT OR REPLACE INTO Session (id, start_time, end_time, duration_ms, skipped_tracks, device_name, device_type)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.StartTime, session.EndTime, session.DurationMs,
		session.SkippedTracks, session.DeviceName, session.DeviceType)
	if err != nil {
		return fmt.Errorf("inserting session %q: %w", session.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM SessionTrack WHERE session_id = ?", session.ID); err != nil {
		return fmt.Errorf("clearing session tracks for %q: %w", session.ID, err)
	}
	for i, trackID := range session.TrackIDs {
		skipped := 0
		if i < len(session.SkippedFlags) && session.SkippedFlags[i] {
			skipped = 1
		}
		if _, err := tx.Exec("INSERT INTO SessionTrack (session_id, position, track_id, skipped) VALUES (?, ?, ?, ?)",
			session.ID, i, trackID, skipped); err != nil {
			return fmt.Errorf("inserting session track %d for %q: %w", i, session.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first, with track order
// restored. limit <= 0 returns all.
func (s *Store) RecentSessions(limit int) ([]stats.ListeningSession, error) {
	query := "SELECT id, start_time, end_time, duration_ms, skipped_tracks, device_name, device_type FROM Session ORDER BY start_time DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []stats.ListeningSession
	for rows.Next() {
		var sess stats.ListeningSession
		var start, end time.Time
		if err := rows.Scan(&sess.ID, &start, &end, &sess.DurationMs,
			&sess.SkippedTracks, &sess.DeviceName, &sess.DeviceType); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.StartTime = start
		sess.EndTime = end
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}

	for i := range sessions {
		tracks, err := s.db.Query("SELECT track_id, skipped FROM SessionTrack WHERE session_id = ? ORDER BY position", sessions[i].ID)
		if err != nil {
			return nil, fmt.Errorf("querying session tracks for %q: %w", sessions[i].ID, err)
		}
		for tracks.Next() {
			var trackID string
			var skipped int
			if err := tracks.Scan(&trackID, &skipped); err != nil {
				tracks.Close()
				return nil, fmt.Errorf("scanning session track: %w", err)
			}
			sessions[i].TrackIDs = append(sessions[i].TrackIDs, trackID)
			sessions[i].SkippedFlags = append(sessions[i].SkippedFlags, skipped != 0)
		}
		if err := tracks.Err(); err != nil {
			tracks.Close()
			return nil, fmt.Errorf("reading session tracks: %w", err)
		}
		tracks.Close()
	}

	return sessions, nil
}
