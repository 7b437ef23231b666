package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ArtistGenres returns the cached genre list for an artist, or ok=false when
// the artist has never been fetched.
func (s *Store) ArtistGenres(artistID string) (genres []string, ok bool, err error) {
	var name string
	var lastUpdated sql.NullTime
	err = s.db.QueryRow("SELECT name, genres_last_updated FROM Artist WHERE id = ?", artistID).Scan(&name, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("checking artist %q: %w", artistID, err)
	}

	rows, err := s.db.Query("SELECT genre FROM ArtistGenre WHERE artist = ? ORDER BY genre", artistID)
	if err != nil {
		return nil, false, fmt.Errorf("querying genres for %q: %w", artistID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, false, fmt.Errorf("scanning genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, true, rows.Err()
}

// SaveArtistGenres records an artist's genres and marks the fetch time.
func (s *Store) SaveArtistGenres(artistID, artistName string, genres []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
INSERT INTO Artist (id, name, genres_last_updated) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, genres_last_updated = excluded.genres_last_updated`,
		artistID, artistName, time.Now())
	if err != nil {
		return fmt.Errorf("upserting artist %q: %w", artistID, err)
	}

	if _, err := tx.Exec("DELETE FROM ArtistGenre WHERE artist = ?", artistID); err != nil {
		return fmt.Errorf("clearing genres for %q: %w", artistID, err)
	}
	for _, g := range genres {
		if _, err := tx.Exec("INSERT OR IGNORE INTO ArtistGenre (artist, genre) VALUES (?, ?)", artistID, g); err != nil {
			return fmt.Errorf("linking genre %q to artist %q: %w", g, artistID, err)
		}
	}

	return tx.Commit()
}
