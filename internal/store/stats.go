package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skipwatch/skipwatch/internal/stats"
)

// SaveStatistics persists the aggregate root as a single JSON document.
func (s *Store) SaveStatistics(data *stats.StatisticsData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshalling statistics: %w", err)
	}
	_, err = s.db.Exec(`
INSERT INTO Statistics (id, data, updated) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated = excluded.updated`,
		string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("saving statistics: %w", err)
	}
	return nil
}

// LoadStatistics returns the persisted aggregate, or a fresh one when none
// has been saved yet.
func (s *Store) LoadStatistics() (*stats.StatisticsData, error) {
	var raw string
	err := s.db.QueryRow("SELECT data FROM Statistics WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return stats.NewStatisticsData(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading statistics: %w", err)
	}
	data := stats.NewStatisticsData()
	if err := json.Unmarshal([]byte(raw), data); err != nil {
		return nil, fmt.Errorf("unmarshalling statistics: %w", err)
	}
	return data, nil
}
