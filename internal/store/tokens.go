package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// SaveToken persists the OAuth token, replacing any previous one.
func (s *Store) SaveToken(tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	_, err = s.db.Exec(`
INSERT INTO Auth (id, token, updated) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated = excluded.updated`,
		string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// LoadToken returns the persisted OAuth token, or nil when the user has not
// authenticated yet.
func (s *Store) LoadToken() (*oauth2.Token, error) {
	var raw string
	err := s.db.QueryRow("SELECT token FROM Auth WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, fmt.Errorf("unmarshalling token: %w", err)
	}
	return tok, nil
}
