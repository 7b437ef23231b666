package tracker

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ExportResult is the uniform result shape for export operations. Failures
// are reported here, never as panics out of the control surface.
type ExportResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	FilePath string `json:"filePath,omitempty"`
}

func exportFailure(err error) ExportResult {
	return ExportResult{Success: false, Message: err.Error()}
}

// ExportSkippedTracksCSV writes the skipped-track records to a CSV file.
func (t *Tracker) ExportSkippedTracksCSV(path string) ExportResult {
	records, err := t.SkippedTracks()
	if err != nil {
		return exportFailure(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return exportFailure(fmt.Errorf("creating %s: %w", path, err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"track_id", "track_name", "artist_name", "skip_count", "not_skipped_count", "last_skipped_at"}
	if err := w.Write(header); err != nil {
		return exportFailure(fmt.Errorf("writing header: %w", err))
	}
	for _, rec := range records {
		row := []string{
			rec.TrackID,
			rec.TrackName,
			rec.ArtistName,
			strconv.Itoa(rec.SkipCount),
			strconv.Itoa(rec.NotSkippedCount),
			rec.LastSkippedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return exportFailure(fmt.Errorf("writing row: %w", err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exportFailure(fmt.Errorf("flushing csv: %w", err))
	}

	return ExportResult{
		Success:  true,
		Message:  fmt.Sprintf("exported %d skipped tracks", len(records)),
		FilePath: path,
	}
}

// ExportSkippedTracksJSON writes the skipped-track records as JSON.
func (t *Tracker) ExportSkippedTracksJSON(path string) ExportResult {
	records, err := t.SkippedTracks()
	if err != nil {
		return exportFailure(err)
	}
	if err := writeJSON(path, records); err != nil {
		return exportFailure(err)
	}
	return ExportResult{
		Success:  true,
		Message:  fmt.Sprintf("exported %d skipped tracks", len(records)),
		FilePath: path,
	}
}

// ExportStatisticsJSON writes the statistics snapshot in the same form the
// store persists, so an exported file reloads to identical aggregates.
func (t *Tracker) ExportStatisticsJSON(path string) ExportResult {
	if err := writeJSON(path, t.agg.Snapshot()); err != nil {
		return exportFailure(err)
	}
	return ExportResult{Success: true, Message: "exported statistics", FilePath: path}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
