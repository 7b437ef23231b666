/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/skipwatch/skipwatch/internal/stats"
	"github.com/skipwatch/skipwatch/internal/tracker"
)

type Analysis struct {
	results [][]string
	summary string
}

func (a Analysis) String() string {
	out := new(bytes.Buffer)
	if len(a.results) <= 1 {
		fmt.Fprintln(out, "No data recorded yet.")
		fmt.Fprintf(out, "%s\n", a.summary)
		return out.String()
	}
	table := tablewriter.NewWriter(out)
	table.Header(a.results[0])
	for _, row := range a.results[1:] {
		if err := table.Append(row); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Sprintf("Error rendering table: %v", err)
	}
	fmt.Fprintf(out, "%s\n", a.summary)
	return out.String()
}

// HTML renders the analysis as an email-friendly table.
func (a Analysis) HTML() string {
	out := new(bytes.Buffer)
	if len(a.results) <= 1 {
		fmt.Fprintln(out, "<div>No data recorded yet.</div>")
	} else {
		fmt.Fprintln(out, "<table>\n<thead>\n<tr>")
		for _, header := range a.results[0] {
			fmt.Fprintf(out, "<th>%s</th>", header)
		}
		fmt.Fprintln(out, "</tr>\n</thead>\n<tbody>")
		for _, row := range a.results[1:] {
			fmt.Fprintln(out, "<tr>")
			for _, column := range row {
				fmt.Fprintf(out, "<td>%s</td>\n", column)
			}
			fmt.Fprintln(out, "</tr>")
		}
		fmt.Fprintln(out, "</tbody>\n</table>")
	}
	fmt.Fprintf(out, "<div>%s</div>\n", a.summary)
	return out.String()
}

func formatListeningTime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return d.Round(time.Minute).String()
}

func periodAnalysis(data *stats.StatisticsData, period string) (Analysis, error) {
	var analysis Analysis
	switch period {
	case "daily":
		analysis.results = [][]string{{"Day", "Played", "Skipped", "Skip rate", "Artists", "Listening", "Peak hour"}}
		keys := make([]string, 0, len(data.Daily))
		for k := range data.Daily {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := data.Daily[k]
			peak := "-"
			if h := m.PeakHour(); h >= 0 {
				peak = fmt.Sprintf("%02d:00", h)
			}
			analysis.results = append(analysis.results, []string{
				m.PeriodKey,
				strconv.Itoa(m.TracksPlayed),
				strconv.Itoa(m.TracksSkipped),
				fmt.Sprintf("%.0f%%", m.SkipRate()*100),
				strconv.Itoa(len(m.UniqueArtists)),
				formatListeningTime(m.ListeningTimeMs),
				peak,
			})
		}
	case "weekly":
		analysis.results = [][]string{{"Week", "Played", "Skipped", "Skip rate", "Artists", "Listening", "Most active day"}}
		keys := make([]string, 0, len(data.Weekly))
		for k := range data.Weekly {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := data.Weekly[k]
			day := m.MostActiveDay()
			if day == "" {
				day = "-"
			}
			analysis.results = append(analysis.results, []string{
				m.PeriodKey,
				strconv.Itoa(m.TracksPlayed),
				strconv.Itoa(m.TracksSkipped),
				fmt.Sprintf("%.0f%%", m.SkipRate()*100),
				strconv.Itoa(len(m.UniqueArtists)),
				formatListeningTime(m.ListeningTimeMs),
				day,
			})
		}
	case "monthly":
		analysis.results = [][]string{{"Month", "Played", "Skipped", "Skip rate", "Artists", "Listening", "Trend"}}
		keys := make([]string, 0, len(data.Monthly))
		for k := range data.Monthly {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m := data.Monthly[k]
			analysis.results = append(analysis.results, []string{
				m.PeriodKey,
				strconv.Itoa(m.TracksPlayed),
				strconv.Itoa(m.TracksSkipped),
				fmt.Sprintf("%.0f%%", m.SkipRate()*100),
				strconv.Itoa(len(m.UniqueArtists)),
				formatListeningTime(m.ListeningTimeMs),
				m.WeeklyTrend(),
			})
		}
	default:
		return analysis, fmt.Errorf("unknown period %q, expected daily, weekly or monthly", period)
	}

	analysis.summary = fmt.Sprintf("Overall: %d plays, %d skips (%.0f%% skip rate)",
		data.TotalPlays, data.TotalSkips, data.OverallSkipRate()*100)
	return analysis, nil
}

func artistsAnalysis(data *stats.StatisticsData, numToReturn int) Analysis {
	var analysis Analysis
	analysis.results = [][]string{{"Artist", "Plays", "Skips", "Skip rate", "Avg before skip"}}
	for _, id := range data.TopArtistIDs(numToReturn) {
		m := data.Artists[id]
		analysis.results = append(analysis.results, []string{
			m.ArtistName,
			strconv.Itoa(m.Plays),
			strconv.Itoa(m.Skips),
			fmt.Sprintf("%.0f%%", m.SkipRate()*100),
			formatListeningTime(m.AvgListeningBeforeSkipMs()),
		})
	}
	analysis.summary = fmt.Sprintf("Found %d artists", len(data.Artists))
	return analysis
}

func genresAnalysis(data *stats.StatisticsData, numToReturn int) Analysis {
	var analysis Analysis
	analysis.results = [][]string{{"Genre", "Plays", "Skips", "Skip rate"}}
	for _, g := range data.TopGenres(numToReturn) {
		m := data.Genres[g]
		analysis.results = append(analysis.results, []string{
			g,
			strconv.Itoa(m.Plays),
			strconv.Itoa(m.Skips),
			fmt.Sprintf("%.0f%%", m.SkipRate()*100),
		})
	}
	analysis.summary = fmt.Sprintf("Found %d genres", len(data.Genres))
	return analysis
}

func skippedAnalysis(records []*stats.SkippedTrackRecord) Analysis {
	var analysis Analysis
	analysis.results = [][]string{{"Track", "Artist", "Skips", "Completions", "Last skipped", "ID"}}
	for _, rec := range records {
		last := "-"
		if !rec.LastSkippedAt.IsZero() {
			last = rec.LastSkippedAt.Format("2006-01-02 15:04")
		}
		name := rec.TrackName
		if rec.Unliked {
			name += " (unliked)"
		}
		analysis.results = append(analysis.results, []string{
			name,
			rec.ArtistName,
			strconv.Itoa(rec.SkipCount),
			strconv.Itoa(rec.NotSkippedCount),
			last,
			rec.TrackID,
		})
	}
	analysis.summary = fmt.Sprintf("Found %d skipped tracks", len(records))
	return analysis
}

func patternsAnalysis(patterns []stats.DetectedPattern) Analysis {
	var analysis Analysis
	analysis.results = [][]string{{"Type", "Description", "Confidence"}}
	for _, p := range patterns {
		analysis.results = append(analysis.results, []string{
			p.Type,
			p.Description,
			fmt.Sprintf("%.2f", p.Confidence),
		})
	}
	analysis.summary = fmt.Sprintf("Detected %d patterns", len(patterns))
	return analysis
}

func libraryAnalysis(ls tracker.LibraryStats) Analysis {
	var analysis Analysis
	analysis.results = [][]string{
		{"Metric", "Value"},
		{"Total plays", strconv.Itoa(ls.TotalPlays)},
		{"Total skips", strconv.Itoa(ls.TotalSkips)},
		{"Sessions", strconv.Itoa(ls.TotalSessions)},
		{"Listening time", formatListeningTime(ls.TotalListeningMs)},
		{"Overall skip rate", fmt.Sprintf("%.0f%%", ls.OverallSkipRate*100)},
		{"Discovery rate", fmt.Sprintf("%.0f%%", ls.DiscoveryRate*100)},
	}
	analysis.summary = ""
	return analysis
}
