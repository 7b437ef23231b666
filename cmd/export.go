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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skipwatch/skipwatch/internal/tracker"
)

var exportFormat string
var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [skipped|statistics]",
	Short: "Exports skipped tracks or statistics to a file",
	Long: `Exports the requested dataset. Skipped tracks support csv and json,
statistics only json. The statistics export reloads to identical aggregates.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := runExport(args[0], exportFormat, exportOutput)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Output file path")
}

func runExport(dataset, format, path string) error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	if path == "" {
		path = fmt.Sprintf("skipwatch-%s.%s", dataset, format)
	}

	var result tracker.ExportResult
	switch {
	case dataset == "skipped" && format == "csv":
		result = t.ExportSkippedTracksCSV(path)
	case dataset == "skipped" && format == "json":
		result = t.ExportSkippedTracksJSON(path)
	case dataset == "statistics" && format == "json":
		result = t.ExportStatisticsJSON(path)
	case dataset == "statistics":
		return fmt.Errorf("statistics export supports only json")
	default:
		return fmt.Errorf("unknown dataset %q or format %q", dataset, format)
	}

	if !result.Success {
		return fmt.Errorf("export failed: %s", result.Message)
	}
	fmt.Printf("%s: %s\n", result.Message, result.FilePath)
	return nil
}
