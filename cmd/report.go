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
)

var reportCmd = &cobra.Command{
	Use:   "report [daily|weekly|monthly|summary]",
	Short: "Prints listening statistics",
	Long: `Prints the aggregated listening statistics for the requested period,
or the overall library summary.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		period := "summary"
		if len(args) == 1 {
			period = args[0]
		}
		err := runReport(period)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(period string) error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	if period == "summary" {
		fmt.Print(libraryAnalysis(t.LibraryStats()))
		return nil
	}

	analysis, err := periodAnalysis(t.Statistics(), period)
	if err != nil {
		return err
	}
	fmt.Print(analysis)
	return nil
}
