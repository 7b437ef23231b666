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

var removeTrackID string

var skippedCmd = &cobra.Command{
	Use:   "skipped",
	Short: "Lists skipped tracks, most skipped first",
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		if removeTrackID != "" {
			err = runRemoveSkipped(removeTrackID)
		} else {
			err = runSkipped()
		}
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(skippedCmd)

	skippedCmd.Flags().StringVar(&removeTrackID, "remove", "", "Remove the record for the given track ID")
}

func runSkipped() error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := t.SkippedTracks()
	if err != nil {
		return fmt.Errorf("loading skipped tracks: %w", err)
	}
	fmt.Print(skippedAnalysis(records))
	return nil
}

func runRemoveSkipped(trackID string) error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := t.RemoveSkippedTrack(trackID); err != nil {
		return err
	}
	fmt.Printf("Removed skip record for %s\n", trackID)
	return nil
}
