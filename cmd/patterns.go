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

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Detects listening patterns in the recorded history",
	Long: `Looks for skip-heavy hours, artists and genres with high skip rates,
and consecutive-skip streaks within sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := runPatterns()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns() error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	patterns, err := t.DetectPatterns()
	if err != nil {
		return err
	}
	fmt.Print(patternsAnalysis(patterns))
	return nil
}
