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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitors Spotify playback until interrupted",
	Long: `Polls the current playback, records skips and completions, tracks
listening sessions and keeps the statistics up to date. Stops cleanly on
SIGINT or SIGTERM, or when re-authentication is needed.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := runMonitor()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	var verbose bool
	monitorCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every classification decision")
	viper.BindPFlag("verbose", monitorCmd.Flags().Lookup("verbose"))

	var flushInterval string
	monitorCmd.Flags().StringVar(&flushInterval, "flush_interval", "1m", "How often to persist statistics")
	viper.BindPFlag("flush_interval", monitorCmd.Flags().Lookup("flush_interval"))
}

func runMonitor() error {
	log := newLogger(viper.GetBool("verbose"))
	t, st, err := liveTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := t.StartCollection(); err != nil {
		return err
	}

	flushEvery := time.Minute
	if d, err := time.ParseDuration(viper.GetString("flush_interval")); err == nil && d > 0 {
		flushEvery = d
	}
	flush := time.NewTicker(flushEvery)
	defer flush.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	// The collector pauses itself when re-authentication is needed; poll its
	// state so the process exits instead of idling forever.
	check := time.NewTicker(time.Second)
	defer check.Stop()

	for {
		select {
		case sig := <-signals:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			if err := t.StopCollection(); err != nil {
				return err
			}
			fmt.Print(libraryAnalysis(t.LibraryStats()))
			return nil
		case <-flush.C:
			if err := t.TriggerAggregation(); err != nil {
				log.Warn().Err(err).Msg("flushing statistics")
			}
		case <-check.C:
			if t.AuthRequired() {
				if err := t.StopCollection(); err != nil {
					log.Warn().Err(err).Msg("stopping collection")
				}
				return fmt.Errorf("authentication expired, run 'skipwatch authenticate' again")
			}
		}
	}
}
