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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/skipwatch/skipwatch/internal/monitor"
)

var cfgFile string
var clientID string
var clientSecret string
var redirectURI string
var databasePath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skipwatch",
	Short: "Tracks and analyses skipped Spotify tracks",
	Long: `Monitors the current playback, detects skipped tracks, and keeps
rolling daily/weekly/monthly, artist and genre statistics.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.skipwatch.yaml)")

	rootCmd.PersistentFlags().StringVar(
		&clientID, "client_id", "", "Spotify application client ID")
	viper.BindPFlag("client_id", rootCmd.PersistentFlags().Lookup("client_id"))

	rootCmd.PersistentFlags().StringVar(
		&clientSecret, "client_secret", "", "Spotify application client secret")
	viper.BindPFlag("client_secret", rootCmd.PersistentFlags().Lookup("client_secret"))

	rootCmd.PersistentFlags().StringVar(
		&redirectURI, "redirect_uri", "http://127.0.0.1:8888/callback", "OAuth redirect URI")
	viper.BindPFlag("redirect_uri", rootCmd.PersistentFlags().Lookup("redirect_uri"))

	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./skipwatch.db", "Path to the SQLite database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".skipwatch" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".skipwatch")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

// monitorConfig builds the pipeline config from viper, falling back to the
// defaults for anything unset or unparsable.
func monitorConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	if v := viper.GetString("poll_interval"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if v := viper.GetString("session_timeout"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTimeout = d
		}
	}
	if v := viper.GetString("completion_grace"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CompletionGrace = d
		}
	}
	if viper.IsSet("completion_ratio") {
		if r := viper.GetFloat64("completion_ratio"); r > 0 && r <= 1 {
			cfg.CompletionRatio = r
		}
	}
	if v := viper.GetString("min_play"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.MinPlay = d
		}
	}
	if viper.IsSet("unlike_threshold") {
		cfg.UnlikeThreshold = viper.GetInt("unlike_threshold")
	}
	return cfg
}
