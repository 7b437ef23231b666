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

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/skipwatch/skipwatch/internal/auth"
	"github.com/skipwatch/skipwatch/internal/spotify"
	"github.com/skipwatch/skipwatch/internal/store"
	"github.com/skipwatch/skipwatch/internal/tracker"
)

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func openStore() (*store.Store, error) {
	return store.New(viper.GetString("database"))
}

// readOnlyTracker opens the store and builds a tracker for commands that only
// read persisted data. The caller closes the store.
func readOnlyTracker(log zerolog.Logger) (*tracker.Tracker, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return tracker.NewReadOnly(st, log), st, nil
}

// liveTracker wires the full pipeline: persisted token, guard, client,
// collector. Fails when no token has been stored yet.
func liveTracker(log zerolog.Logger) (*tracker.Tracker, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	tok, err := st.LoadToken()
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("loading token: %w", err)
	}
	if tok == nil {
		st.Close()
		return nil, nil, fmt.Errorf("no stored credentials, run 'skipwatch authenticate' first")
	}

	cfg := auth.Config(
		viper.GetString("client_id"),
		viper.GetString("client_secret"),
		viper.GetString("redirect_uri"))
	guard := auth.NewGuard(cfg, tok, st)
	client := spotify.NewClient(guard, log)

	return tracker.New(monitorConfig(), st, client, guard, log), st, nil
}
