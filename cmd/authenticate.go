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
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/skipwatch/skipwatch/internal/auth"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Runs the Spotify OAuth flow and stores the token",
	Long: `Opens the authorization URL, waits for the redirect on the configured
redirect_uri and persists the resulting token in the database.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := authenticate()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(authenticateCmd)
}

func authenticate() error {
	clientID := viper.GetString("client_id")
	clientSecret := viper.GetString("client_secret")
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("client_id and client_secret must be set")
	}

	redirect := viper.GetString("redirect_uri")
	redirectURL, err := url.Parse(redirect)
	if err != nil {
		return fmt.Errorf("parsing redirect_uri: %w", err)
	}

	cfg := auth.Config(clientID, clientSecret, redirect)
	state := uuid.NewString()

	type callback struct {
		code string
		err  error
	}
	codes := make(chan callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirectURL.Path, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			codes <- callback{err: fmt.Errorf("state mismatch in callback")}
			return
		}
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			codes <- callback{err: fmt.Errorf("authorization denied: %s", e)}
			return
		}
		fmt.Fprintln(w, "Authenticated, you can close this window.")
		codes <- callback{code: r.URL.Query().Get("code")}
	})
	server := &http.Server{Addr: redirectURL.Host, Handler: mux}
	go server.ListenAndServe()
	defer server.Close()

	fmt.Println("Open this URL in your browser to authorize:")
	fmt.Println(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	var cb callback
	select {
	case cb = <-codes:
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timed out waiting for the authorization callback")
	}
	if cb.err != nil {
		return cb.err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tok, err := cfg.Exchange(ctx, cb.code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()
	if err := st.SaveToken(tok); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	fmt.Println("Successfully authenticated")
	return nil
}
