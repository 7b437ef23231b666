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
	"github.com/spf13/viper"
)

var artistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "Prints the most-played artists with their skip rates",
	Run: func(cmd *cobra.Command, args []string) {
		err := runArtists(viper.GetInt("artists_number"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "Prints the most-played genres with their skip rates",
	Run: func(cmd *cobra.Command, args []string) {
		err := runGenres(viper.GetInt("genres_number"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(artistsCmd)
	rootCmd.AddCommand(genresCmd)

	var numArtists int
	artistsCmd.Flags().IntVarP(&numArtists, "number", "n", 20, "Number of artists to show")
	viper.BindPFlag("artists_number", artistsCmd.Flags().Lookup("number"))

	var numGenres int
	genresCmd.Flags().IntVarP(&numGenres, "number", "n", 20, "Number of genres to show")
	viper.BindPFlag("genres_number", genresCmd.Flags().Lookup("number"))
}

func runArtists(numToReturn int) error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Print(artistsAnalysis(t.Statistics(), numToReturn))
	return nil
}

func runGenres(numToReturn int) error {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Print(genresAnalysis(t.Statistics(), numToReturn))
	return nil
}
