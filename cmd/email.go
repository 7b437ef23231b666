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

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var emailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Emails a skip report",
	Long: `Sends the library summary, the most skipped tracks and the detected
patterns to the given address via SendGrid.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := sendSkipReport(args[0], viper.GetString("from"), viper.GetBool("dryRun"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	var from string
	emailCmd.Flags().StringVar(&from, "from", "", "From email address")
	viper.BindPFlag("from", emailCmd.Flags().Lookup("from"))

	var dryRun bool
	emailCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", emailCmd.Flags().Lookup("dry_run"))

	var sendgridAPIKey string
	emailCmd.Flags().StringVar(&sendgridAPIKey, "sendgrid_api_key", "", "SendGrid API key")
	viper.BindPFlag("sendgrid_api_key", emailCmd.Flags().Lookup("sendgrid_api_key"))
}

func sendSkipReport(toAddress, fromAddress string, dryRun bool) error {
	subject, body, err := generateSkipReport()
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Printf("Would have sent email: \nsubject: %s\n%s\n", subject, body)
		return nil
	}

	apiKey := viper.GetString("sendgrid_api_key")
	if apiKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	from := mail.NewEmail("skipwatch", fromAddress)
	to := mail.NewEmail(toAddress, toAddress)
	message := mail.NewSingleEmail(from, subject, to, body, body)
	client := sendgrid.NewSendClient(apiKey)
	if _, err := client.Send(message); err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	fmt.Printf("Sent skip report to %s\n", toAddress)
	return nil
}

func generateSkipReport() (subject string, body string, err error) {
	log := newLogger(false)
	t, st, err := readOnlyTracker(log)
	if err != nil {
		return "", "", err
	}
	defer st.Close()

	records, err := t.SkippedTracks()
	if err != nil {
		return "", "", fmt.Errorf("loading skipped tracks: %w", err)
	}
	patterns, err := t.DetectPatterns()
	if err != nil {
		return "", "", err
	}

	out := `
<html>
  <head>
<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>
  </head>
  <body>
`
	sections := []struct {
		title    string
		analysis Analysis
	}{
		{"Library summary", libraryAnalysis(t.LibraryStats())},
		{"Most skipped tracks", skippedAnalysis(records)},
		{"Detected patterns", patternsAnalysis(patterns)},
	}
	for _, section := range sections {
		out += fmt.Sprintf("<div>\n<h2>%s</h2>\n", section.title)
		out += section.analysis.HTML()
		out += "</div>\n"
	}
	out += `  </body>
</html>
`

	subject = fmt.Sprintf("Skip report for %s", time.Now().Format("2006-01-02"))
	return subject, out, nil
}
