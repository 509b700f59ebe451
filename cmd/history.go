// Copyright 2026 CleverData
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"log"

	"github.com/cleverdata/docsbuild/internal/db"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyKind string
var historyLimit int

func openJournal() (*db.Journal, error) {
	cfg, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.DBPath)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the events posted by the agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := openJournal()
		if err != nil {
			return err
		}
		defer journal.Close()

		entries, err := journal.List(historyKind, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No events recorded.")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s %-20s %s", "WHEN", "EVENT", "VALUE")))
		for _, e := range entries {
			fmt.Printf("%-20s %-20s %s\n", humanize.Time(e.RecordedAt), e.Kind, e.Value)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset-history",
	Short: "Clear the event history database",
	Long:  `Clears the local SQLite database that journals the events posted by the agent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := openJournal()
		if err != nil {
			return err
		}
		defer journal.Close()

		if historyKind != "" {
			fmt.Printf("Clearing history for: %s\n", historyKind)
		} else {
			fmt.Println("WARNING: Clearing ENTIRE event history.")
		}

		n, err := journal.Reset(historyKind)
		if err != nil {
			return err
		}
		log.Printf("History reset complete (%d entries removed).", n)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "Only show events of this kind (EnvironmentChanged, UserTypeChange)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of events to show (0 for all)")
	resetCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "Only clear events of this kind")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
}
