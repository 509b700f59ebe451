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
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/environment"
	"github.com/cleverdata/docsbuild/internal/events"
	"github.com/cleverdata/docsbuild/internal/repo"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func openStore() (*config.Store, config.AgentConfig, error) {
	cfg, err := loadAgentConfig()
	if err != nil {
		return nil, cfg, err
	}
	store, err := config.NewStore(cfg.SettingsFile)
	return store, cfg, err
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the extension settings",
}

var configListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Show the current extension settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}

		ctrl, err := environment.New(cmd.Context(), environment.Host{
			Settings:  store,
			Changes:   store,
			Workspace: environment.Folders(cfg.Workspace),
			Inspector: repo.NewInspector(),
		}, events.New())
		if err != nil {
			return err
		}
		defer ctrl.Close()

		snap := ctrl.Snapshot()
		fmt.Printf("Settings: %s\n\n", store.Path())
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-50s %s", "SETTING", "VALUE")))
		fmt.Printf("%-50s %s\n", config.KeyEnvironment, snap.Environment)
		fmt.Printf("%-50s %v\n", config.KeyDebugMode, snap.DebugMode)
		fmt.Printf("%-50s %s\n", config.KeyUserType, snap.UserType)
		fmt.Printf("%-50s %v\n", config.KeyRealTimeValidation, snap.RealTimeValidation)
		fmt.Printf("%-50s %s (derived)\n", "repository type", snap.RepoType)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [setting]",
	Short: "Print one extension setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := config.ParseKey(args[0])
		if err != nil {
			return err
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}

		switch key {
		case config.KeyEnvironment:
			fmt.Println(store.String(key, string(config.DefaultEnvironment)))
		case config.KeyUserType:
			fmt.Println(store.String(key, string(config.DefaultUserType)))
		case config.KeyDebugMode:
			fmt.Println(store.Bool(key, config.DefaultDebugMode))
		case config.KeyRealTimeValidation:
			fmt.Println(store.Bool(key, config.DefaultRealTimeValidation))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [setting] [value]",
	Short: "Change one extension setting",
	Long: `Writes the setting into the settings file. A running agent picks the change
up through its file watcher.`,
	Example: `  docsbuild config set environment PPE
  docsbuild config set debugMode true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := config.ParseKey(args[0])
		if err != nil {
			return err
		}
		value, err := parseValue(key, args[1])
		if err != nil {
			return err
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}

		changes, err := store.Set(key, value)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Printf("%s already set to %v\n", key, value)
			return nil
		}
		fmt.Printf("%s set to %v\n", key, value)
		return nil
	},
}

func parseValue(key config.Key, raw string) (any, error) {
	switch key {
	case config.KeyDebugMode, config.KeyRealTimeValidation:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", key, err)
		}
		return b, nil
	default:
		return raw, nil
	}
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
