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
	"os"
	"path/filepath"

	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var Version = "0.1.0" // Default version

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "docsbuild",
	Short:   "Docs Build Agent",
	Version: Version,
	Long: `The Docs Build Agent tracks the docs-build extension settings, follows the
selected backend environment and runs the extension's build-test tasks.`,

	// Execute prints the error itself.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.docsbuild/config.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Check local folder (Same as EXE) - Best for Dev
		exePath, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(exePath))
		}

		// 2. Check Global ProgramData - Standard for Windows Services
		programData := os.Getenv("PROGRAMDATA")
		if programData != "" {
			viper.AddConfigPath(filepath.Join(programData, "DocsBuild"))
		}

		// 3. Fallback to Home directory
		if dir := dataDir(); dir != "" {
			viper.AddConfigPath(dir)
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DOCSBUILD")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		// Lock it in so 'viper.WriteConfig()' updates the CORRECT file
		viper.SetConfigFile(viper.ConfigFileUsed())
	}
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docsbuild")
}

func setDefaults() {
	dir := dataDir()
	viper.SetDefault("settings_file", filepath.Join(dir, "settings.yaml"))

	// Windows: %PROGRAMDATA%\CleverData\DocsBuild
	// Others:  ~/.docsbuild
	if programData := os.Getenv("ProgramData"); os.Getenv("OS") == "Windows_NT" && programData != "" {
		viper.SetDefault("db_path", filepath.Join(programData, "CleverData", "DocsBuild", "state.db"))
	} else {
		viper.SetDefault("db_path", filepath.Join(dir, "state.db"))
	}

	viper.SetDefault("api.heartbeat_interval", "1m")
	viper.SetDefault("tests.code_path", "code")
	if wd, err := os.Getwd(); err == nil {
		viper.SetDefault("tests.root", wd)
	}
}

// loadAgentConfig decodes the agent configuration from viper.
func loadAgentConfig() (config.AgentConfig, error) {
	var cfg config.AgentConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}
