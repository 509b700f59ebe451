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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cleverdata/docsbuild/internal/core"
	"github.com/cleverdata/docsbuild/internal/host"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunAgent runs the agent in the foreground until interrupted.
func RunAgent() error {
	cfg, err := loadAgentConfig()
	if err != nil {
		return err
	}

	fmt.Println("Docs Build Agent Starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return core.Run(ctx, cfg, core.Options{
		Prompter: &host.TerminalPrompter{In: os.Stdin, Out: os.Stdout},
	}, core.StdLogger{})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Long:  `Runs the settings watcher directly. Also invoked by the service manager.`,
	Run: func(cmd *cobra.Command, args []string) {
		if service.Interactive() {
			if err := RunAgent(); err != nil {
				log.Fatalf("Agent stopped: %v", err)
			}
			return
		}

		// Under the service manager we MUST call s.Run() to check in.
		s, err := getService(viper.ConfigFileUsed())
		if err != nil {
			log.Fatalf("Failed to initialize service: %v", err)
		}
		if err := s.Run(); err != nil {
			log.Fatalf("Service failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
