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
	"log"
	"os"
	"os/signal"

	"github.com/cleverdata/docsbuild/internal/tasks"
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test [task]",
	Short: "Run the extension's test tasks",
	Long: `Runs one of the build-test tasks against the extension sources in tests.root:

  test:e2e   update the fixture submodule and run the end-to-end suite
             (requires ` + tasks.TokenEnv + `)
  test:unit  run the unit suite
  test       run test:e2e, then test:unit (default)`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{tasks.TaskE2E, tasks.TaskUnit, tasks.TaskTest},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAgentConfig()
		if err != nil {
			return err
		}

		name := tasks.TaskTest
		if len(args) == 1 {
			name = args[0]
		}

		paths := tasks.DefaultPaths(cfg.Tests.Root)
		if cfg.Tests.TestAssets != "" {
			paths.TestAssets = cfg.Tests.TestAssets
		}
		if cfg.Tests.Output != "" {
			paths.Output = cfg.Tests.Output
		}

		runner := tasks.NewRunner(paths,
			tasks.GitSubmodules{Dir: paths.Root},
			tasks.CodeLauncher{Executable: cfg.Tests.CodePath, Stdout: os.Stdout, Stderr: os.Stderr},
			tasks.WithLogf(log.Printf),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		log.Printf("Starting '%s'...", name)
		if err := runner.Run(ctx, name); err != nil {
			return err
		}
		log.Printf("Finished '%s'", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
