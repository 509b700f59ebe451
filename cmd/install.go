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

	"github.com/cleverdata/docsbuild/internal/core"
	"github.com/cleverdata/docsbuild/internal/host"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const serviceName = "DocsBuildAgent"

// program implements the service.Interface
type program struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, s)
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

func (p *program) run(ctx context.Context, s service.Service) {
	defer close(p.done)

	logger, err := s.Logger(nil)
	if err != nil {
		logger = service.ConsoleLogger
	}

	cfg, err := loadAgentConfig()
	if err != nil {
		logger.Error(err)
		return
	}

	logger.Info("Docs Build Agent Starting as Service...")
	err = core.Run(ctx, cfg, core.Options{
		Prompter: &host.UnattendedPrompter{Logger: logger},
	}, logger)
	if err != nil {
		logger.Errorf("Agent stopped: %v", err)
	}
}

func getService(configPath string) (service.Service, error) {
	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: "Docs Build Agent",
		Description: "Tracks docs-build extension settings and follows the selected backend.",
		Arguments:   args,
	}

	prg := &program{}
	return service.New(prg, svcConfig)
}

// withService runs fn against the installed service, reporting setup errors.
func withService(fn func(s service.Service)) {
	s, err := getService(viper.ConfigFileUsed())
	if err != nil {
		fmt.Println(err)
		return
	}
	fn(s)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the Docs Build Agent as a system service",
	Run: func(cmd *cobra.Command, args []string) {
		// Find current config file to pass to the service
		configPath := viper.ConfigFileUsed()
		if configPath == "" {
			fmt.Println("Error: No config file found. Pass --config or create config.yaml first.")
			return
		}

		s, err := getService(configPath)
		if err != nil {
			fmt.Printf("Setup failed: %v\n", err)
			return
		}

		// Check if already installed
		status, err := s.Status()
		if err == nil {
			fmt.Println("Docs Build Agent is already installed.")
			if status == service.StatusRunning {
				fmt.Println("Service is currently RUNNING.")
			} else {
				fmt.Println("Service is currently STOPPED.")
			}
			fmt.Println("Use 'docsbuild restart' to apply config changes, or 'docsbuild uninstall' to remove it.")
			return
		}

		fmt.Println("Installing Docs Build Agent Service...")
		if err := s.Install(); err != nil {
			fmt.Printf("Failed to install: %v\n", err)
			fmt.Println("Hint: Ensure you are running as Administrator/root.")
			return
		}
		fmt.Println("Service installed successfully.")

		fmt.Println("Starting service...")
		if err := s.Start(); err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			return
		}
		fmt.Println("Service started.")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the Docs Build Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		withService(func(s service.Service) {
			// Ignore stop errors, it might not be running
			_ = s.Stop()

			if err := s.Uninstall(); err != nil {
				fmt.Printf("Failed to uninstall: %v\n", err)
				return
			}
			fmt.Println("Service uninstalled.")
		})
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the Docs Build Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		withService(func(s service.Service) {
			fmt.Println("Restarting Docs Build Agent Service...")
			if err := s.Restart(); err != nil {
				fmt.Printf("Failed to restart: %v\n", err)
				return
			}
			fmt.Println("Service restarted.")
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Docs Build Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		withService(func(s service.Service) {
			fmt.Println("Stopping Docs Build Agent Service...")
			if err := s.Stop(); err != nil {
				fmt.Printf("Failed to stop: %v\n", err)
				return
			}
			fmt.Println("Service stopped.")
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Docs Build Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		withService(func(s service.Service) {
			fmt.Println("Starting Docs Build Agent Service...")
			if err := s.Start(); err != nil {
				fmt.Printf("Failed to start: %v\n", err)
				return
			}
			fmt.Println("Service started.")
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the Docs Build Agent Service",
	Run: func(cmd *cobra.Command, args []string) {
		withService(func(s service.Service) {
			status, err := s.Status()
			if err != nil {
				fmt.Printf("Could not get status: %v\n", err)
				return
			}

			statusStr := "Unknown"
			switch status {
			case service.StatusRunning:
				statusStr = "Running"
			case service.StatusStopped:
				statusStr = "Stopped"
			}

			fmt.Printf("Docs Build Agent Service Status: %s\n", statusStr)
		})
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
}
