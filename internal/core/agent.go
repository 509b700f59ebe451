package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cleverdata/docsbuild/internal/api"
	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/db"
	"github.com/cleverdata/docsbuild/internal/environment"
	"github.com/cleverdata/docsbuild/internal/events"
	"github.com/cleverdata/docsbuild/internal/host"
	"github.com/cleverdata/docsbuild/internal/repo"
)

// Logger is the logging surface shared with the service manager.
type Logger = environment.Logger

// StdLogger writes through the standard log package. It is used when the
// agent runs in the foreground.
type StdLogger struct{}

func (StdLogger) Info(v ...interface{}) error {
	log.Print(append([]interface{}{"INFO: "}, v...)...)
	return nil
}

func (StdLogger) Infof(format string, v ...interface{}) error {
	log.Printf("INFO: "+format, v...)
	return nil
}

func (StdLogger) Error(v ...interface{}) error {
	log.Print(append([]interface{}{"ERROR: "}, v...)...)
	return nil
}

func (StdLogger) Errorf(format string, v ...interface{}) error {
	log.Printf("ERROR: "+format, v...)
	return nil
}

func (StdLogger) Warning(v ...interface{}) error {
	log.Print(append([]interface{}{"WARNING: "}, v...)...)
	return nil
}

func (StdLogger) Warningf(format string, v ...interface{}) error {
	log.Printf("WARNING: "+format, v...)
	return nil
}

func debugLog(logger Logger, enabled bool, format string, v ...interface{}) {
	if enabled && logger != nil {
		logger.Infof("[DEBUG] "+format, v...)
	}
}

// Options carries the host capabilities that differ between foreground and
// service mode.
type Options struct {
	Prompter environment.Prompter
	// Window reloads the agent. When nil, Run restarts itself in-process,
	// which is what both foreground and service mode use.
	Window environment.Window
	// Ready, when set, receives the controller of every (re)started run.
	Ready func(*environment.Controller)
}

// Run starts the agent and blocks until ctx is cancelled. A window reload
// accepted by the user tears everything down and starts over with freshly
// read settings.
func Run(ctx context.Context, cfg config.AgentConfig, opts Options, logger Logger) error {
	for {
		reload, err := runOnce(ctx, cfg, opts, logger)
		if err != nil {
			return err
		}
		if !reload {
			return nil
		}
		if logger != nil {
			logger.Info("Reloading agent...")
		}
	}
}

func runOnce(ctx context.Context, cfg config.AgentConfig, opts Options, logger Logger) (bool, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logf := func(format string, v ...interface{}) {
		if logger != nil {
			logger.Infof(format, v...)
		}
	}
	warnf := func(format string, v ...interface{}) {
		if logger != nil {
			logger.Warningf(format, v...)
		}
	}

	store, err := config.NewStore(cfg.SettingsFile)
	if err != nil {
		return false, err
	}

	stream := events.New()

	journal, err := db.Open(cfg.DBPath)
	if err != nil {
		return false, err
	}
	defer journal.Close()
	journal.Attach(stream, warnf)

	window := opts.Window
	var reloads <-chan struct{}
	if window == nil {
		signal := host.NewSignalReloader()
		window, reloads = signal, signal.C
	}

	ctrl, err := environment.New(runCtx, environment.Host{
		Settings:  store,
		Changes:   store,
		Prompter:  opts.Prompter,
		Window:    window,
		Workspace: environment.Folders(cfg.Workspace),
		Inspector: repo.NewInspector(),
	}, stream, environment.WithLogger(logger))
	if err != nil {
		return false, fmt.Errorf("failed to initialize environment: %w", err)
	}
	defer ctrl.Close()

	snap := ctrl.Snapshot()
	logf("Environment: %s | Repo: %s | User: %s | Debug: %v | Real-time validation: %v",
		snap.Environment, snap.RepoType, snap.UserType, snap.DebugMode, snap.RealTimeValidation)

	stream.Subscribe(func(e events.Event) {
		logf("%s: %s", e.Kind(), e.Value())
	})

	if !cfg.API.Disabled {
		client, err := api.NewClient(ctrl.Env(), cfg.API.Endpoints)
		if err != nil {
			warnf("Backend client disabled: %v", err)
		} else {
			client.Follow(stream, logf)
			interval, err := time.ParseDuration(cfg.API.HeartbeatInterval)
			if err != nil {
				interval = 1 * time.Minute
			}
			debugLog(logger, ctrl.DebugMode(), "Checking %s every %s", client.BaseURL(), interval)
			go api.Pinger(runCtx, client, interval, warnf)
		}
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- config.Watch(runCtx, store, config.DefaultDebounce, logf)
	}()
	logf("Watching settings: %s", store.Path())

	if opts.Ready != nil {
		opts.Ready(ctrl)
	}

	select {
	case <-ctx.Done():
		return false, nil
	case <-reloads:
		return true, nil
	case err := <-watchErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, nil
	}
}
