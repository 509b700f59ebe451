// Package environment tracks the extension settings that decide which
// backend to talk to and how the extension behaves, and reacts to live
// changes of those settings.
package environment

import (
	"context"
	"errors"

	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/repo"
)

var ErrMissingCapability = errors.New("host capability not provided")

// Settings reads extension settings, falling back to def when unset.
type Settings interface {
	String(key config.Key, def string) string
	Bool(key config.Key, def bool) bool
}

// ChangeSource delivers one Change per modified setting, serially.
type ChangeSource interface {
	Subscribe(fn func(config.Change)) (unsubscribe func())
}

// Prompter shows a modal message and returns the chosen action, or "" when
// the message was dismissed.
type Prompter interface {
	Prompt(ctx context.Context, message string, actions ...string) (string, error)
}

// Window reloads the host window (or whatever the host treats as one).
type Window interface {
	ReloadWindow(ctx context.Context) error
}

// Workspace lists the folders open in the host.
type Workspace interface {
	Folders() []string
}

// Inspector classifies the repository checked out in a folder.
type Inspector interface {
	Inspect(ctx context.Context, folder string) (config.RepoType, repo.Info, error)
}

// Host bundles the capabilities the controller needs. Settings and Changes
// are required; the rest degrade gracefully when nil.
type Host struct {
	Settings  Settings
	Changes   ChangeSource
	Prompter  Prompter
	Window    Window
	Workspace Workspace
	Inspector Inspector
}

// Folders is a fixed Workspace.
type Folders []string

func (f Folders) Folders() []string { return f }

// Logger matches the logging surface of service.Logger.
type Logger interface {
	Info(v ...interface{}) error
	Infof(format string, v ...interface{}) error
	Error(v ...interface{}) error
	Errorf(format string, v ...interface{}) error
	Warning(v ...interface{}) error
	Warningf(format string, v ...interface{}) error
}
