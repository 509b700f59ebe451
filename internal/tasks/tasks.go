// Package tasks sequences the extension's build-test tasks: updating the
// fixture submodule and launching the end-to-end and unit test suites in the
// editor.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	TokenEnv        = "VSCODE_DOCS_BUILD_EXTENSION_GITHUB_TOKEN"
	OutputFolderEnv = "VSCODE_DOCS_BUILD_EXTENSION_OUTPUT_FOLDER"

	E2ETestRepo       = "vscode-docs-build-e2e-test"
	DisableExtensions = "--disable-extensions"

	TaskE2E  = "test:e2e"
	TaskUnit = "test:unit"
	TaskTest = "test"
)

var (
	ErrMissingToken = errors.New("required environment variable is not set")
	ErrUnknownTask  = errors.New("unknown task")
)

// Paths locates the extension sources and test fixtures.
type Paths struct {
	Root       string
	TestAssets string
	Output     string
}

// DefaultPaths derives the fixture and output folders from root.
func DefaultPaths(root string) Paths {
	return Paths{
		Root:       root,
		TestAssets: filepath.Join(root, ".vscode-test-assets"),
		Output:     filepath.Join(root, ".temp", "debug"),
	}
}

// LaunchOptions describes one test-suite launch.
type LaunchOptions struct {
	ExtensionDevelopmentPath string
	ExtensionTestsPath       string
	Env                      map[string]string
	LaunchArgs               []string
}

// Launcher starts the editor with a compiled test entry point and waits for
// it to exit.
type Launcher interface {
	RunTests(ctx context.Context, opts LaunchOptions) error
}

// Submodules updates the git submodules of a checkout.
type Submodules interface {
	Update(ctx context.Context, args ...string) error
}

// Step is one runnable task.
type Step func(ctx context.Context) error

// Series runs steps one after another, stopping at the first failure.
func Series(steps ...Step) Step {
	return func(ctx context.Context) error {
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Runner owns the test tasks.
type Runner struct {
	paths      Paths
	submodules Submodules
	launcher   Launcher
	lookupEnv  func(string) (string, bool)
	logf       func(string, ...interface{})
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.lookupEnv = fn
		}
	}
}

func WithLogf(fn func(string, ...interface{})) RunnerOption {
	return func(r *Runner) {
		r.logf = fn
	}
}

func NewRunner(paths Paths, submodules Submodules, launcher Launcher, opts ...RunnerOption) *Runner {
	r := &Runner{
		paths:      paths,
		submodules: submodules,
		launcher:   launcher,
		lookupEnv:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// E2E runs the end-to-end suite against the fixture repository. The token is
// checked before anything else so a misconfigured run has no side effects.
func (r *Runner) E2E(ctx context.Context) error {
	token, ok := r.lookupEnv(TokenEnv)
	if !ok || token == "" {
		return fmt.Errorf("%w: cannot get %q from environment variable", ErrMissingToken, TokenEnv)
	}

	r.log("Initializing submodules in %s", r.paths.Root)
	if err := r.submodules.Update(ctx, "--init"); err != nil {
		return fmt.Errorf("failed to update submodules: %w", err)
	}

	r.log("Running end-to-end tests")
	err := r.launcher.RunTests(ctx, LaunchOptions{
		ExtensionDevelopmentPath: r.paths.Root,
		ExtensionTestsPath:       filepath.Join(r.paths.Root, "out", "test", "e2eTests", "index"),
		Env: map[string]string{
			TokenEnv:        token,
			OutputFolderEnv: r.paths.Output,
		},
		LaunchArgs: []string{filepath.Join(r.paths.TestAssets, E2ETestRepo), DisableExtensions},
	})
	if err != nil {
		return fmt.Errorf("end-to-end tests failed: %w", err)
	}
	return nil
}

// Unit runs the unit suite.
func (r *Runner) Unit(ctx context.Context) error {
	r.log("Running unit tests")
	err := r.launcher.RunTests(ctx, LaunchOptions{
		ExtensionDevelopmentPath: r.paths.Root,
		ExtensionTestsPath:       filepath.Join(r.paths.Root, "out", "test", "unitTests", "index"),
		Env: map[string]string{
			OutputFolderEnv: r.paths.Output,
		},
		LaunchArgs: []string{DisableExtensions},
	})
	if err != nil {
		return fmt.Errorf("unit tests failed: %w", err)
	}
	return nil
}

// Test runs the end-to-end suite to completion, then the unit suite.
func (r *Runner) Test(ctx context.Context) error {
	return Series(r.E2E, r.Unit)(ctx)
}

// Tasks returns the named tasks.
func (r *Runner) Tasks() map[string]Step {
	return map[string]Step{
		TaskE2E:  r.E2E,
		TaskUnit: r.Unit,
		TaskTest: r.Test,
	}
}

// Names lists the task names in sorted order.
func (r *Runner) Names() []string {
	var names []string
	for name := range r.Tasks() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the task called name.
func (r *Runner) Run(ctx context.Context, name string) error {
	step, ok := r.Tasks()[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return step(ctx)
}

func (r *Runner) log(format string, v ...interface{}) {
	if r.logf != nil {
		r.logf(format, v...)
	}
}
