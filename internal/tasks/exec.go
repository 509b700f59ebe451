package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// GitSubmodules runs `git submodule update` in Dir.
type GitSubmodules struct {
	Dir     string
	GitPath string
}

func (g GitSubmodules) Update(ctx context.Context, args ...string) error {
	gitPath := g.GitPath
	if gitPath == "" {
		gitPath = "git"
	}
	cmdArgs := append([]string{"-C", g.Dir, "submodule", "update"}, args...)
	output, err := exec.CommandContext(ctx, gitPath, cmdArgs...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("git submodule update: %w\nOutput: %s", err, output)
	}
	return nil
}

// CodeLauncher starts an editor executable in extension test mode.
type CodeLauncher struct {
	Executable string
	Stdout     io.Writer
	Stderr     io.Writer
}

// Command builds the editor invocation for opts without starting it.
func (l CodeLauncher) Command(ctx context.Context, opts LaunchOptions) *exec.Cmd {
	executable := l.Executable
	if executable == "" {
		executable = "code"
	}

	args := []string{
		"--extensionDevelopmentPath=" + opts.ExtensionDevelopmentPath,
		"--extensionTestsPath=" + opts.ExtensionTestsPath,
	}
	args = append(args, opts.LaunchArgs...)

	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Env = os.Environ()
	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, k+"="+opts.Env[k])
	}
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return cmd
}

func (l CodeLauncher) RunTests(ctx context.Context, opts LaunchOptions) error {
	cmd := l.Command(ctx, opts)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s exited: %w", cmd.Path, err)
	}
	return nil
}
