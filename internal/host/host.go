// Package host provides the agent's implementations of the capabilities the
// environment controller asks its host for.
package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/cleverdata/docsbuild/internal/environment"
)

// TerminalPrompter asks on Out and reads the answer from In. An empty or
// unrecognised answer dismisses the prompt.
//
// A single goroutine reads In for the lifetime of the prompter, so a
// cancelled prompt never holds on to a line meant for a later one.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer

	once    sync.Once
	lines   chan string
	readErr error
	turn    chan struct{}
}

func (p *TerminalPrompter) start() {
	p.lines = make(chan string)
	p.turn = make(chan struct{}, 1)
	go func() {
		scanner := bufio.NewScanner(p.In)
		for scanner.Scan() {
			p.lines <- strings.TrimSpace(scanner.Text())
		}
		p.readErr = scanner.Err()
		close(p.lines)
	}()
}

func (p *TerminalPrompter) Prompt(ctx context.Context, message string, actions ...string) (string, error) {
	p.once.Do(p.start)

	// One prompt on screen at a time.
	select {
	case p.turn <- struct{}{}:
		defer func() { <-p.turn }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	fmt.Fprintf(p.Out, "\n%s\n", message)
	for i, a := range actions {
		fmt.Fprintf(p.Out, "  [%d] %s\n", i+1, a)
	}
	fmt.Fprint(p.Out, "Choose an action (Enter to dismiss): ")

	select {
	case line, ok := <-p.lines:
		if !ok {
			if p.readErr != nil {
				return "", fmt.Errorf("failed to read answer: %w", p.readErr)
			}
			return "", nil
		}
		return matchAction(line, actions), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func matchAction(answer string, actions []string) string {
	if answer == "" {
		return ""
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(actions) {
		return actions[n-1]
	}
	for _, a := range actions {
		if strings.EqualFold(a, answer) {
			return a
		}
	}
	return ""
}

// UnattendedPrompter is used when nobody can answer, e.g. under the service
// manager. Every prompt is accepted with its first action.
type UnattendedPrompter struct {
	Logger environment.Logger
}

func (p *UnattendedPrompter) Prompt(ctx context.Context, message string, actions ...string) (string, error) {
	if len(actions) == 0 {
		return "", nil
	}
	if p.Logger != nil {
		p.Logger.Warningf("%s (unattended, choosing %q)", message, actions[0])
	}
	return actions[0], nil
}

// SignalReloader asks an in-process run loop to tear down and start over.
// ReloadWindow never blocks.
type SignalReloader struct {
	C chan struct{}
}

func NewSignalReloader() *SignalReloader {
	return &SignalReloader{C: make(chan struct{}, 1)}
}

func (r *SignalReloader) ReloadWindow(ctx context.Context) error {
	select {
	case r.C <- struct{}{}:
	default:
		// A reload is already pending.
	}
	return nil
}
