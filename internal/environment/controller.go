package environment

import (
	"context"
	"fmt"
	"sync"

	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/events"
)

const (
	ReloadMessage = "This configuration change requires reloading your current window!"
	ReloadAction  = "Reload"
)

// Snapshot is a copy of every cached setting.
type Snapshot struct {
	Environment        config.Environment
	DebugMode          bool
	RepoType           config.RepoType
	UserType           config.UserType
	RealTimeValidation bool
}

// Controller caches the extension settings and keeps them current as the
// change source reports modifications.
type Controller struct {
	host   Host
	stream *events.Stream
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu                 sync.RWMutex
	env                config.Environment
	debugMode          bool
	repoType           config.RepoType
	userType           config.UserType
	realTimeValidation bool

	lifeMu      sync.Mutex
	closed      bool
	unsubscribe func()
	prompts     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New reads every setting, derives the repository type from the first
// workspace folder and subscribes to setting changes. The returned
// controller is fully initialised; on error nothing is left subscribed.
func New(ctx context.Context, host Host, stream *events.Stream, opts ...Option) (*Controller, error) {
	if host.Settings == nil {
		return nil, fmt.Errorf("%w: settings", ErrMissingCapability)
	}
	if host.Changes == nil {
		return nil, fmt.Errorf("%w: change source", ErrMissingCapability)
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: event stream", ErrMissingCapability)
	}

	c := &Controller{
		host:   host,
		stream: stream,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.env = c.readEnv()
	c.debugMode = c.readDebugMode()
	c.repoType = c.resolveRepoType(ctx)
	c.userType = c.readUserType()
	c.realTimeValidation = c.readRealTimeValidation()

	if err := ctx.Err(); err != nil {
		c.cancel()
		return nil, err
	}

	c.unsubscribe = host.Changes.Subscribe(c.handle)
	return c, nil
}

// Close stops listening for setting changes and waits for any open reload
// prompt to finish. Calling Close more than once is a no-op.
func (c *Controller) Close() error {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return nil
	}
	c.closed = true
	c.lifeMu.Unlock()

	c.unsubscribe()
	c.cancel()
	c.prompts.Wait()
	return nil
}

func (c *Controller) Env() config.Environment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env
}

func (c *Controller) DebugMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debugMode
}

// RepoType is resolved once during New and never re-derived.
func (c *Controller) RepoType() config.RepoType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repoType
}

func (c *Controller) UserType() config.UserType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userType
}

func (c *Controller) RealTimeValidation() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realTimeValidation
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Environment:        c.env,
		DebugMode:          c.debugMode,
		RepoType:           c.repoType,
		UserType:           c.userType,
		RealTimeValidation: c.realTimeValidation,
	}
}

func (c *Controller) handle(change config.Change) {
	c.lifeMu.Lock()
	closed := c.closed
	c.lifeMu.Unlock()
	if closed {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.errorf("Handling change of %s failed: %v", change.Key, r)
		}
	}()

	switch change.Key {
	case config.KeyEnvironment:
		c.refreshEnv()

	case config.KeyDebugMode:
		debugMode := c.readDebugMode()
		c.mu.Lock()
		c.debugMode = debugMode
		c.mu.Unlock()
		c.reloadWindow()

	case config.KeyUserType:
		userType := c.readUserType()
		c.mu.Lock()
		c.userType = userType
		c.mu.Unlock()
		c.stream.Post(events.UserTypeChanged{UserType: userType})

	case config.KeyRealTimeValidation:
		realTimeValidation := c.readRealTimeValidation()
		c.mu.Lock()
		c.realTimeValidation = realTimeValidation
		c.mu.Unlock()

	default:
		c.debugf("Ignoring change of %s", change.Key)
	}
}

func (c *Controller) refreshEnv() {
	env := c.readEnv()

	c.mu.Lock()
	previous := c.env
	c.env = env
	c.mu.Unlock()

	if previous != "" && previous != env {
		c.debugf("Environment changed: %s -> %s", previous, env)
		c.stream.Post(events.EnvironmentChanged{Environment: env})
	}
}

// reloadWindow asks the user to reload without blocking change delivery.
func (c *Controller) reloadWindow() {
	if c.host.Prompter == nil || c.host.Window == nil {
		c.warningf("Debug mode changed; reload the window to apply it")
		return
	}

	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return
	}
	c.prompts.Add(1)
	c.lifeMu.Unlock()

	go func() {
		defer c.prompts.Done()
		defer func() {
			if r := recover(); r != nil {
				c.errorf("Reload prompt failed: %v", r)
			}
		}()

		selected, err := c.host.Prompter.Prompt(c.ctx, ReloadMessage, ReloadAction)
		if err != nil {
			c.warningf("Reload prompt failed: %v", err)
			return
		}
		if selected != ReloadAction {
			return
		}
		if err := c.host.Window.ReloadWindow(c.ctx); err != nil {
			c.errorf("Window reload failed: %v", err)
		}
	}()
}

func (c *Controller) resolveRepoType(ctx context.Context) config.RepoType {
	if c.host.Workspace == nil || c.host.Inspector == nil {
		return config.FallbackRepoType
	}
	folders := c.host.Workspace.Folders()
	if len(folders) == 0 {
		return config.FallbackRepoType
	}

	repoType, _, err := c.host.Inspector.Inspect(ctx, folders[0])
	if err != nil {
		c.debugf("Repository inspection of %s failed: %v", folders[0], err)
		return config.FallbackRepoType
	}
	return repoType
}

func (c *Controller) readEnv() config.Environment {
	return config.Environment(c.host.Settings.String(config.KeyEnvironment, string(config.DefaultEnvironment)))
}

func (c *Controller) readDebugMode() bool {
	return c.host.Settings.Bool(config.KeyDebugMode, config.DefaultDebugMode)
}

func (c *Controller) readUserType() config.UserType {
	return config.UserType(c.host.Settings.String(config.KeyUserType, string(config.DefaultUserType)))
}

func (c *Controller) readRealTimeValidation() bool {
	return c.host.Settings.Bool(config.KeyRealTimeValidation, config.DefaultRealTimeValidation)
}

func (c *Controller) debugf(format string, v ...interface{}) {
	if c.logger != nil && c.DebugMode() {
		c.logger.Infof("[DEBUG] "+format, v...)
	}
}

func (c *Controller) warningf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Warningf(format, v...)
	}
}

func (c *Controller) errorf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Errorf(format, v...)
	}
}
