// Package api talks to the docs build backend selected by the current
// environment setting.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/events"
	"github.com/go-resty/resty/v2"
)

var (
	ErrUnknownEnvironment = errors.New("no endpoint for environment")
	ErrUnhealthy          = errors.New("backend check failed")
)

// DefaultEndpoints maps each environment to its backend.
var DefaultEndpoints = map[config.Environment]string{
	config.EnvironmentProd: "https://op-build-prod.azurewebsites.net",
	config.EnvironmentPPE:  "https://op-build-sandbox2.azurewebsites.net",
}

// Client is a resty client whose base URL follows the environment.
type Client struct {
	http      *resty.Client
	endpoints map[config.Environment]string

	mu  sync.RWMutex
	env config.Environment
}

// NewClient targets env. Entries in overrides replace the default endpoint
// for that environment.
func NewClient(env config.Environment, overrides map[string]string) (*Client, error) {
	endpoints := make(map[config.Environment]string, len(DefaultEndpoints))
	for e, u := range DefaultEndpoints {
		endpoints[e] = u
	}
	for e, u := range overrides {
		endpoints[config.Environment(strings.ToUpper(e))] = strings.TrimRight(u, "/")
	}

	c := &Client{
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "docsbuild-agent"),
		endpoints: endpoints,
	}
	if err := c.SetEnvironment(env); err != nil {
		return nil, err
	}
	return c, nil
}

// SetEnvironment re-targets the client.
func (c *Client) SetEnvironment(env config.Environment) error {
	if _, ok := c.endpoints[env]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEnvironment, env)
	}
	c.mu.Lock()
	c.env = env
	c.mu.Unlock()
	return nil
}

func (c *Client) Environment() config.Environment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env
}

// BaseURL is the endpoint of the current environment.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints[c.env]
}

// Check asks the backend whether it is reachable.
func (c *Client) Check(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.BaseURL() + "/health")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode())
	}
	return nil
}

// Follow re-targets the client whenever the environment changes on stream.
func (c *Client) Follow(stream *events.Stream, logger func(string, ...interface{})) (unsubscribe func()) {
	return stream.Subscribe(func(e events.Event) {
		changed, ok := e.(events.EnvironmentChanged)
		if !ok {
			return
		}
		if err := c.SetEnvironment(changed.Environment); err != nil {
			if logger != nil {
				logger("Keeping %s backend: %v", c.Environment(), err)
			}
			return
		}
		if logger != nil {
			logger("Backend switched to %s (%s)", changed.Environment, c.BaseURL())
		}
	})
}

// Pinger checks the backend every interval until ctx is cancelled.
func Pinger(ctx context.Context, client *Client, interval time.Duration, logger func(string, ...interface{})) {
	if interval <= 0 {
		interval = 1 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.Check(ctx); err != nil {
				if logger != nil {
					logger("[%s] Heartbeat failed: %v", client.Environment(), err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
