package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/events"
)

func TestNewClient_Endpoints(t *testing.T) {
	c, err := NewClient(config.EnvironmentProd, map[string]string{"ppe": "http://localhost:9999/"})
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != DefaultEndpoints[config.EnvironmentProd] {
		t.Errorf("base URL = %s", c.BaseURL())
	}

	if err := c.SetEnvironment(config.EnvironmentPPE); err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://localhost:9999" {
		t.Errorf("override not applied: %s", c.BaseURL())
	}

	if err := c.SetEnvironment("STAGING"); !errors.Is(err, ErrUnknownEnvironment) {
		t.Errorf("error = %v, want ErrUnknownEnvironment", err)
	}
	if c.Environment() != config.EnvironmentPPE {
		t.Error("failed SetEnvironment must keep the previous target")
	}
}

func TestClient_Check(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	c, err := NewClient(config.EnvironmentProd, map[string]string{"PROD": srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy backend: %v", err)
	}

	status.Store(http.StatusServiceUnavailable)
	if err := c.Check(context.Background()); !errors.Is(err, ErrUnhealthy) {
		t.Errorf("error = %v, want ErrUnhealthy", err)
	}
}

func TestClient_FollowsEnvironment(t *testing.T) {
	c, err := NewClient(config.EnvironmentProd, nil)
	if err != nil {
		t.Fatal(err)
	}

	stream := events.New()
	unsubscribe := c.Follow(stream, nil)

	stream.Post(events.UserTypeChanged{UserType: config.UserTypeMicrosoftEmployee})
	if c.Environment() != config.EnvironmentProd {
		t.Error("unrelated event changed the target")
	}

	stream.Post(events.EnvironmentChanged{Environment: config.EnvironmentPPE})
	if c.BaseURL() != DefaultEndpoints[config.EnvironmentPPE] {
		t.Errorf("base URL = %s after environment change", c.BaseURL())
	}

	unsubscribe()
	stream.Post(events.EnvironmentChanged{Environment: config.EnvironmentProd})
	if c.Environment() != config.EnvironmentPPE {
		t.Error("client followed after unsubscribe")
	}
}

func TestPinger_LogsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(config.EnvironmentProd, map[string]string{"PROD": srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	failures := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Pinger(ctx, c, 10*time.Millisecond, func(format string, v ...interface{}) {
			select {
			case failures <- format:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-failures:
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat failure reported")
	}
	cancel()
	<-done
}
