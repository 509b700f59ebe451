package events

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/cleverdata/docsbuild/internal/config"
)

func TestStream_PostDeliversToAllSubscribers(t *testing.T) {
	s := New()

	var a, b []Event
	s.Subscribe(func(e Event) { a = append(a, e) })
	s.Subscribe(func(e Event) { b = append(b, e) })

	s.Post(EnvironmentChanged{Environment: config.EnvironmentPPE})

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("deliveries = %d, %d; want 1, 1", len(a), len(b))
	}
	if a[0].Kind() != KindEnvironmentChanged || a[0].Value() != "PPE" {
		t.Errorf("got %s=%s", a[0].Kind(), a[0].Value())
	}
}

func TestStream_Unsubscribe(t *testing.T) {
	s := New()

	calls := 0
	unsubscribe := s.Subscribe(func(Event) { calls++ })
	s.Post(UserTypeChanged{UserType: config.UserTypeUnknown})
	unsubscribe()
	unsubscribe()
	s.Post(UserTypeChanged{UserType: config.UserTypeUnknown})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStream_PanickingSubscriberIsContained(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithLogger(log.New(&buf, "", 0)))

	delivered := false
	s.Subscribe(func(Event) { panic("boom") })
	s.Subscribe(func(Event) { delivered = true })

	s.Post(UserTypeChanged{UserType: config.UserTypeMicrosoftEmployee})

	if !delivered {
		t.Error("second subscriber not reached")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}
