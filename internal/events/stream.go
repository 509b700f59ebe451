// Package events carries notifications from the environment controller to
// the rest of the agent.
package events

import (
	"log"
	"sync"

	"github.com/cleverdata/docsbuild/internal/config"
)

// Event is anything posted on a Stream.
type Event interface {
	Kind() string
	Value() string
}

const (
	KindEnvironmentChanged = "EnvironmentChanged"
	KindUserTypeChanged    = "UserTypeChange"
)

// EnvironmentChanged is posted when the environment setting moves to a
// different value.
type EnvironmentChanged struct {
	Environment config.Environment
}

func (EnvironmentChanged) Kind() string    { return KindEnvironmentChanged }
func (e EnvironmentChanged) Value() string { return string(e.Environment) }

// UserTypeChanged is posted on every user type notification, even when the
// value is unchanged.
type UserTypeChanged struct {
	UserType config.UserType
}

func (UserTypeChanged) Kind() string    { return KindUserTypeChanged }
func (e UserTypeChanged) Value() string { return string(e.UserType) }

// Stream delivers events synchronously to every subscriber in the posting
// goroutine.
type Stream struct {
	logger *log.Logger

	mu     sync.RWMutex
	subs   map[uint64]func(Event)
	nextID uint64
}

// Option customises a Stream.
type Option func(*Stream)

// WithLogger overrides the logger used to report subscriber panics.
func WithLogger(logger *log.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(opts ...Option) *Stream {
	s := &Stream{
		logger: log.Default(),
		subs:   make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn and returns a func that removes it. The returned
// func may be called more than once.
func (s *Stream) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Post delivers e to all current subscribers. A panicking subscriber is
// logged and does not prevent delivery to the others.
func (s *Stream) Post(e Event) {
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		s.deliver(fn, e)
	}
}

func (s *Stream) deliver(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("event subscriber panicked on %s: %v", e.Kind(), r)
		}
	}()
	fn(e)
}
