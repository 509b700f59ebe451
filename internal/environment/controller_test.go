package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cleverdata/docsbuild/internal/config"
	"github.com/cleverdata/docsbuild/internal/events"
	"github.com/cleverdata/docsbuild/internal/repo"
)

type fakeSettings struct {
	mu      sync.Mutex
	values  map[config.Key]any
	panicOn map[config.Key]bool
}

func newFakeSettings(values map[config.Key]any) *fakeSettings {
	if values == nil {
		values = map[config.Key]any{}
	}
	return &fakeSettings{values: values, panicOn: map[config.Key]bool{}}
}

func (f *fakeSettings) set(k config.Key, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[k] = v
}

func (f *fakeSettings) get(k config.Key) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn[k] {
		panic(fmt.Sprintf("cannot read %s", k))
	}
	v, ok := f.values[k]
	return v, ok
}

func (f *fakeSettings) String(k config.Key, def string) string {
	if v, ok := f.get(k); ok {
		return v.(string)
	}
	return def
}

func (f *fakeSettings) Bool(k config.Key, def bool) bool {
	if v, ok := f.get(k); ok {
		return v.(bool)
	}
	return def
}

type fakeChanges struct {
	mu           sync.Mutex
	fn           func(config.Change)
	unsubscribed int
}

func (f *fakeChanges) Subscribe(fn func(config.Change)) func() {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.fn = nil
		f.unsubscribed++
		f.mu.Unlock()
	}
}

func (f *fakeChanges) fire(k config.Key) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(config.Change{Key: k})
	}
}

type fakePrompter struct {
	answer string
	err    error
	asked  chan string
}

func (f *fakePrompter) Prompt(ctx context.Context, message string, actions ...string) (string, error) {
	f.asked <- message
	return f.answer, f.err
}

type fakeWindow struct {
	reloads chan struct{}
}

func (f *fakeWindow) ReloadWindow(ctx context.Context) error {
	f.reloads <- struct{}{}
	return nil
}

type fakeInspector struct {
	repoType config.RepoType
	err      error
	folders  []string
}

func (f *fakeInspector) Inspect(ctx context.Context, folder string) (config.RepoType, repo.Info, error) {
	f.folders = append(f.folders, folder)
	return f.repoType, repo.Info{Name: "docs"}, f.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) record(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type fixture struct {
	settings *fakeSettings
	changes  *fakeChanges
	prompter *fakePrompter
	window   *fakeWindow
	events   *recorder
	ctrl     *Controller
}

func newFixture(t *testing.T, values map[config.Key]any, host func(*Host)) *fixture {
	t.Helper()
	f := &fixture{
		settings: newFakeSettings(values),
		changes:  &fakeChanges{},
		prompter: &fakePrompter{asked: make(chan string, 4)},
		window:   &fakeWindow{reloads: make(chan struct{}, 4)},
		events:   &recorder{},
	}

	h := Host{
		Settings: f.settings,
		Changes:  f.changes,
		Prompter: f.prompter,
		Window:   f.window,
	}
	if host != nil {
		host(&h)
	}

	stream := events.New()
	stream.Subscribe(f.events.record)

	ctrl, err := New(context.Background(), h, stream)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ctrl.Close() })
	f.ctrl = ctrl
	return f
}

func TestNew_ReadsSettings(t *testing.T) {
	f := newFixture(t, map[config.Key]any{
		config.KeyEnvironment:        "PPE",
		config.KeyDebugMode:          true,
		config.KeyUserType:           "Microsoft employee",
		config.KeyRealTimeValidation: true,
	}, nil)

	want := Snapshot{
		Environment:        config.EnvironmentPPE,
		DebugMode:          true,
		RepoType:           config.RepoTypeGitHub,
		UserType:           config.UserTypeMicrosoftEmployee,
		RealTimeValidation: true,
	}
	if got := f.ctrl.Snapshot(); got != want {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}
	if len(f.events.all()) != 0 {
		t.Error("initialisation must not post events")
	}
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t, nil, nil)

	if f.ctrl.Env() != config.EnvironmentProd {
		t.Errorf("env = %q, want PROD", f.ctrl.Env())
	}
	if f.ctrl.DebugMode() {
		t.Error("debug mode should default to false")
	}
	if f.ctrl.UserType() != config.UserTypeUnknown {
		t.Errorf("user type = %q, want Unknown", f.ctrl.UserType())
	}
	if f.ctrl.RealTimeValidation() {
		t.Error("real-time validation should default to false")
	}
}

func TestNew_MissingCapability(t *testing.T) {
	_, err := New(context.Background(), Host{Settings: newFakeSettings(nil)}, events.New())
	if !errors.Is(err, ErrMissingCapability) {
		t.Errorf("error = %v, want ErrMissingCapability", err)
	}
}

func TestRepoType(t *testing.T) {
	tests := []struct {
		name      string
		folders   Folders
		inspector *fakeInspector
		want      config.RepoType
		inspected bool
	}{
		{"no workspace folder", nil, &fakeInspector{repoType: config.RepoTypeAzureDevOps}, config.RepoTypeGitHub, false},
		{"inspector fails", Folders{"/docs"}, &fakeInspector{err: errors.New("not a repository")}, config.RepoTypeGitHub, true},
		{"azure devops", Folders{"/docs", "/other"}, &fakeInspector{repoType: config.RepoTypeAzureDevOps}, config.RepoTypeAzureDevOps, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, func(h *Host) {
				h.Workspace = tt.folders
				h.Inspector = tt.inspector
			})

			if got := f.ctrl.RepoType(); got != tt.want {
				t.Errorf("repo type = %q, want %q", got, tt.want)
			}
			if tt.inspected && (len(tt.inspector.folders) != 1 || tt.inspector.folders[0] != "/docs") {
				t.Errorf("inspected %v, want first folder only", tt.inspector.folders)
			}
			if !tt.inspected && len(tt.inspector.folders) != 0 {
				t.Errorf("inspector should not run, ran on %v", tt.inspector.folders)
			}
		})
	}
}

func TestRepoType_NotRederivedOnChanges(t *testing.T) {
	inspector := &fakeInspector{repoType: config.RepoTypeAzureDevOps}
	f := newFixture(t, nil, func(h *Host) {
		h.Workspace = Folders{"/docs"}
		h.Inspector = inspector
	})

	for _, k := range config.Keys {
		if k == config.KeyDebugMode {
			continue
		}
		f.changes.fire(k)
	}
	if len(inspector.folders) != 1 {
		t.Errorf("inspector ran %d times, want 1", len(inspector.folders))
	}
}

func TestEnvironmentChange(t *testing.T) {
	f := newFixture(t, map[config.Key]any{config.KeyEnvironment: "PROD"}, nil)

	// Same value: no event.
	f.changes.fire(config.KeyEnvironment)
	if n := len(f.events.all()); n != 0 {
		t.Fatalf("no-op change posted %d events", n)
	}

	f.settings.set(config.KeyEnvironment, "PPE")
	f.changes.fire(config.KeyEnvironment)

	got := f.events.all()
	if len(got) != 1 {
		t.Fatalf("events = %v, want one", got)
	}
	changed, ok := got[0].(events.EnvironmentChanged)
	if !ok || changed.Environment != config.EnvironmentPPE {
		t.Errorf("event = %#v", got[0])
	}
	if f.ctrl.Env() != config.EnvironmentPPE {
		t.Errorf("env = %q after change", f.ctrl.Env())
	}
}

func TestEnvironmentChange_NoPriorValue(t *testing.T) {
	f := newFixture(t, map[config.Key]any{config.KeyEnvironment: ""}, nil)

	f.settings.set(config.KeyEnvironment, "PPE")
	f.changes.fire(config.KeyEnvironment)

	if n := len(f.events.all()); n != 0 {
		t.Errorf("posted %d events without a prior value", n)
	}
	if f.ctrl.Env() != config.EnvironmentPPE {
		t.Errorf("env = %q, cache must still be overwritten", f.ctrl.Env())
	}
}

func TestUserTypeChange_AlwaysPosts(t *testing.T) {
	f := newFixture(t, map[config.Key]any{config.KeyUserType: "Public contributor"}, nil)

	f.changes.fire(config.KeyUserType)
	f.settings.set(config.KeyUserType, "Microsoft employee")
	f.changes.fire(config.KeyUserType)

	got := f.events.all()
	if len(got) != 2 {
		t.Fatalf("events = %v, want two", got)
	}
	want := []config.UserType{config.UserTypePublicContributor, config.UserTypeMicrosoftEmployee}
	for i, e := range got {
		changed, ok := e.(events.UserTypeChanged)
		if !ok || changed.UserType != want[i] {
			t.Errorf("event %d = %#v, want %s", i, e, want[i])
		}
	}
	if f.ctrl.UserType() != config.UserTypeMicrosoftEmployee {
		t.Errorf("user type = %q", f.ctrl.UserType())
	}
}

func TestRealTimeValidationChange_IsSilent(t *testing.T) {
	f := newFixture(t, nil, nil)

	f.changes.fire(config.KeyRealTimeValidation)
	f.settings.set(config.KeyRealTimeValidation, true)
	f.changes.fire(config.KeyRealTimeValidation)

	if n := len(f.events.all()); n != 0 {
		t.Errorf("posted %d events", n)
	}
	if !f.ctrl.RealTimeValidation() {
		t.Error("real-time validation not refreshed")
	}
}

func TestDebugModeChange(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		reload bool
	}{
		{"accepted", ReloadAction, true},
		{"dismissed", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, nil)
			f.prompter.answer = tt.answer

			f.settings.set(config.KeyDebugMode, true)
			f.changes.fire(config.KeyDebugMode)

			if !f.ctrl.DebugMode() {
				t.Error("debug mode not refreshed before prompting")
			}

			select {
			case msg := <-f.prompter.asked:
				if msg != ReloadMessage {
					t.Errorf("prompt = %q", msg)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("reload prompt not shown")
			}

			// Close waits for the prompt goroutine, so the reload (if any)
			// has happened once it returns.
			f.ctrl.Close()
			reloaded := len(f.window.reloads) == 1
			if reloaded != tt.reload {
				t.Errorf("reloaded = %v, want %v", reloaded, tt.reload)
			}
			if n := len(f.events.all()); n != 0 {
				t.Errorf("debug mode change posted %d events", n)
			}
		})
	}
}

func TestHandle_PanicIsContained(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.settings.panicOn[config.KeyUserType] = true

	f.changes.fire(config.KeyUserType)

	if n := len(f.events.all()); n != 0 {
		t.Errorf("posted %d events from a failed branch", n)
	}

	// Later notifications still work.
	f.settings.set(config.KeyEnvironment, "PPE")
	f.changes.fire(config.KeyEnvironment)
	if len(f.events.all()) != 1 {
		t.Error("controller stopped handling changes after a failure")
	}
}

func TestClose_Idempotent(t *testing.T) {
	f := newFixture(t, nil, nil)

	if err := f.ctrl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Close(); err != nil {
		t.Fatal(err)
	}
	if f.changes.unsubscribed != 1 {
		t.Errorf("unsubscribed %d times, want 1", f.changes.unsubscribed)
	}
}

func TestController_WithStore(t *testing.T) {
	path := t.TempDir() + "/settings.yaml"
	store, err := config.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	stream := events.New()
	rec := &recorder{}
	stream.Subscribe(rec.record)

	ctrl, err := New(context.Background(), Host{Settings: store, Changes: store}, stream)
	if err != nil {
		t.Fatal(err)
	}
	defer ctrl.Close()

	if _, err := store.Set(config.KeyEnvironment, "PPE"); err != nil {
		t.Fatal(err)
	}
	if ctrl.Env() != config.EnvironmentPPE {
		t.Errorf("env = %q", ctrl.Env())
	}
	got := rec.all()
	if len(got) != 1 || got[0].Kind() != events.KindEnvironmentChanged {
		t.Errorf("events = %v", got)
	}
}
