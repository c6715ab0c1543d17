package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/manash/iconforge/internal/dispatch"
	"github.com/manash/iconforge/internal/image"
	"github.com/manash/iconforge/internal/keys"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/pkg/models"
)

// mockProvider implements provider.Provider for testing.
type mockProvider struct {
	err error

	mu      sync.Mutex
	prompts []string
}

func (m *mockProvider) Name() models.ProviderType { return models.ProviderGoogle }

func (m *mockProvider) Generate(_ context.Context, req *models.Request) (*provider.Image, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	// "icon"
	return &provider.Image{URL: "data:image/png;base64,aWNvbg=="}, nil
}

func (m *mockProvider) SupportsModel(string) bool { return true }
func (m *mockProvider) ListModels() []string      { return []string{"gemini-2.5-flash-image"} }

func (m *mockProvider) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// harness runs commands against one data directory.
type harness struct {
	t        *testing.T
	dataDir  string
	env      map[string]string
	provider *mockProvider
	in       string
	out      bytes.Buffer
	errOut   bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfgDir := t.TempDir()
	t.Setenv("ICONFORGE_CONFIG_DIR", cfgDir)
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte("[batch]\ndelay_ms = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &harness{
		t:        t,
		dataDir:  t.TempDir(),
		env:      map[string]string{"GOOGLE_AI_API_KEY": "test-google-key-1234"},
		provider: &mockProvider{},
	}
}

// newTestApp creates an App configured for testing.
func (h *harness) newTestApp() *App {
	return &App{
		In:       strings.NewReader(h.in),
		Out:      &h.out,
		Err:      &h.errOut,
		Registry: models.DefaultRegistry(),
		GetEnv:   func(key string) string { return h.env[key] },
		Constructors: map[models.ProviderType]provider.Constructor{
			models.ProviderGoogle: func(_ context.Context, cfg *provider.Config, _ *models.ModelRegistry) (provider.Provider, error) {
				if cfg.APIKey == "" {
					return nil, provider.ErrAPIKeyRequired
				}
				return h.provider, nil
			},
		},
		NewSaver: image.NewSaver,
		ReadSecret: func() (string, error) {
			return "", errors.New("no terminal")
		},
	}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()
	cmd := newRootCmd(h.newTestApp())
	cmd.SetArgs(append([]string{"--data-dir", h.dataDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return h.out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v\nstderr: %s", args, err, h.errOut.String())
	}
	return out
}

func TestDefaultApp(t *testing.T) {
	app := DefaultApp()

	if app.In == nil || app.Out == nil || app.Err == nil {
		t.Error("DefaultApp() streams not set")
	}
	if app.Registry == nil {
		t.Error("DefaultApp() Registry is nil")
	}
	if app.GetEnv == nil || app.NewSaver == nil || app.ReadSecret == nil {
		t.Error("DefaultApp() hooks not set")
	}
	for _, p := range models.KnownProviders() {
		if app.Constructors[p] == nil {
			t.Errorf("DefaultApp() has no constructor for %s", p)
		}
	}

	os.Setenv("TEST_VAR_123", "test_value")
	defer os.Unsetenv("TEST_VAR_123")
	if app.GetEnv("TEST_VAR_123") != "test_value" {
		t.Error("DefaultApp() GetEnv doesn't work")
	}
}

func TestNewRootCmd(t *testing.T) {
	h := newHarness(t)
	cmd := newRootCmd(h.newTestApp())

	for _, name := range []string{"config", "env-file", "data-dir", "log-level", "google-key", "openai-key"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("flag --%s not found", name)
		}
	}

	want := []string{"serve", "generate", "studio", "project", "queue", "keys", "styles", "palettes", "providers", "gallery", "costs", "storage"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not found", name)
		}
	}
}

func TestGenerate_SavesFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "sword.png")

	out := h.mustRun("generate", "a flaming sword", "--style", "pixel-art", "-o", path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if string(data) != "icon" {
		t.Errorf("file content = %q, want decoded data URI", data)
	}
	if !strings.Contains(out, "Saved: "+path) {
		t.Errorf("output missing saved path:\n%s", out)
	}

	calls := h.provider.calls()
	if len(calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(calls))
	}
	for _, want := range []string{"a flaming sword", "pixel art style", "game icon", "no text", "square composition"} {
		if !strings.Contains(calls[0], want) {
			t.Errorf("composed prompt missing %q: %s", want, calls[0])
		}
	}

	out = h.mustRun("project", "show")
	if !strings.Contains(out, "Icons (0)") {
		t.Errorf("generate without --save added an icon:\n%s", out)
	}
}

func TestGenerate_RawAndSave(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "gem.png")

	out := h.mustRun("generate", "a blue gem", "--raw", "--save", "-o", path)
	if !strings.Contains(out, "Added to "+project.DefaultProjectName) {
		t.Errorf("output missing save confirmation:\n%s", out)
	}
	if calls := h.provider.calls(); len(calls) != 1 || calls[0] != "a blue gem" {
		t.Errorf("raw prompt was composed: %v", calls)
	}

	out = h.mustRun("project", "show")
	if !strings.Contains(out, "Icons (1)") {
		t.Errorf("icon not saved:\n%s", out)
	}
	out = h.mustRun("costs")
	if !strings.Contains(out, "(1 images)") {
		t.Errorf("cost not logged:\n%s", out)
	}
}

func TestGenerate_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad aspect", []string{"generate", "a shield", "--aspect", "4:3"}},
		{"unknown style", []string{"generate", "a shield", "--style", "baroque"}},
		{"no prompt", []string{"generate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if _, err := h.run(tt.args...); err == nil {
				t.Error("expected error")
			}
			if n := len(h.provider.calls()); n != 0 {
				t.Errorf("provider called %d times", n)
			}
		})
	}
}

func TestGenerate_NoProviders(t *testing.T) {
	h := newHarness(t)
	h.env = map[string]string{}

	_, err := h.run("generate", "a shield", "-o", filepath.Join(t.TempDir(), "x.png"))
	if !dispatch.IsKind(err, dispatch.KindNoProviders) {
		t.Errorf("error = %v, want no-providers", err)
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	h := newHarness(t)
	h.provider.err = &provider.APIError{Provider: models.ProviderGoogle, StatusCode: 429, Message: "RESOURCE_EXHAUSTED"}

	_, err := h.run("generate", "a shield", "-o", filepath.Join(t.TempDir(), "x.png"))
	var de *dispatch.Error
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *dispatch.Error", err)
	}
	if de.Provider != models.ProviderGoogle {
		t.Errorf("Provider = %q", de.Provider)
	}
}

func TestProjectLifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("project", "create", "Space Game", "--theme", "sci-fi", "-d", "lasers", "--use")
	if !strings.Contains(out, "Created project Space Game") || !strings.Contains(out, "Switched to Space Game") {
		t.Errorf("create output:\n%s", out)
	}

	out = h.mustRun("project", "list")
	var current string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "*") {
			current = line
		}
	}
	if !strings.Contains(current, "Space Game") {
		t.Errorf("current marker not on new project:\n%s", out)
	}

	out = h.mustRun("project", "show", "space game")
	if !strings.Contains(out, "lasers") || !strings.Contains(out, "Sci-Fi") {
		t.Errorf("show output:\n%s", out)
	}

	exported := filepath.Join(t.TempDir(), "space.json")
	h.mustRun("project", "export", "Space Game", "-o", exported)
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	var p project.Project
	if err := json.Unmarshal(data, &p); err != nil || p.Name != "Space Game" {
		t.Fatalf("export = %s (err %v)", data, err)
	}

	out = h.mustRun("project", "import", exported)
	if !strings.Contains(out, "Imported Space Game") {
		t.Errorf("import output:\n%s", out)
	}

	h.mustRun("project", "delete", p.ID)
	out = h.mustRun("project", "list")
	if strings.Count(out, "Space Game") != 1 {
		t.Errorf("want the imported copy only:\n%s", out)
	}

	if _, err := h.run("project", "use", "nope"); err == nil {
		t.Error("use of unknown project succeeded")
	}
	if _, err := h.run("project", "create", "X", "--theme", "gothic"); err == nil {
		t.Error("unknown theme accepted")
	}
}

func TestProjectDownload(t *testing.T) {
	h := newHarness(t)
	h.mustRun("generate", "a red potion", "--save", "-o", filepath.Join(t.TempDir(), "p.png"))

	dir := t.TempDir()
	out := h.mustRun("project", "download", "--dir", dir)
	if !strings.Contains(out, "Downloaded 1 icons") {
		t.Errorf("download output:\n%s", out)
	}
	files, err := os.ReadDir(image.ProjectDir(dir, project.DefaultProjectName))
	if err != nil || len(files) != 1 {
		t.Errorf("project dir has %d files (err %v)", len(files), err)
	}
}

func TestQueueAddListRun(t *testing.T) {
	h := newHarness(t)

	h.mustRun("queue", "add", "a wooden bow", "--priority", "1")
	h.mustRun("queue", "add", "a steel axe", "--priority", "5", "--name", "Axe")

	out := h.mustRun("queue", "list")
	if strings.Index(out, "Axe") > strings.Index(out, "a wooden bow") {
		t.Errorf("queue not sorted by priority:\n%s", out)
	}

	out = h.mustRun("queue", "run")
	if !strings.Contains(out, "Completed: 2/2 items") {
		t.Errorf("run output:\n%s", out)
	}
	calls := h.provider.calls()
	if len(calls) != 2 || !strings.HasPrefix(calls[0], "a steel axe") {
		t.Errorf("run order = %v", calls)
	}

	out = h.mustRun("queue", "run")
	if !strings.Contains(out, "Nothing to run") {
		t.Errorf("second run output:\n%s", out)
	}

	out = h.mustRun("queue", "clear")
	if !strings.Contains(out, "Removed 2 finished item(s)") {
		t.Errorf("clear output:\n%s", out)
	}
	out = h.mustRun("project", "show")
	if !strings.Contains(out, "Icons (2)") {
		t.Errorf("completed items not kept as icons:\n%s", out)
	}
}

func TestQueueAddFromFile(t *testing.T) {
	h := newHarness(t)
	file := filepath.Join(t.TempDir(), "prompts.txt")
	if err := os.WriteFile(file, []byte("# weapons\na dagger\n\na mace\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := h.mustRun("queue", "add", "--file", file)
	if !strings.Contains(out, "2 item(s) added") {
		t.Errorf("add output:\n%s", out)
	}
	if _, err := h.run("queue", "add", "x", "--file", file); err == nil {
		t.Error("prompt and --file together accepted")
	}
	if _, err := h.run("queue", "add"); err == nil {
		t.Error("add without prompt accepted")
	}
}

func TestQueueRemove(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("queue", "add", "a lantern")

	// "Queued <id> ..."
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "Queued" {
		t.Fatalf("add output:\n%s", out)
	}
	h.mustRun("queue", "rm", fields[1])

	out = h.mustRun("queue", "list")
	if !strings.Contains(out, "empty") {
		t.Errorf("item not removed:\n%s", out)
	}
	if _, err := h.run("queue", "rm", "zzzzzzzz"); err == nil {
		t.Error("unknown item removed")
	}
}

func TestQueueRun_NoProviders(t *testing.T) {
	h := newHarness(t)
	h.mustRun("queue", "add", "a lantern")
	h.env = map[string]string{}

	if _, err := h.run("queue", "run"); !errors.Is(err, errNoProviders) {
		t.Errorf("error = %v, want errNoProviders", err)
	}
}

func TestKeys(t *testing.T) {
	h := newHarness(t)
	h.env = map[string]string{}

	out := h.mustRun("keys", "set", "openai", "sk-test-abcdefghijkl")
	if !strings.Contains(out, "sk-t") || strings.Contains(out, "abcdefgh") {
		t.Errorf("set output not masked:\n%s", out)
	}

	out = h.mustRun("keys", "list")
	if !strings.Contains(out, "stored key") {
		t.Errorf("list missing stored source:\n%s", out)
	}
	if !strings.Contains(out, "not configured (GOOGLE_AI_API_KEY)") {
		t.Errorf("list missing google hint:\n%s", out)
	}

	h.mustRun("keys", "delete", "openai")
	if _, err := h.run("keys", "delete", "openai"); err == nil {
		t.Error("deleting a missing key succeeded")
	}
	if _, err := h.run("keys", "set", "stability", "k"); !errors.Is(err, models.ErrInvalidProvider) {
		t.Errorf("error = %v, want ErrInvalidProvider", err)
	}
}

func TestKeys_SetFromStdin(t *testing.T) {
	h := newHarness(t)
	h.in = "  gk-from-stdin-123456  \n"

	h.mustRun("keys", "set", "google")
	out := h.mustRun("keys", "list")
	if !strings.Contains(out, keys.MaskKey("gk-from-stdin-123456")) {
		t.Errorf("stdin key not stored:\n%s", out)
	}
}

func TestCatalogCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("styles")
	if !strings.Contains(out, "pixel-art") || !strings.Contains(out, "Anime/Manga") {
		t.Errorf("styles output:\n%s", out)
	}

	out = h.mustRun("palettes")
	for _, want := range []string{"fantasy", "Fantasy Adventure", "sci-fi", "custom"} {
		if !strings.Contains(out, want) {
			t.Errorf("palettes missing %q:\n%s", want, out)
		}
	}

	out = h.mustRun("providers")
	if !strings.Contains(out, "(google) ready") {
		t.Errorf("google not ready:\n%s", out)
	}
	if !strings.Contains(out, "(openai) no key") {
		t.Errorf("openai should have no key:\n%s", out)
	}
	if !strings.Contains(out, "* gemini-2.5-flash-image") {
		t.Errorf("default model not marked:\n%s", out)
	}
}

func TestGalleryCmd(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	for name, content := range map[string]string{"orc.png": "png", "notes.txt": "txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out := h.mustRun("gallery", "--dir", dir)
	if !strings.Contains(out, "orc.png") || strings.Contains(out, "notes.txt") {
		t.Errorf("gallery output:\n%s", out)
	}
	if !strings.Contains(out, "1 images") {
		t.Errorf("gallery total missing:\n%s", out)
	}
}

func TestCostsCmd(t *testing.T) {
	h := newHarness(t)
	h.mustRun("generate", "a torch", "--save", "-o", filepath.Join(t.TempDir(), "t.png"))

	out := h.mustRun("costs", "--since", "today", "--project", project.DefaultProjectName)
	if !strings.Contains(out, "Total: $") || !strings.Contains(out, "google") {
		t.Errorf("costs output:\n%s", out)
	}
	if !strings.Contains(out, "Since ") || !strings.Contains(out, project.DefaultProjectName+": $") {
		t.Errorf("costs output missing sections:\n%s", out)
	}
	if _, err := h.run("costs", "--since", "decade"); err == nil {
		t.Error("unknown period accepted")
	}
}

func TestStorageCmd(t *testing.T) {
	h := newHarness(t)
	h.mustRun("project", "create", "Temp")

	out := h.mustRun("storage")
	if !strings.Contains(out, "Used:") {
		t.Errorf("storage output:\n%s", out)
	}

	if _, err := h.run("storage", "--clear"); err == nil {
		t.Error("--clear without --yes succeeded")
	}
	h.mustRun("storage", "--clear", "--yes")
	out = h.mustRun("project", "list")
	if strings.Contains(out, "Temp") {
		t.Errorf("projects survived clear:\n%s", out)
	}
}

func TestLogLevelFlag(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("--log-level", "loud", "styles"); err != nil {
		t.Fatalf("styles does not load config: %v", err)
	}
	if _, err := h.run("--log-level", "loud", "storage"); err == nil {
		t.Error("invalid log level accepted")
	}
}

func TestExportFileName(t *testing.T) {
	tests := map[string]string{
		"Space Game":     "space-game-project.json",
		"  Dungeon  Run": "dungeon-run-project.json",
		"solo":           "solo-project.json",
	}
	for name, want := range tests {
		if got := exportFileName(name); got != want {
			t.Errorf("exportFileName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 3, 18, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		period string
		want   time.Time
	}{
		{"today", time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := periodStart(tt.period, now)
		if err != nil || !got.Equal(tt.want) {
			t.Errorf("periodStart(%q) = %v, %v; want %v", tt.period, got, err, tt.want)
		}
	}
	if _, err := periodStart("year", now); err == nil {
		t.Error("periodStart(year) succeeded")
	}
}
