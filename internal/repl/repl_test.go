package repl

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/dispatch"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/store"
	"github.com/manash/iconforge/pkg/models"
)

type fakeGenerator struct {
	err error

	mu       sync.Mutex
	requests []models.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req *models.Request) (*models.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	model := req.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}
	return &models.Result{
		Success:  true,
		ImageURL: "data:image/png;base64,AAAA",
		Provider: models.ProviderGoogle,
		Model:    model,
		Cost:     0.039,
	}, nil
}

func (f *fakeGenerator) last(t *testing.T) models.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("generator was not called")
	}
	return f.requests[len(f.requests)-1]
}

type testEnv struct {
	gen      *fakeGenerator
	projects *project.Store
	out      *bytes.Buffer
	errOut   *bytes.Buffer
}

// runREPL feeds input to a fresh studio and returns after EOF.
func runREPL(t *testing.T, input string, gen *fakeGenerator) *testEnv {
	t.Helper()

	kv, err := store.NewStoreWithPath(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatalf("NewStoreWithPath() error = %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return runWith(t, kv, input, gen)
}

func runWith(t *testing.T, kv *store.Store, input string, gen *fakeGenerator) *testEnv {
	t.Helper()

	projects := project.NewStore(kv)
	runner := batch.NewRunner(projects, gen, nil)
	runner.Delay = 0

	env := &testEnv{gen: gen, projects: projects, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	r := New(&Config{
		In:         strings.NewReader(input),
		Out:        env.out,
		Err:        env.errOut,
		Dispatcher: gen,
		Registry:   models.DefaultRegistry(),
		Projects:   projects,
		Costs:      kv,
		Runner:     runner,
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return env
}

func (e *testEnv) current(t *testing.T) *project.Project {
	t.Helper()
	p, err := e.projects.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	return p
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"generate a sword", []string{"generate", "a", "sword"}},
		{`g "a fire sword"`, []string{"g", "a fire sword"}},
		{`save 'Big Axe'`, []string{"save", "Big Axe"}},
		{`g "it's fine"`, []string{"g", "it's fine"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		got := parseCommand(tt.line)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseCommand(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestRun_CreatesDefaultProject(t *testing.T) {
	env := runREPL(t, "quit\n", &fakeGenerator{})
	if !strings.Contains(env.out.String(), "Project: "+project.DefaultProjectName) {
		t.Errorf("welcome = %q", env.out.String())
	}
	if !strings.Contains(env.out.String(), "Goodbye!") {
		t.Error("quit did not print goodbye")
	}
}

func TestGenerate_ComposesAndAutoSaves(t *testing.T) {
	gen := &fakeGenerator{}
	env := runREPL(t, "style pixel-art\naspect horizontal\ntoggle mono\ng a fire sword\n", gen)

	req := gen.last(t)
	for _, want := range []string{"a fire sword", "pixel art style", "COLOR RESTRICTIONS", "monochrome", "horizontal composition"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q: %s", want, req.Prompt)
		}
	}
	if req.Size != models.SizeHorizontal {
		t.Errorf("Size = %q, want %q", req.Size, models.SizeHorizontal)
	}
	if req.Provider != models.ProviderGoogle || req.Model != "gemini-2.5-flash-image" {
		t.Errorf("provider/model = %s/%s", req.Provider, req.Model)
	}

	p := env.current(t)
	if len(p.Icons) != 1 {
		t.Fatalf("icons = %d, want 1", len(p.Icons))
	}
	if p.Icons[0].Prompt != req.Prompt {
		t.Error("saved icon prompt differs from the composed prompt")
	}
	if !strings.Contains(env.out.String(), "Saved to") {
		t.Errorf("output = %q", env.out.String())
	}

	prompts, _ := env.projects.RecentPrompts(context.Background())
	if len(prompts) != 1 || prompts[0] != "a fire sword" {
		t.Errorf("recent prompts = %v", prompts)
	}
}

func TestGenerate_Failure(t *testing.T) {
	gen := &fakeGenerator{err: &dispatch.Error{Kind: dispatch.KindQuota, Message: "Google AI quota exceeded."}}
	env := runREPL(t, "g a shield\nsave\n", gen)

	if !strings.Contains(env.errOut.String(), "Error: Google AI quota exceeded.") {
		t.Errorf("stderr = %q", env.errOut.String())
	}
	if !strings.Contains(env.errOut.String(), "nothing generated yet") {
		t.Errorf("save after failure: stderr = %q", env.errOut.String())
	}
	if n := len(env.current(t).Icons); n != 0 {
		t.Errorf("icons = %d, want 0", n)
	}
}

func TestSave_ManualWhenAutoSaveOff(t *testing.T) {
	kv, err := store.NewStoreWithPath(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()

	projects := project.NewStore(kv)
	p, err := projects.EnsureDefault(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := projects.Update(context.Background(), p.ID, func(p *project.Project) { p.Settings.AutoSave = false }); err != nil {
		t.Fatal(err)
	}

	env := runWith(t, kv, "g a crown\nsave Royal Crown\nsave\n", &fakeGenerator{})

	icons := env.current(t).Icons
	if len(icons) != 1 || icons[0].Name != "Royal Crown" {
		t.Fatalf("icons = %+v", icons)
	}
	if !strings.Contains(env.out.String(), "auto-save is off") {
		t.Error("missing auto-save hint")
	}
	if !strings.Contains(env.errOut.String(), "already saved") {
		t.Errorf("second save: stderr = %q", env.errOut.String())
	}
}

func TestModifierCommands(t *testing.T) {
	gen := &fakeGenerator{}
	env := runREPL(t, strings.Join([]string{
		"style baroque",
		"aspect diagonal",
		"toggle sparkle",
		"model dall-e-3",
		"toggle notext",
		"toggle palette",
		"toggle background",
		"status",
		"g a castle",
	}, "\n")+"\n", gen)

	errs := env.errOut.String()
	for _, want := range []string{"unknown style: baroque", "usage: aspect", "usage: toggle"} {
		if !strings.Contains(errs, want) {
			t.Errorf("stderr missing %q: %s", want, errs)
		}
	}

	req := gen.last(t)
	if req.Model != "dall-e-3" || req.Provider != models.ProviderOpenAI {
		t.Errorf("model/provider = %s/%s", req.Model, req.Provider)
	}
	if strings.Contains(req.Prompt, "COLOR RESTRICTIONS") {
		t.Error("palette still applied after toggling it off")
	}
	if !strings.HasPrefix(req.Prompt, "game background") {
		t.Errorf("background mode prompt = %q", req.Prompt)
	}
	if !strings.Contains(env.out.String(), "Background:  on") {
		t.Error("status does not show background mode")
	}
}

func TestProjectCommands(t *testing.T) {
	env := runREPL(t, "project new Dungeon Set\nproject list\nproject use my first project\nproject use zzz\n", &fakeGenerator{})

	if !strings.Contains(env.out.String(), "Created project: Dungeon Set") {
		t.Errorf("output = %q", env.out.String())
	}
	if !strings.Contains(env.out.String(), "Switched to project: "+project.DefaultProjectName) {
		t.Errorf("output = %q", env.out.String())
	}
	if !strings.Contains(env.errOut.String(), "project not found: zzz") {
		t.Errorf("stderr = %q", env.errOut.String())
	}
	if got := env.current(t).Name; got != project.DefaultProjectName {
		t.Errorf("current = %q", got)
	}
}

func TestQueueCommands(t *testing.T) {
	gen := &fakeGenerator{}
	env := runREPL(t, strings.Join([]string{
		"style watercolor",
		"queue add a rock",
		"queue add 5 a crown",
		"queue list",
		"queue run",
		"queue clear",
		"queue run",
	}, "\n")+"\n", gen)

	out := env.out.String()
	if !strings.Contains(out, `Queued: "a crown" (priority 5)`) {
		t.Errorf("output = %q", out)
	}
	if strings.Index(out, "[5] pending") > strings.Index(out, "[1] pending") {
		t.Error("queue list is not priority ordered")
	}
	if !strings.Contains(out, "Completed: 2/2 items") {
		t.Errorf("missing summary: %q", out)
	}
	if !strings.Contains(out, "Removed 2 finished item(s)") {
		t.Errorf("missing clear output: %q", out)
	}
	if !strings.Contains(out, "No pending items") {
		t.Error("second run should find nothing pending")
	}

	if !strings.Contains(gen.last(t).Prompt, "watercolor") {
		t.Error("queued items did not keep the selected style")
	}
	if n := len(env.current(t).Icons); n != 2 {
		t.Errorf("icons = %d, want 2", n)
	}
}

func TestRecentCommand(t *testing.T) {
	gen := &fakeGenerator{}
	env := runREPL(t, "g a bow\ng an arrow\nrecent\nrecent 2\nrecent 9\n", gen)

	if !strings.Contains(env.out.String(), "[1] an arrow") {
		t.Errorf("output = %q", env.out.String())
	}
	if len(gen.requests) != 3 || !strings.HasPrefix(gen.last(t).Prompt, "a bow") {
		t.Errorf("recent 2 did not regenerate 'a bow': %d calls", len(gen.requests))
	}
	if !strings.Contains(env.errOut.String(), "usage: recent") {
		t.Errorf("stderr = %q", env.errOut.String())
	}
}

func TestCostCommand(t *testing.T) {
	env := runREPL(t, "cost\ng a gem\ncost\ncost provider\ncost today\ncost project\ncost decade\n", &fakeGenerator{})

	out := env.out.String()
	for _, want := range []string{
		"No costs recorded yet.",
		"Total cost: $0.0390 (1 image(s))",
		"google",
		"Cost today: $0.0390",
		"Project " + project.DefaultProjectName + ": $0.0390",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.Contains(env.errOut.String(), "unknown cost command") {
		t.Errorf("stderr = %q", env.errOut.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	env := runREPL(t, "frobnicate\nhelp\n", &fakeGenerator{})
	if !strings.Contains(env.errOut.String(), "unknown command: frobnicate") {
		t.Errorf("stderr = %q", env.errOut.String())
	}
	if !strings.Contains(env.out.String(), "generate <prompt>") {
		t.Error("help does not list generate")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("a much longer name", 10); got != "a much ..." {
		t.Errorf("truncate() = %q", got)
	}
}
