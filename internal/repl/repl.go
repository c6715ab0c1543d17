// Package repl is the interactive icon studio: a line-oriented shell that
// keeps the prompt modifiers between generations.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/display"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/store"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	dispatcher batch.Generator
	registry   *models.ModelRegistry
	projects   *project.Store
	costs      *store.Store
	runner     *batch.Runner
	displayer  *display.Displayer
	commands   map[string]Command
	running    bool

	current *project.Project
	mods    modifiers
	last    *generation
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Dispatcher batch.Generator
	Registry   *models.ModelRegistry
	Projects   *project.Store
	Costs      *store.Store
	Runner     *batch.Runner
	// Displayer previews generated icons; nil disables previews.
	Displayer *display.Displayer
}

// modifiers is the generator state applied to every raw prompt.
type modifiers struct {
	provider     models.ProviderType
	model        string
	quality      string
	style        *style.Preset
	aspect       models.AspectRatio
	noText       bool
	noBackground bool
	monochrome   bool
	background   bool
	usePalette   bool
}

// generation is the most recent single-shot result, kept so it can be
// saved when auto-save is off.
type generation struct {
	raw      string
	composed string
	result   *models.Result
	saved    bool
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		dispatcher: cfg.Dispatcher,
		registry:   cfg.Registry,
		projects:   cfg.Projects,
		costs:      cfg.Costs,
		runner:     cfg.Runner,
		displayer:  cfg.Displayer,
		commands:   make(map[string]Command),
		mods: modifiers{
			aspect: models.AspectSquare,
			noText: true,
		},
	}
	r.registerCommands()
	return r
}

// Run loads the current project and reads commands until quit or EOF.
func (r *REPL) Run(ctx context.Context) error {
	p, err := r.projects.EnsureDefault(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current project: %w", err)
	}
	r.useProject(p)

	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

// useProject switches the active project and takes its generation
// defaults.
func (r *REPL) useProject(p *project.Project) {
	r.current = p
	r.mods.provider = p.Settings.DefaultProvider
	r.mods.model = p.Settings.DefaultModel
	r.mods.quality = p.Settings.DefaultQuality
	r.mods.usePalette = p.Settings.UsePaletteInPrompts
}

// refresh reloads the active project after a store write.
func (r *REPL) refresh(ctx context.Context) error {
	p, err := r.projects.Get(ctx, r.current.ID)
	if err != nil {
		return err
	}
	r.current = p
	return nil
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "iconforge studio")
	fmt.Fprintf(r.out, "Project: %s\n", r.current.Name)
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	tag := string(r.mods.aspect)
	if r.mods.style != nil {
		tag = r.mods.style.ID + " " + tag
	}
	fmt.Fprintf(r.out, "iconforge [%s] (%s)> ", truncate(r.current.Name, 20), tag)
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
