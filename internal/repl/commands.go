package repl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/prompt"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&GenerateCommand{},
		&SaveCommand{},
		&StyleCommand{},
		&AspectCommand{},
		&ToggleCommand{},
		&StatusCommand{},
		&ProviderCommand{},
		&ModelCommand{},
		&ProjectCommand{},
		&IconsCommand{},
		&QueueCommand{},
		&RecentCommand{},
		&CostCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

func (r *REPL) composeOptions() prompt.Options {
	opts := prompt.Options{
		Palette:          r.current.ColorPalette,
		UsePalette:       r.mods.usePalette,
		CreateBackground: r.mods.background,
		NoText:           r.mods.noText,
		NoBackground:     r.mods.noBackground,
		Monochrome:       r.mods.monochrome,
		AspectRatio:      r.mods.aspect,
	}
	if r.mods.style != nil {
		opts.StyleInjection = r.mods.style.Injection
	}
	return opts
}

// GenerateCommand composes the prompt with the active modifiers and sends
// it to the provider.
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate an icon from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	raw := strings.Join(args, " ")
	composed := prompt.Compose(raw, r.composeOptions())
	req := &models.Request{
		Prompt:   composed,
		Provider: r.mods.provider,
		Model:    r.mods.model,
		Quality:  r.mods.quality,
		Size:     prompt.SizeFor(r.mods.aspect),
	}

	fmt.Fprintf(r.out, "Generating with %s...\n", labelOr(r.mods.model, "default model"))

	result, err := r.dispatcher.Generate(ctx, req)
	if err != nil {
		return err
	}

	if err := r.projects.AddRecentPrompt(ctx, raw); err != nil {
		slog.Warn("failed to record recent prompt", "error", err)
	}
	r.last = &generation{raw: raw, composed: composed, result: result}

	fmt.Fprintf(r.out, "Generated with %s (%s) in %s\n",
		result.Model, result.Provider, time.Duration(result.GenerationTimeMs)*time.Millisecond)
	if result.Cost > 0 {
		fmt.Fprintf(r.out, "Cost: $%.4f\n", result.Cost)
	}
	if result.RevisedPrompt != "" {
		fmt.Fprintf(r.out, "Revised prompt: %s\n", result.RevisedPrompt)
	}

	if r.displayer != nil {
		if err := r.displayer.Show(ctx, result.ImageURL); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}

	if r.current.Settings.AutoSave {
		return r.saveLast(ctx, "")
	}
	fmt.Fprintln(r.out, "Not saved (auto-save is off). Use 'save [name]' to keep it.")
	return nil
}

func (r *REPL) saveLast(ctx context.Context, name string) error {
	if r.last == nil {
		return fmt.Errorf("nothing generated yet")
	}
	if r.last.saved {
		return fmt.Errorf("last icon is already saved")
	}

	icon, err := r.projects.AddIcon(ctx, r.current.ID, r.last.result, r.last.composed, name)
	if err != nil {
		return fmt.Errorf("failed to save icon: %w", err)
	}
	if icon == nil {
		return fmt.Errorf("last generation has no image")
	}
	r.last.saved = true
	if err := r.refresh(ctx); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Saved to %s as %q", r.current.Name, icon.Name)
	if len(icon.Tags) > 0 {
		fmt.Fprintf(r.out, " [%s]", strings.Join(icon.Tags, ", "))
	}
	fmt.Fprintln(r.out)
	return nil
}

// SaveCommand keeps the last generation in the current project.
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Save the last icon to the current project" }
func (c *SaveCommand) Usage() string       { return "save [name]" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	return r.saveLast(ctx, strings.Join(args, " "))
}

type StyleCommand struct{}

func (c *StyleCommand) Name() string        { return "style" }
func (c *StyleCommand) Aliases() []string   { return []string{"art"} }
func (c *StyleCommand) Description() string { return "List art styles or select one ('none' clears)" }
func (c *StyleCommand) Usage() string       { return "style [id|none]" }

func (c *StyleCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		for _, p := range style.All() {
			marker := "  "
			if r.mods.style != nil && r.mods.style.ID == p.ID {
				marker = "> "
			}
			fmt.Fprintf(r.out, "%s%-18s %s\n", marker, p.ID, p.Description)
		}
		return nil
	}

	id := strings.ToLower(args[0])
	if id == "none" {
		r.mods.style = nil
		fmt.Fprintln(r.out, "Style cleared")
		return nil
	}

	p, ok := style.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown style: %s", id)
	}
	r.mods.style = &p
	fmt.Fprintf(r.out, "Style set to: %s\n", p.Name)
	return nil
}

type AspectCommand struct{}

func (c *AspectCommand) Name() string        { return "aspect" }
func (c *AspectCommand) Aliases() []string   { return []string{"ar"} }
func (c *AspectCommand) Description() string { return "Set the aspect ratio" }
func (c *AspectCommand) Usage() string       { return "aspect <square|vertical|horizontal>" }

func (c *AspectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Aspect ratio: %s (%s)\n", r.mods.aspect, prompt.SizeFor(r.mods.aspect))
		return nil
	}
	a := models.AspectRatio(strings.ToLower(args[0]))
	if !a.IsValid() {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	r.mods.aspect = a
	fmt.Fprintf(r.out, "Aspect ratio set to: %s (%s)\n", a, prompt.SizeFor(a))
	return nil
}

// ToggleCommand flips one boolean modifier.
type ToggleCommand struct{}

var toggleNames = []string{"notext", "transparent", "mono", "background", "palette"}

func (c *ToggleCommand) Name() string        { return "toggle" }
func (c *ToggleCommand) Aliases() []string   { return []string{"t"} }
func (c *ToggleCommand) Description() string { return "Toggle a prompt modifier" }
func (c *ToggleCommand) Usage() string {
	return "toggle <" + strings.Join(toggleNames, "|") + ">"
}

func (c *ToggleCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	var flag *bool
	switch strings.ToLower(args[0]) {
	case "notext":
		flag = &r.mods.noText
	case "transparent":
		flag = &r.mods.noBackground
	case "mono":
		flag = &r.mods.monochrome
	case "background":
		flag = &r.mods.background
	case "palette":
		flag = &r.mods.usePalette
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}

	*flag = !*flag
	fmt.Fprintf(r.out, "%s: %s\n", strings.ToLower(args[0]), onOff(*flag))
	return nil
}

type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st"} }
func (c *StatusCommand) Description() string { return "Show the active project and modifiers" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	styleName := "none"
	if r.mods.style != nil {
		styleName = r.mods.style.Name
	}
	paletteName := "none"
	if r.current.ColorPalette != nil {
		paletteName = r.current.ColorPalette.Name
	}

	fmt.Fprintf(r.out, "Project:     %s (%d icons, %d queued)\n", r.current.Name, len(r.current.Icons), len(r.current.GenerationQueue))
	fmt.Fprintf(r.out, "Provider:    %s\n", labelOr(string(r.mods.provider), "default"))
	fmt.Fprintf(r.out, "Model:       %s\n", labelOr(r.mods.model, "default"))
	fmt.Fprintf(r.out, "Quality:     %s\n", labelOr(r.mods.quality, models.QualityStandard))
	fmt.Fprintf(r.out, "Style:       %s\n", styleName)
	fmt.Fprintf(r.out, "Aspect:      %s\n", r.mods.aspect)
	fmt.Fprintf(r.out, "Palette:     %s (%s)\n", paletteName, onOff(r.mods.usePalette))
	fmt.Fprintf(r.out, "No text:     %s\n", onOff(r.mods.noText))
	fmt.Fprintf(r.out, "Transparent: %s\n", onOff(r.mods.noBackground))
	fmt.Fprintf(r.out, "Monochrome:  %s\n", onOff(r.mods.monochrome))
	fmt.Fprintf(r.out, "Background:  %s\n", onOff(r.mods.background))
	return nil
}

type ProviderCommand struct{}

func (c *ProviderCommand) Name() string        { return "provider" }
func (c *ProviderCommand) Aliases() []string   { return []string{"p"} }
func (c *ProviderCommand) Description() string { return "Get or set the provider" }
func (c *ProviderCommand) Usage() string       { return "provider [google|openai]" }

func (c *ProviderCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current provider: %s\n", labelOr(string(r.mods.provider), "default"))
		for _, pt := range models.KnownProviders() {
			info, _ := models.LookupProvider(pt)
			fmt.Fprintf(r.out, "  - %-8s %s [%s]\n", pt, info.Name, info.Status)
		}
		return nil
	}

	pt := models.ProviderType(strings.ToLower(args[0]))
	if !pt.IsValid() {
		return fmt.Errorf("unknown provider: %s", args[0])
	}
	r.mods.provider = pt
	r.mods.model = r.registry.DefaultModel(pt)
	fmt.Fprintf(r.out, "Provider set to: %s (model %s)\n", pt, r.mods.model)
	return nil
}

type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Aliases() []string   { return []string{"m"} }
func (c *ModelCommand) Description() string { return "Get or set the model" }
func (c *ModelCommand) Usage() string       { return "model [name]" }

func (c *ModelCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current model: %s\n", labelOr(r.mods.model, "default"))
		fmt.Fprintln(r.out, "\nAvailable models:")
		for _, name := range r.registry.List() {
			caps, _ := r.registry.Get(name)
			fmt.Fprintf(r.out, "  - %s (%s) %s\n", name, caps.Provider, caps.CostText)
		}
		return nil
	}

	caps, ok := r.registry.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown model: %s", args[0])
	}
	r.mods.model = caps.Name
	r.mods.provider = caps.Provider
	fmt.Fprintf(r.out, "Model set to: %s (%s)\n", caps.Name, caps.Provider)
	return nil
}

// ProjectCommand manages projects
type ProjectCommand struct{}

func (c *ProjectCommand) Name() string        { return "project" }
func (c *ProjectCommand) Aliases() []string   { return []string{"proj"} }
func (c *ProjectCommand) Description() string { return "Manage projects (list, use, new)" }
func (c *ProjectCommand) Usage() string       { return "project <list|use|new> [args]" }

func (c *ProjectCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	subArgs := args[1:]
	switch strings.ToLower(args[0]) {
	case "list", "ls":
		return c.list(ctx, r)
	case "use":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: project use <id|name>")
		}
		return c.use(ctx, r, strings.Join(subArgs, " "))
	case "new":
		if len(subArgs) == 0 {
			return fmt.Errorf("usage: project new <name>")
		}
		return c.create(ctx, r, strings.Join(subArgs, " "))
	default:
		return fmt.Errorf("unknown project command: %s", args[0])
	}
}

func (c *ProjectCommand) list(ctx context.Context, r *REPL) error {
	projects, err := r.projects.List(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%-8s  %-24s  %-6s  %s\n", "ID", "Name", "Icons", "Updated")
	fmt.Fprintln(r.out, strings.Repeat("-", 60))
	for _, p := range projects {
		marker := "  "
		if p.ID == r.current.ID {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s%-6s  %-24s  %-6d  %s\n",
			marker, shortID(p.ID), truncate(p.Name, 24), len(p.Icons), humanize.Time(p.UpdatedAt))
	}
	return nil
}

func (c *ProjectCommand) use(ctx context.Context, r *REPL, ref string) error {
	projects, err := r.projects.List(ctx)
	if err != nil {
		return err
	}

	var id string
	for _, p := range projects {
		if strings.HasPrefix(p.ID, ref) || strings.EqualFold(p.Name, ref) {
			id = p.ID
			break
		}
	}
	if id == "" {
		return fmt.Errorf("project not found: %s", ref)
	}

	p, err := r.projects.SetCurrent(ctx, id)
	if err != nil {
		return err
	}
	r.useProject(p)
	r.last = nil
	fmt.Fprintf(r.out, "Switched to project: %s (%s)\n", p.Name, shortID(p.ID))
	return nil
}

func (c *ProjectCommand) create(ctx context.Context, r *REPL, name string) error {
	p, err := r.projects.Create(ctx, name, "", palette.ThemeFantasy)
	if err != nil {
		return err
	}
	if _, err := r.projects.SetCurrent(ctx, p.ID); err != nil {
		return err
	}
	r.useProject(p)
	r.last = nil
	fmt.Fprintf(r.out, "Created project: %s (%s)\n", p.Name, shortID(p.ID))
	return nil
}

type IconsCommand struct{}

func (c *IconsCommand) Name() string        { return "icons" }
func (c *IconsCommand) Aliases() []string   { return []string{"ls"} }
func (c *IconsCommand) Description() string { return "List icons in the current project" }
func (c *IconsCommand) Usage() string       { return "icons" }

func (c *IconsCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if len(r.current.Icons) == 0 {
		fmt.Fprintln(r.out, "No icons yet")
		return nil
	}
	for i, icon := range r.current.Icons {
		fmt.Fprintf(r.out, "[%d] %-20s %-24s %s\n", i+1, truncate(icon.Name, 20), icon.Model, humanize.Time(icon.GeneratedAt))
	}
	return nil
}

// QueueCommand manages the current project's batch queue.
type QueueCommand struct{}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Aliases() []string   { return []string{"q"} }
func (c *QueueCommand) Description() string { return "Manage the batch queue (add, list, run, clear)" }
func (c *QueueCommand) Usage() string       { return "queue <add [priority] <prompt>|list|run|clear>" }

func (c *QueueCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	switch strings.ToLower(args[0]) {
	case "add":
		return c.add(ctx, r, args[1:])
	case "list", "ls":
		return c.list(ctx, r)
	case "run":
		return c.run(ctx, r)
	case "clear":
		n, err := r.projects.ClearCompletedQueue(ctx, r.current.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Removed %d finished item(s)\n", n)
		return r.refresh(ctx)
	default:
		return fmt.Errorf("unknown queue command: %s", args[0])
	}
}

func (c *QueueCommand) add(ctx context.Context, r *REPL, args []string) error {
	priority := 1
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			priority = n
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: queue add [priority] <prompt>")
	}

	item := project.NewQueueItem(r.current, "", strings.Join(args, " "))
	item.Priority = priority
	item.Provider = r.mods.provider
	item.Model = r.mods.model
	item.Quality = r.mods.quality
	item.SelectedStyle = r.mods.style
	item.AspectRatio = r.mods.aspect
	item.NoText = r.mods.noText
	item.NoBackground = r.mods.noBackground
	item.Monochrome = r.mods.monochrome
	item.CreateBackground = r.mods.background
	item.UseProjectPalette = r.mods.usePalette

	added, err := r.projects.AddToQueue(ctx, r.current.ID, item)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Queued: %q (priority %d)\n", added.Name, added.Priority)
	return r.refresh(ctx)
}

func (c *QueueCommand) list(ctx context.Context, r *REPL) error {
	if err := r.refresh(ctx); err != nil {
		return err
	}
	queue := project.SortQueue(r.current.GenerationQueue)
	if len(queue) == 0 {
		fmt.Fprintln(r.out, "Queue is empty")
		return nil
	}
	for _, it := range queue {
		line := fmt.Sprintf("  [%d] %-10s %s", it.Priority, it.Status, truncate(it.Name, 40))
		if it.Error != "" {
			line += " (" + it.Error + ")"
		}
		fmt.Fprintln(r.out, line)
	}
	return nil
}

func (c *QueueCommand) run(ctx context.Context, r *REPL) error {
	summary, err := r.runner.RunAll(ctx, r.current.ID, nil)
	if err != nil {
		return err
	}
	if len(summary.Results) == 0 {
		fmt.Fprintln(r.out, "No pending items")
		return nil
	}
	batch.PrintSummary(r.out, summary)
	return r.refresh(ctx)
}

type RecentCommand struct{}

func (c *RecentCommand) Name() string        { return "recent" }
func (c *RecentCommand) Aliases() []string   { return []string{"r", "history"} }
func (c *RecentCommand) Description() string { return "Show recent prompts, or regenerate one by number" }
func (c *RecentCommand) Usage() string       { return "recent [n|clear]" }

func (c *RecentCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	prompts, err := r.projects.RecentPrompts(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if strings.ToLower(args[0]) == "clear" {
			return r.projects.ClearRecentPrompts(ctx)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(prompts) {
			return fmt.Errorf("usage: %s", c.Usage())
		}
		return r.commands["generate"].Execute(ctx, r, []string{prompts[n-1]})
	}

	if len(prompts) == 0 {
		fmt.Fprintln(r.out, "No recent prompts")
		return nil
	}
	for i, p := range prompts {
		fmt.Fprintf(r.out, "[%d] %s\n", i+1, truncate(p, 70))
	}
	return nil
}

// CostCommand displays cost information
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "View cost summary (today, week, month, total, provider, project)" }
func (c *CostCommand) Usage() string       { return "cost <today|week|month|total|provider|project>" }

func (c *CostCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return c.showTotal(ctx, r)
	}

	today := startOfDay(time.Now())
	tomorrow := today.AddDate(0, 0, 1)

	switch strings.ToLower(args[0]) {
	case "today":
		return c.showRange(ctx, r, today, tomorrow, "today")
	case "week":
		return c.showRange(ctx, r, today.AddDate(0, 0, -6), tomorrow, "in the last 7 days")
	case "month":
		return c.showRange(ctx, r, today.AddDate(0, 0, -29), tomorrow, "in the last 30 days")
	case "total":
		return c.showTotal(ctx, r)
	case "provider":
		return c.showByProvider(ctx, r)
	case "project":
		return c.showProject(ctx, r)
	default:
		return fmt.Errorf("unknown cost command: %s\nUsage: %s", args[0], c.Usage())
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (c *CostCommand) showRange(ctx context.Context, r *REPL, start, end time.Time, label string) error {
	summary, err := r.costs.GetCostByDateRange(ctx, start, end)
	if err != nil {
		return err
	}
	if summary.ImageCount == 0 {
		fmt.Fprintf(r.out, "No costs recorded %s.\n", label)
		return nil
	}
	fmt.Fprintf(r.out, "Cost %s: $%.4f (%d image(s))\n", label, summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showTotal(ctx context.Context, r *REPL) error {
	summary, err := r.costs.GetTotalCost(ctx)
	if err != nil {
		return err
	}
	if summary.ImageCount == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}
	fmt.Fprintf(r.out, "Total cost: $%.4f (%d image(s))\n", summary.TotalCost, summary.ImageCount)
	return nil
}

func (c *CostCommand) showByProvider(ctx context.Context, r *REPL) error {
	summaries, err := r.costs.GetCostByProvider(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-12s  %-8s  %s\n", "Provider", "Images", "Cost")
	fmt.Fprintln(r.out, strings.Repeat("-", 35))

	var totalCost float64
	var totalImages int
	for _, ps := range summaries {
		fmt.Fprintf(r.out, "%-12s  %-8d  $%.4f\n", ps.Provider, ps.ImageCount, ps.TotalCost)
		totalCost += ps.TotalCost
		totalImages += ps.ImageCount
	}

	fmt.Fprintln(r.out, strings.Repeat("-", 35))
	fmt.Fprintf(r.out, "%-12s  %-8d  $%.4f\n", "Total", totalImages, totalCost)
	return nil
}

func (c *CostCommand) showProject(ctx context.Context, r *REPL) error {
	summary, err := r.costs.GetProjectCost(ctx, r.current.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Project %s: $%.4f (%d image(s))\n", r.current.Name, summary.TotalCost, summary.ImageCount)
	return nil
}

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	seen := make(map[Command]bool)
	var cmds []Command
	for _, cmd := range r.commands {
		if !seen[cmd] {
			seen[cmd] = true
			cmds = append(cmds, cmd)
		}
	}
	slices.SortFunc(cmds, func(a, b Command) int { return strings.Compare(a.Name(), b.Name()) })

	fmt.Fprintln(r.out, "Commands:")
	for _, cmd := range cmds {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = " (" + strings.Join(cmd.Aliases(), ", ") + ")"
		}
		fmt.Fprintf(r.out, "  %-40s %s%s\n", cmd.Usage(), cmd.Description(), aliases)
	}
	return nil
}

type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q!"} }
func (c *QuitCommand) Description() string { return "Exit the studio" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.Stop()
	fmt.Fprintln(r.out, "Goodbye!")
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func labelOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
