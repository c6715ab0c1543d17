package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manash/iconforge/internal/display"
	"github.com/manash/iconforge/internal/image"
	"github.com/manash/iconforge/internal/prompt"
	"github.com/manash/iconforge/internal/repl"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

type generateOptions struct {
	provider    string
	model       string
	quality     string
	artStyle    string
	aspect      string
	noText      bool
	transparent bool
	monochrome  bool
	background  bool
	noPalette   bool
	raw         bool
	project     string
	save        bool
	output      string
	show        bool
}

func newGenerateCmd(app *App) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:     "generate <prompt>",
		Aliases: []string{"gen"},
		Short:   "Generate one icon",
		Long: `Generate one icon from a short description.

The prompt is composed with the chosen art style, the project's palette
and the composition toggles before it is sent. Use --raw to send it
unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), app, args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.provider, "provider", "p", "", "provider (google, openai)")
	f.StringVarP(&opts.model, "model", "m", "", "model (defaults to the project's default)")
	f.StringVarP(&opts.quality, "quality", "q", "", "quality (standard, hd)")
	f.StringVarP(&opts.artStyle, "style", "s", "", "art style id (see 'iconforge styles')")
	f.StringVarP(&opts.aspect, "aspect", "a", string(models.AspectSquare), "aspect ratio (square, vertical, horizontal)")
	f.BoolVar(&opts.noText, "no-text", true, "forbid text in the icon")
	f.BoolVarP(&opts.transparent, "transparent", "t", false, "request a transparent background")
	f.BoolVar(&opts.monochrome, "monochrome", false, "black and white only")
	f.BoolVar(&opts.background, "background", false, "generate a game background instead of an icon")
	f.BoolVar(&opts.noPalette, "no-palette", false, "do not apply the project's color palette")
	f.BoolVar(&opts.raw, "raw", false, "send the prompt without composition")
	f.StringVar(&opts.project, "project", "", "project id or name (defaults to the current project)")
	f.BoolVar(&opts.save, "save", false, "add the icon to the project")
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: <prompt>_<timestamp>.png)")
	f.BoolVar(&opts.show, "show", false, "preview the icon in kitty-compatible terminals")

	return cmd
}

func runGenerate(ctx context.Context, app *App, raw string, opts *generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	aspect := models.AspectRatio(opts.aspect)
	if !aspect.IsValid() {
		return fmt.Errorf("invalid aspect ratio %q: must be square, vertical or horizontal", opts.aspect)
	}
	var injection string
	if opts.artStyle != "" {
		preset, ok := style.Lookup(opts.artStyle)
		if !ok {
			return fmt.Errorf("unknown style %q (see 'iconforge styles')", opts.artStyle)
		}
		injection = preset.Injection
	}

	rt, err := app.open(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := rt.resolveProject(ctx, opts.project)
	if err != nil {
		return err
	}

	final := raw
	if !opts.raw {
		final = prompt.Compose(raw, prompt.Options{
			StyleInjection:   injection,
			Palette:          p.ColorPalette,
			UsePalette:       p.Settings.UsePaletteInPrompts && !opts.noPalette,
			CreateBackground: opts.background,
			NoText:           opts.noText,
			NoBackground:     opts.transparent,
			Monochrome:       opts.monochrome,
			AspectRatio:      aspect,
		})
	}

	req := &models.Request{
		Prompt:   final,
		Provider: models.ProviderType(opts.provider),
		Model:    opts.model,
		Quality:  opts.quality,
		Size:     prompt.SizeFor(aspect),
	}
	if req.Provider == "" {
		req.Provider = p.Settings.DefaultProvider
	}
	if req.Model == "" && req.Provider == p.Settings.DefaultProvider {
		req.Model = p.Settings.DefaultModel
	}
	if req.Quality == "" {
		req.Quality = p.Settings.DefaultQuality
	}

	fmt.Fprintf(app.Out, "Generating with %s...\n", req.Provider)
	result, err := rt.dispatcher.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := rt.projects.AddRecentPrompt(ctx, raw); err != nil {
		slog.Warn("failed to record recent prompt", "error", err)
	}

	output := opts.output
	if output == "" {
		output = image.FileName(truncateRunes(raw, 30), time.Now())
	}
	saver := app.NewSaver()
	if err := saver.Save(ctx, result.ImageURL, output); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Saved: %s\n", output)

	if opts.save {
		icon, err := rt.projects.AddIcon(ctx, p.ID, result, final, "")
		if err != nil {
			return err
		}
		if icon != nil {
			fmt.Fprintf(app.Out, "Added to %s as %q\n", p.Name, icon.Name)
		}
	}

	fmt.Fprintf(app.Out, "Model: %s (%s), %s\n", result.Model, result.Provider, time.Duration(result.GenerationTimeMs)*time.Millisecond)
	if result.Cost > 0 {
		fmt.Fprintf(app.Out, "Cost: $%.4f\n", result.Cost)
	}
	if result.RevisedPrompt != "" {
		fmt.Fprintf(app.Out, "Revised prompt: %s\n", result.RevisedPrompt)
	}

	if opts.show {
		if !isTerminal(app.Out) || !display.Supported(app.GetEnv) {
			fmt.Fprintln(app.Err, "Warning: --show needs a kitty-compatible terminal")
		} else if err := display.New(app.Out, saver).Show(ctx, result.ImageURL); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display: %v\n", err)
		}
	}
	return nil
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func newStudioCmd(app *App) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:     "studio",
		Aliases: []string{"i", "interactive"},
		Short:   "Interactive icon studio",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			cfg := &repl.Config{
				In:         app.In,
				Out:        app.Out,
				Err:        app.Err,
				Dispatcher: rt.dispatcher,
				Registry:   app.Registry,
				Projects:   rt.projects,
				Costs:      rt.kv,
				Runner:     rt.runner,
			}
			if show && isTerminal(app.Out) && display.Supported(app.GetEnv) {
				cfg.Displayer = display.New(app.Out, app.NewSaver())
			}
			return repl.New(cfg).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&show, "show", true, "preview icons when the terminal supports it")
	return cmd
}
