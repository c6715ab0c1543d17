package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/config"
	"github.com/manash/iconforge/internal/dispatch"
	"github.com/manash/iconforge/internal/image"
	"github.com/manash/iconforge/internal/keys"
	"github.com/manash/iconforge/internal/project"
	"github.com/manash/iconforge/internal/provider"
	"github.com/manash/iconforge/internal/provider/google"
	"github.com/manash/iconforge/internal/provider/openai"
	"github.com/manash/iconforge/internal/store"
	"github.com/manash/iconforge/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

type App struct {
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	Registry     *models.ModelRegistry
	GetEnv       func(string) string
	Constructors map[models.ProviderType]provider.Constructor
	NewSaver     func() *image.Saver
	// ReadSecret reads a key without echo when stdin is a terminal.
	ReadSecret func() (string, error)

	opts globalOptions
}

type globalOptions struct {
	configPath string
	envFile    string
	dataDir    string
	logLevel   string
	googleKey  string
	openaiKey  string
}

func DefaultApp() *App {
	return &App{
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Registry: models.DefaultRegistry(),
		GetEnv:   os.Getenv,
		Constructors: map[models.ProviderType]provider.Constructor{
			models.ProviderGoogle: google.Constructor,
			models.ProviderOpenAI: openai.Constructor,
		},
		NewSaver: image.NewSaver,
		ReadSecret: func() (string, error) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			return string(b), err
		},
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iconforge",
		Short: "Generate and organize game icons with AI image providers",
		Long: `iconforge turns short descriptions into game icons and backgrounds.

Prompts are enriched with an art style, the project's color palette and
composition directives, then sent to Google Gemini or OpenAI DALL-E.
Results are kept in projects with tags, a batch queue and cost tracking.

Examples:
  iconforge generate "a flaming sword" --style pixel-art
  iconforge queue add --file prompts.txt && iconforge queue run
  iconforge serve --addr 127.0.0.1:3000
  iconforge studio`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	f := cmd.PersistentFlags()
	f.StringVar(&app.opts.configPath, "config", "", "config file (default: "+config.FileName+" in the config dir)")
	f.StringVar(&app.opts.envFile, "env-file", "", "load environment variables from this file (default: .env if present)")
	f.StringVar(&app.opts.dataDir, "data-dir", "", "directory for the database and stored keys")
	f.StringVar(&app.opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&app.opts.googleKey, "google-key", "", "Google AI API key (defaults to stored key or GOOGLE_AI_API_KEY)")
	f.StringVar(&app.opts.openaiKey, "openai-key", "", "OpenAI API key (defaults to stored key or OPENAI_API_KEY)")

	cmd.AddCommand(
		newServeCmd(app),
		newGenerateCmd(app),
		newStudioCmd(app),
		newProjectCmd(app),
		newQueueCmd(app),
		newKeysCmd(app),
		newStylesCmd(app),
		newPalettesCmd(app),
		newProvidersCmd(app),
		newGalleryCmd(app),
		newCostsCmd(app),
		newStorageCmd(app),
	)
	return cmd
}

// loadConfig reads the layered configuration and applies global flags.
func (a *App) loadConfig() (*config.Config, error) {
	envFile, required := a.opts.envFile, true
	if envFile == "" {
		envFile, required = ".env", false
	}
	if err := config.LoadDotEnv(envFile, required); err != nil {
		return nil, err
	}

	cfg, err := config.Load(a.opts.configPath, a.GetEnv)
	if err != nil {
		return nil, err
	}
	if a.opts.dataDir != "" {
		cfg.DataDir = a.opts.dataDir
	}
	if a.opts.logLevel != "" {
		if _, err := config.ParseLevel(a.opts.logLevel); err != nil {
			return nil, err
		}
		cfg.LogLevel = a.opts.logLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: cfg.Level()})))
	return cfg, nil
}

func (a *App) keyStore(cfg *config.Config) *keys.Store {
	return keys.NewStoreAt(cfg.DataDir)
}

// runtime is the wired application behind one command invocation.
type runtime struct {
	cfg        *config.Config
	kv         *store.Store
	dispatcher *dispatch.Dispatcher
	projects   *project.Store
	runner     *batch.Runner
}

func (a *App) open(ctx context.Context, notifier batch.Notifier) (*runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	kv, err := store.NewStoreWithPath(cfg.DBPath(), cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, err
	}

	explicit := map[models.ProviderType]string{
		models.ProviderGoogle: a.opts.googleKey,
		models.ProviderOpenAI: a.opts.openaiKey,
	}
	resolved := keys.ResolveAll(a.keyStore(cfg), explicit, a.GetEnv)
	set, err := provider.Build(ctx, a.Registry, cfg.ProviderConfigs(resolved), a.Constructors)
	if err != nil {
		kv.Close()
		return nil, err
	}

	d := dispatch.New(dispatch.Config{
		DefaultProvider: models.ProviderType(cfg.DefaultProvider),
		MinInterval:     cfg.Throttle(),
		Pricing:         cfg.PricingOverrides(),
	}, set)

	projects := project.NewStore(kv)
	runner := batch.NewRunner(projects, d, notifier)
	runner.Delay = cfg.BatchDelay()

	slog.Debug("runtime ready", "data_dir", cfg.DataDir, "providers", set.Available())
	return &runtime{cfg: cfg, kv: kv, dispatcher: d, projects: projects, runner: runner}, nil
}

func (rt *runtime) Close() error {
	return rt.kv.Close()
}

// resolveProject returns the project named by ref (id, id prefix or
// case-insensitive name) or the current project when ref is empty.
func (rt *runtime) resolveProject(ctx context.Context, ref string) (*project.Project, error) {
	if ref == "" {
		return rt.projects.EnsureDefault(ctx)
	}
	projects, err := rt.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range projects {
		if strings.HasPrefix(p.ID, ref) || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return nil, &project.NotFoundError{Resource: "project", ID: ref}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
