package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/iconforge/internal/gallery"
	"github.com/manash/iconforge/internal/keys"
	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/style"
	"github.com/manash/iconforge/pkg/models"
)

func newStylesCmd(app *App) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List art style presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range style.All() {
				fmt.Fprintf(app.Out, "%s %-18s %s\n", s.Preview, s.ID, s.Name)
				fmt.Fprintf(app.Out, "   %s\n", styleMuted.Render(s.Description))
				if verbose {
					fmt.Fprintf(app.Out, "   %s\n", s.Injection)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the phrase each style adds to prompts")
	return cmd
}

func newPalettesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "palettes",
		Short: "Show the preset palette of every theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range palette.Themes() {
				p := palette.Default(t)
				var swatches []string
				for _, s := range p.Slots() {
					swatches = append(swatches, swatch(s.Value))
				}
				for _, c := range p.Custom {
					swatches = append(swatches, swatch(c.Hex))
				}
				fmt.Fprintf(app.Out, "%-8s %-22s %s\n", t, p.Name, strings.Join(swatches, ""))
			}
			return nil
		},
	}
}

func newProvidersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers, their models and whether a key is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			explicit := map[models.ProviderType]string{
				models.ProviderGoogle: app.opts.googleKey,
				models.ProviderOpenAI: app.opts.openaiKey,
			}
			configured := keys.ResolveAll(app.keyStore(cfg), explicit, app.GetEnv)

			for _, pt := range models.KnownProviders() {
				info, _ := models.LookupProvider(pt)
				state := styleMuted.Render("no key")
				if configured[pt] != "" {
					state = styleSuccess.Render("ready")
				}
				fmt.Fprintf(app.Out, "%s (%s) %s\n", styleBold.Render(info.Name), pt, state)
				fmt.Fprintf(app.Out, "  %s\n  Pricing: %s\n", info.Description, info.Pricing)
				for _, l := range info.Limitations {
					fmt.Fprintf(app.Out, "  - %s\n", l)
				}

				def := app.Registry.DefaultModel(pt)
				for _, name := range app.Registry.ListByProvider(pt) {
					caps, _ := app.Registry.Get(name)
					marker := " "
					if name == def {
						marker = "*"
					}
					line := fmt.Sprintf("  %s %-28s %s", marker, name, caps.CostText)
					if caps.Deprecated != "" {
						line += " " + styleWarning.Render("("+caps.Deprecated+")")
					}
					fmt.Fprintln(app.Out, line)
				}
				fmt.Fprintln(app.Out)
			}
			return nil
		},
	}
}

func newGalleryCmd(app *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List images in the gallery directory, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.GalleryDir
			}
			images, err := gallery.New(dir, "/img/", cfg.GalleryTTL()).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(images) == 0 {
				fmt.Fprintf(app.Out, "No images in %s\n", dir)
				return nil
			}
			var total int64
			for _, img := range images {
				total += img.Size
				fmt.Fprintf(app.Out, "%-40s %8s  %s\n", img.Filename, img.SizeHuman, humanize.Time(img.ModifiedAt))
			}
			fmt.Fprintf(app.Out, "%d images, %s\n", len(images), humanize.Bytes(uint64(total)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "gallery directory (default from config)")
	return cmd
}

// periodStart returns the start of a named reporting period ending at now.
func periodStart(period string, now time.Time) (time.Time, error) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch period {
	case "today":
		return today, nil
	case "week":
		return today.AddDate(0, 0, -6), nil
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period %q: must be today, week or month", period)
	}
}

func newCostsCmd(app *App) *cobra.Command {
	var period, projectRef string

	cmd := &cobra.Command{
		Use:     "costs",
		Aliases: []string{"cost"},
		Short:   "Report spend on saved icons",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			total, err := rt.kv.GetTotalCost(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Total: $%.4f (%d images)\n", total.TotalCost, total.ImageCount)

			byProvider, err := rt.kv.GetCostByProvider(ctx)
			if err != nil {
				return err
			}
			for _, p := range byProvider {
				fmt.Fprintf(app.Out, "  %-8s $%.4f (%d images)\n", p.Provider, p.TotalCost, p.ImageCount)
			}

			if period != "" {
				now := time.Now()
				from, err := periodStart(period, now)
				if err != nil {
					return err
				}
				s, err := rt.kv.GetCostByDateRange(ctx, from, now.Add(time.Second))
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Since %s: $%.4f (%d images)\n", from.Format("2006-01-02"), s.TotalCost, s.ImageCount)
			}

			if cmd.Flags().Changed("project") {
				p, err := rt.resolveProject(ctx, projectRef)
				if err != nil {
					return err
				}
				s, err := rt.kv.GetProjectCost(ctx, p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "%s: $%.4f (%d images)\n", p.Name, s.TotalCost, s.ImageCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "since", "", "also report a period (today, week, month)")
	cmd.Flags().StringVar(&projectRef, "project", "", "also report one project")
	return cmd
}

func newStorageCmd(app *App) *cobra.Command {
	var wipe, yes bool

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Show stored bytes against the quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if wipe {
				if !yes {
					return fmt.Errorf("--clear deletes every project, setting and cost record; repeat with --yes")
				}
				if err := rt.projects.ClearAll(ctx); err != nil {
					return err
				}
				printSuccess(app.Out, "Cleared all stored data")
				return nil
			}

			used, quota, err := rt.projects.Usage(ctx)
			if err != nil {
				return err
			}
			if quota <= 0 {
				fmt.Fprintf(app.Out, "Used: %s (no quota)\n", humanize.Bytes(uint64(used)))
				return nil
			}
			pct := float64(used) / float64(quota) * 100
			fmt.Fprintf(app.Out, "Used: %s of %s (%.1f%%)\n", humanize.Bytes(uint64(used)), humanize.Bytes(uint64(quota)), pct)
			if pct >= 90 {
				printWarning(app.Err, "storage is nearly full; export and delete old projects")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wipe, "clear", false, "delete all stored data")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm --clear")
	return cmd
}
