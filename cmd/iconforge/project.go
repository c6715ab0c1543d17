package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/iconforge/internal/image"
	"github.com/manash/iconforge/internal/palette"
	"github.com/manash/iconforge/internal/project"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects", "proj"},
		Short:   "Manage icon projects",
	}
	cmd.AddCommand(
		newProjectListCmd(app),
		newProjectCreateCmd(app),
		newProjectShowCmd(app),
		newProjectUseCmd(app),
		newProjectDeleteCmd(app),
		newProjectExportCmd(app),
		newProjectImportCmd(app),
		newProjectDownloadCmd(app),
	)
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			current, err := rt.projects.EnsureDefault(ctx)
			if err != nil {
				return err
			}
			projects, err := rt.projects.List(ctx)
			if err != nil {
				return err
			}
			for _, p := range projects {
				marker := " "
				if p.ID == current.ID {
					marker = "*"
				}
				fmt.Fprintf(app.Out, "%s %s  %-24s %3d icons  %2d queued  updated %s\n",
					marker, renderID(p.ID), p.Name, len(p.Icons), len(p.GenerationQueue),
					humanize.Time(p.UpdatedAt))
			}
			return nil
		},
	}
}

func newProjectCreateCmd(app *App) *cobra.Command {
	var description, theme string
	var use bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project with a themed palette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if theme != "" && !slices.Contains(palette.Themes(), palette.Theme(theme)) {
				return fmt.Errorf("unknown theme %q: must be one of %v", theme, palette.Themes())
			}
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.projects.Create(ctx, args[0], description, palette.Theme(theme))
			if err != nil {
				return err
			}
			printSuccess(app.Out, "Created project %s (%s)", p.Name, renderID(p.ID))
			if use {
				if _, err := rt.projects.SetCurrent(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Switched to %s\n", p.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	cmd.Flags().StringVar(&theme, "theme", "", "palette theme (fantasy, sci-fi, modern, nature, custom)")
	cmd.Flags().BoolVar(&use, "use", false, "make the new project current")
	return cmd
}

func newProjectShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [project]",
		Short: "Show a project's settings, palette and icons",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, firstArg(args))
			if err != nil {
				return err
			}
			spent, err := rt.kv.GetProjectCost(ctx, p.ID)
			if err != nil {
				return err
			}

			const w = 12
			fmt.Fprintln(app.Out, styleBold.Render(p.Name))
			fmt.Fprintln(app.Out, labelValue("ID", p.ID, w))
			if p.Description != "" {
				fmt.Fprintln(app.Out, labelValue("Description", p.Description, w))
			}
			fmt.Fprintln(app.Out, labelValue("Provider", fmt.Sprintf("%s %s (%s)", p.Settings.DefaultProvider, p.Settings.DefaultModel, p.Settings.DefaultQuality), w))
			fmt.Fprintln(app.Out, labelValue("Auto-save", onOff(p.Settings.AutoSave), w))
			fmt.Fprintln(app.Out, labelValue("Palette", fmt.Sprintf("%s (prompts %s)", paletteName(p.ColorPalette), onOff(p.Settings.UsePaletteInPrompts)), w))
			if p.ColorPalette != nil {
				for _, s := range p.ColorPalette.Slots() {
					fmt.Fprintln(app.Out, labelValue(s.Label, swatch(s.Value)+" "+s.Value, w))
				}
				for _, c := range p.ColorPalette.Custom {
					fmt.Fprintln(app.Out, labelValue(c.Name, swatch(c.Hex)+" "+c.Hex, w))
				}
			}
			fmt.Fprintln(app.Out, labelValue("Spent", fmt.Sprintf("$%.4f over %d images", spent.TotalCost, spent.ImageCount), w))
			fmt.Fprintln(app.Out, labelValue("Created", humanize.Time(p.CreatedAt), w))

			fmt.Fprintf(app.Out, "\nIcons (%d):\n", len(p.Icons))
			for _, icon := range p.Icons {
				tags := ""
				if len(icon.Tags) > 0 {
					tags = " [" + strings.Join(icon.Tags, ", ") + "]"
				}
				fmt.Fprintf(app.Out, "  %s  %s (%s)%s\n", renderID(icon.ID), icon.Name, humanize.Time(icon.GeneratedAt), tags)
			}
			return nil
		},
	}
}

func paletteName(p *palette.Palette) string {
	if p == nil {
		return "none"
	}
	return p.Name
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func newProjectUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <project>",
		Short: "Make a project current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := rt.projects.SetCurrent(ctx, p.ID); err != nil {
				return err
			}
			printSuccess(app.Out, "Current project: %s", p.Name)
			return nil
		},
	}
}

func newProjectDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <project>",
		Aliases: []string{"rm"},
		Short:   "Delete a project and its icons",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, args[0])
			if err != nil {
				return err
			}
			if err := rt.projects.Delete(ctx, p.ID); err != nil {
				return err
			}
			printSuccess(app.Out, "Deleted project %s (%d icons)", p.Name, len(p.Icons))
			return nil
		},
	}
}

func newProjectExportCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [project]",
		Short: "Export a project as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, firstArg(args))
			if err != nil {
				return err
			}
			data, err := rt.projects.Export(ctx, p.ID)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := app.Out.Write(append(data, '\n'))
				return err
			}
			if output == "" {
				output = exportFileName(p.Name)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			printSuccess(app.Out, "Exported %s to %s", p.Name, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: <name>-project.json)`)
	return cmd
}

// exportFileName is "<lowercased name, spaces as hyphens>-project.json".
func exportFileName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-")) + "-project.json"
}

func newProjectImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a project exported as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.projects.Import(ctx, data)
			if err != nil {
				return err
			}
			printSuccess(app.Out, "Imported %s (%s) with %d icons", p.Name, renderID(p.ID), len(p.Icons))
			return nil
		},
	}
}

func newProjectDownloadCmd(app *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download [project]",
		Short: "Write every icon of a project to disk",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, firstArg(args))
			if err != nil {
				return err
			}
			return downloadProject(ctx, app, p, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "base directory; icons go to <dir>/<name>_Images")
	return cmd
}

func downloadProject(ctx context.Context, app *App, p *project.Project, dir string) error {
	if len(p.Icons) == 0 {
		fmt.Fprintf(app.Out, "%s has no icons to download\n", p.Name)
		return nil
	}
	paths, err := app.NewSaver().SaveProject(ctx, p, dir)
	for _, path := range paths {
		fmt.Fprintf(app.Out, "Saved: %s\n", path)
	}
	if err != nil {
		printWarning(app.Err, "%d of %d icons failed: %v", len(p.Icons)-len(paths), len(p.Icons), err)
	}
	if len(paths) > 0 {
		printSuccess(app.Out, "Downloaded %d icons to %s", len(paths), filepath.Clean(image.ProjectDir(dir, p.Name)))
	}
	return nil
}
