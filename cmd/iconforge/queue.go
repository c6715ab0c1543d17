package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manash/iconforge/internal/batch"
	"github.com/manash/iconforge/internal/project"
)

func newQueueCmd(app *App) *cobra.Command {
	var projectRef string

	cmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Manage a project's generation queue",
	}
	cmd.PersistentFlags().StringVar(&projectRef, "project", "", "project id or name (defaults to the current project)")

	cmd.AddCommand(
		newQueueAddCmd(app, &projectRef),
		newQueueListCmd(app, &projectRef),
		newQueueRunCmd(app, &projectRef),
		newQueueClearCmd(app, &projectRef),
		newQueueRemoveCmd(app, &projectRef),
	)
	return cmd
}

func newQueueAddCmd(app *App, projectRef *string) *cobra.Command {
	var (
		file string
		item batch.Item
	)

	cmd := &cobra.Command{
		Use:   "add [prompt]",
		Short: "Queue a prompt, or every prompt of a file",
		Long: `Queue a prompt, or every prompt of a file.

Text files hold one prompt per line; blank lines and lines starting with #
are skipped. JSON files hold an array of items with the same fields as
the flags of this command.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var items []batch.Item
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("give a prompt or --file, not both")
			case file != "":
				parsed, err := batch.ParseFile(file)
				if err != nil {
					return err
				}
				items = parsed
			case len(args) == 1:
				item.Prompt = args[0]
				items = []batch.Item{item}
			default:
				return fmt.Errorf("a prompt or --file is required")
			}

			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, *projectRef)
			if err != nil {
				return err
			}
			for _, it := range items {
				q, err := it.QueueItem(p)
				if err != nil {
					return err
				}
				added, err := rt.projects.AddToQueue(ctx, p.ID, q)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Queued %s %q (priority %d)\n", renderID(added.ID), added.Name, added.Priority)
			}
			printSuccess(app.Out, "%d item(s) added to %s", len(items), p.Name)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "text or JSON file of prompts")
	f.StringVarP(&item.Name, "name", "n", "", "item name (default: start of the prompt)")
	f.IntVar(&item.Priority, "priority", 0, "priority, higher runs first (default 1)")
	f.StringVarP(&item.Provider, "provider", "p", "", "provider")
	f.StringVarP(&item.Model, "model", "m", "", "model")
	f.StringVarP(&item.Quality, "quality", "q", "", "quality")
	f.StringVarP(&item.ArtStyle, "style", "s", "", "art style id")
	f.StringVarP((*string)(&item.AspectRatio), "aspect", "a", "", "aspect ratio (square, vertical, horizontal)")
	f.BoolVar(&item.Background, "background", false, "generate a game background")
	f.BoolVar(&item.Monochrome, "monochrome", false, "black and white only")
	f.BoolVarP(&item.Transparent, "transparent", "t", false, "transparent background")
	return cmd
}

func newQueueListCmd(app *App, projectRef *string) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued items, highest priority first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, *projectRef)
			if err != nil {
				return err
			}
			if len(p.GenerationQueue) == 0 {
				fmt.Fprintf(app.Out, "The queue of %s is empty\n", p.Name)
				return nil
			}
			for _, it := range project.SortQueue(p.GenerationQueue) {
				fmt.Fprintf(app.Out, "%s  %-10s p%-2d %-30s %s/%s\n",
					renderID(it.ID), it.Status, it.Priority, it.Name, it.Provider, labelOr(it.Model, "default"))
				if it.Status == project.StatusFailed && it.Error != "" {
					fmt.Fprintf(app.Out, "          %s\n", styleMuted.Render(it.Error))
				}
			}
			return nil
		},
	}
}

func labelOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func newQueueRunCmd(app *App, projectRef *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run [item...]",
		Short: "Generate pending items, or the given items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rt, err := app.open(ctx, batch.NewWriterNotifier(app.Out, app.Err))
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, *projectRef)
			if err != nil {
				return err
			}
			ids, err := matchItems(p, args)
			if err != nil {
				return err
			}
			if len(rt.dispatcher.Available()) == 0 {
				return errNoProviders
			}

			summary, err := rt.runner.RunAll(ctx, p.ID, ids)
			if err != nil {
				// interrupted runs still report what finished
				if summary != nil && len(summary.Results) > 0 {
					batch.PrintSummary(app.Out, summary)
				}
				return err
			}
			if len(summary.Results) == 0 {
				fmt.Fprintln(app.Out, "Nothing to run")
				return nil
			}
			batch.PrintSummary(app.Out, summary)
			return nil
		},
	}
}

var errNoProviders = errors.New("no provider configured: run 'iconforge keys set <provider>' or set GOOGLE_AI_API_KEY / OPENAI_API_KEY")

// matchItems resolves id prefixes to queue item ids.
func matchItems(p *project.Project, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id := ""
		for _, it := range p.GenerationQueue {
			if it.ID == ref || (len(ref) >= 4 && strings.HasPrefix(it.ID, ref)) {
				id = it.ID
				break
			}
		}
		if id == "" {
			return nil, &project.NotFoundError{Resource: "queue item", ID: ref}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newQueueClearCmd(app *App, projectRef *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and failed items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, *projectRef)
			if err != nil {
				return err
			}
			n, err := rt.projects.ClearCompletedQueue(ctx, p.ID)
			if err != nil {
				return err
			}
			printSuccess(app.Out, "Removed %d finished item(s)", n)
			return nil
		},
	}
}

func newQueueRemoveCmd(app *App, projectRef *string) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <item...>",
		Aliases: []string{"rm"},
		Short:   "Remove items from the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := app.open(ctx, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProject(ctx, *projectRef)
			if err != nil {
				return err
			}
			ids, err := matchItems(p, args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := rt.projects.RemoveFromQueue(ctx, p.ID, id); err != nil {
					return err
				}
			}
			printSuccess(app.Out, "Removed %d item(s)", len(ids))
			return nil
		},
	}
}
