package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manash/iconforge/internal/keys"
	"github.com/manash/iconforge/pkg/models"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored provider API keys",
	}
	cmd.AddCommand(newKeysSetCmd(app), newKeysListCmd(app), newKeysDeleteCmd(app))
	return cmd
}

func parseProvider(s string) (models.ProviderType, error) {
	p := models.ProviderType(strings.ToLower(s))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q (known: %v)", models.ErrInvalidProvider, s, models.KnownProviders())
	}
	return p, nil
}

func newKeysSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Store a provider key",
		Long: `Store a provider key in keys.json under the data directory.

Without a key argument the key is read from stdin, without echo when
stdin is a terminal.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}

			key := ""
			if len(args) == 2 {
				key = args[1]
			} else if key, err = app.readKey(p); err != nil {
				return err
			}

			store := app.keyStore(cfg)
			if err := store.Set(p, key); err != nil {
				return err
			}
			printSuccess(app.Out, "Stored %s key %s in %s", p, keys.MaskKey(strings.TrimSpace(key)), store.Path())
			return nil
		},
	}
}

func (a *App) readKey(p models.ProviderType) (string, error) {
	if f, ok := a.In.(*os.File); ok && isTerminal(f) && a.ReadSecret != nil {
		fmt.Fprintf(a.Err, "Enter %s API key: ", p)
		key, err := a.ReadSecret()
		fmt.Fprintln(a.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return key, nil
	}
	line, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read key from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newKeysListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show which key each provider resolves to",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			store := app.keyStore(cfg)
			explicit := map[models.ProviderType]string{
				models.ProviderGoogle: app.opts.googleKey,
				models.ProviderOpenAI: app.opts.openaiKey,
			}
			for _, p := range models.KnownProviders() {
				key, source := keys.Resolve(store, explicit[p], p, app.GetEnv)
				if key == "" {
					fmt.Fprintf(app.Out, "%-8s %s\n", p, styleMuted.Render("not configured ("+keys.EnvVar(p)+")"))
					continue
				}
				fmt.Fprintf(app.Out, "%-8s %s  %s\n", p, keys.MaskKey(key), styleMuted.Render(source))
			}
			return nil
		},
	}
}

func newKeysDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <provider>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored provider key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if err := app.keyStore(cfg).Delete(p); err != nil {
				return err
			}
			printSuccess(app.Out, "Deleted stored %s key", p)
			return nil
		},
	}
}
