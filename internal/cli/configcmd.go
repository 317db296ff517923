package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/config"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the settings",
	}

	var raw bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var v any = redact(a.settings)
			if raw {
				v = a.cfg.AllSettings()
			}
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.env.Stdout, string(data))
			return err
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "print the merged keys as loaded, unredacted")

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.env.Stdout, string(data))
			return err
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the settings every time the file changes, until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Path() == "" {
				return usageErr("settings file %q does not exist", a.configPath)
			}
			changes := make(chan config.Settings)
			a.cfg.Watch(cmd.Context(), func(_, s config.Settings) {
				select {
				case changes <- s:
				case <-cmd.Context().Done():
				}
			})
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case s := <-changes:
					data, err := json.MarshalIndent(redact(s), "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(a.env.Stdout, string(data))
				}
			}
		},
	}

	cmd.AddCommand(show, schema, watch)
	return cmd
}

func redact(s config.Settings) config.Settings {
	mask := func(v *string) {
		if *v != "" {
			*v = "********"
		}
	}
	mask(&s.LLM.APIKey)
	mask(&s.Scrapfly.APIKey)
	mask(&s.Store.DSN)
	return s
}
