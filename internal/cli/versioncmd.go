package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/version"
)

func versionCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// version needs no settings
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			switch output {
			case "short":
				fmt.Fprintln(a.env.Stdout, info.String())
			case "text":
				fmt.Fprintln(a.env.Stdout, info.Text())
			case "json":
				data, err := info.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(a.env.Stdout, data)
			default:
				return usageErr("unknown output format %q", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or short")
	return cmd
}
