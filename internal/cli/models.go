package cli

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/providers/bedrock"
	"github.com/inercia/go-baski/pkg/providers/ollama"
)

func modelsCmd(a *app) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "models [bedrock|ollama]",
		Short: "List the models a provider offers",
		Long: `List the models a provider offers. Bedrock lists its text foundation
models, optionally filtered by vendor with --by. Ollama lists the models
pulled on the server.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"bedrock", "ollama"},
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := a.settings.LLM.Provider
			if len(args) == 1 {
				provider = args[0]
			}
			cfg := a.settings.ClientConfig()
			cfg.Provider = provider

			table := uitable.New()
			table.MaxColWidth = 60

			switch strings.ToLower(provider) {
			case "bedrock":
				client, err := bedrock.NewClient(cfg)
				if err != nil {
					return err
				}
				defer client.Close()
				models, err := client.ListModels(cmd.Context(), by)
				if err != nil {
					return err
				}
				table.AddRow("ID", "NAME", "PROVIDER", "STREAMING")
				for _, m := range models {
					table.AddRow(m.ID, m.Name, m.Provider, m.Streaming)
				}
			case "ollama":
				client, err := ollama.NewClient(cfg)
				if err != nil {
					return err
				}
				defer client.Close()
				names, err := client.ListModels(cmd.Context())
				if err != nil {
					return err
				}
				table.AddRow("NAME")
				for _, n := range names {
					table.AddRow(n)
				}
			default:
				return usageErr("listing models is not supported for provider %q", provider)
			}

			_, err := fmt.Fprintln(a.env.Stdout, table)
			return err
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "only models of this vendor (bedrock)")
	return cmd
}
