package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/concurrent"
	"github.com/inercia/go-baski/pkg/providers/openai"
)

func transcribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe FILE...",
		Short: "Transcribe audio files with Whisper",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings.ClientConfig()
			cfg.Provider = "openai"
			client, err := openai.NewClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			pool := concurrent.NewPool(a.settings.Concurrency)
			texts, err := concurrent.Map(cmd.Context(), args, pool.Size(),
				func(ctx context.Context, path string) (string, error) {
					return concurrent.Offload(ctx, pool, func() (string, error) {
						return transcribeFile(ctx, client, path)
					})
				})
			if err != nil {
				return err
			}

			for i, text := range texts {
				if len(texts) > 1 {
					fmt.Fprintf(a.env.Stdout, "== %s\n", args[i])
				}
				fmt.Fprintln(a.env.Stdout, text)
			}
			return nil
		},
	}
}

func transcribeFile(ctx context.Context, client *openai.Client, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	text, err := client.Transcribe(ctx, filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("transcribing %s: %w", path, err)
	}
	return text, nil
}
