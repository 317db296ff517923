package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/chathistory"
	"github.com/inercia/go-baski/pkg/completion"
	"github.com/inercia/go-baski/pkg/factory"
	"github.com/inercia/go-baski/pkg/store"
)

type completeFlags struct {
	prompt   string
	params   map[string]string
	user     string
	provider string
	model    string
	system   string
	chat     string
}

func completeCmd(a *app) *cobra.Command {
	var flags completeFlags

	cmd := &cobra.Command{
		Use:   "complete [TEXT]",
		Short: "Stream a chat completion",
		Long: `Stream a chat completion from the configured provider.

Either pass the text to complete or name a prompt of the settings file
with --prompt and fill its placeholders with --param. With --chat the
conversation is kept in the configured store and sent as history.`,
		Example: `  baski complete "Say hello"
  baski complete --prompt summarize --param text="$(cat notes.txt)"
  baski complete --provider ollama --model llama3.1 --chat 42 "and then?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if flags.prompt == "" && text == "" {
				return usageErr("either TEXT or --prompt is required")
			}
			if flags.prompt != "" && text != "" {
				return usageErr("TEXT and --prompt are mutually exclusive")
			}
			if flags.prompt != "" {
				if _, ok := a.settings.Completion.Prompts.Lookup(flags.prompt); !ok {
					return usageErr("unknown prompt %q", flags.prompt)
				}
				text = flags.prompt
			}
			return runComplete(cmd.Context(), a, flags, text)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.prompt, "prompt", "p", "", "name of a prompt from the settings")
	fs.StringToStringVar(&flags.params, "param", nil, "prompt parameters (k=v)")
	fs.StringVarP(&flags.user, "user", "u", "cli", "user id sent to the provider")
	fs.StringVar(&flags.provider, "provider", "", "provider (default from settings)")
	fs.StringVarP(&flags.model, "model", "m", "", "model (default from settings)")
	fs.StringVar(&flags.system, "system", "", "system prompt (default from settings)")
	fs.StringVar(&flags.chat, "chat", "", "keep the conversation under this chat id")
	return cmd
}

func runComplete(ctx context.Context, a *app, flags completeFlags, text string) error {
	s := a.settings
	if flags.provider != "" {
		s.LLM.Provider = flags.provider
	}
	if flags.model != "" {
		s.LLM.Model = flags.model
	}
	if flags.system != "" {
		s.Completion.SystemPrompt = flags.system
	}

	client, err := factory.New(a.env.Registry).CreateClient(s.ClientConfig())
	if err != nil {
		return err
	}
	defer client.Close()

	completer := completion.New(client, s.CompletionOptions(a.logger)...)

	pr := completion.PromptRequest{UserID: flags.user, Prompt: text, Params: toAny(flags.params)}

	var history *chathistory.History
	if flags.chat != "" {
		db, err := store.Open(ctx, s.Store.Driver, s.Store.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		history = chathistory.New(db, flags.chat)
		entries, err := history.All(ctx)
		if err != nil {
			return err
		}
		pr.History = chathistory.Messages(entries)
	}

	chunks, err := completer.FromPrompt(ctx, pr)
	if err != nil {
		return err
	}

	final, err := printChunks(a, chunks)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if history != nil {
		now := time.Now()
		next := now.UnixNano()
		if err := history.FromUser(ctx, next, now, text); err != nil {
			return err
		}
		if err := history.FromAssistant(ctx, next+1, now.Add(time.Millisecond), final); err != nil {
			return err
		}
	}
	return nil
}

// printChunks writes the growing text as it arrives and returns the text of
// the last attempt.
func printChunks(a *app, chunks <-chan completion.Chunk) (string, error) {
	var (
		attempt int
		printed int
		text    string
	)
	for chunk := range chunks {
		if chunk.Err != nil {
			if printed > 0 {
				fmt.Fprintln(a.env.Stdout)
			}
			return "", chunk.Err
		}
		if chunk.Attempt != attempt {
			if printed > 0 {
				fmt.Fprintln(a.env.Stdout)
			}
			fmt.Fprintf(a.env.Stderr, "restarting (attempt %d)\n", chunk.Attempt)
			attempt, printed = chunk.Attempt, 0
		}
		fmt.Fprint(a.env.Stdout, chunk.Text[printed:])
		printed = len(chunk.Text)
		text = chunk.Text
	}
	if printed > 0 {
		fmt.Fprintln(a.env.Stdout)
	}
	return text, nil
}

func toAny(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
