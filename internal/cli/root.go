package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/config"
	"github.com/inercia/go-baski/pkg/version"
)

// app is shared by the commands of one invocation.
type app struct {
	env        *Env
	configPath string
	debug      bool

	cfg      *config.Config
	settings config.Settings
	logger   *slog.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, nil)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.settings = cfg.Get()
	if cmd.Flags().Changed("debug") {
		a.settings.Debug = a.debug
	}

	level := slog.LevelInfo
	if a.settings.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.env.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd(env *Env) *cobra.Command {
	a := &app{env: env}

	root := &cobra.Command{
		Use:           "baski",
		Short:         "HTTP, scraping and LLM completion toolkit",
		Version:       version.Get().String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "baski.yaml", "settings file (YAML)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "verbose logging")

	root.AddCommand(
		fetchCmd(a),
		completeCmd(a),
		scrapeCmd(a),
		modelsCmd(a),
		transcribeCmd(a),
		configCmd(a),
		versionCmd(a),
	)
	return root
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}
