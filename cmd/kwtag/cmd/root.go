package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kwtag/kwtag/internal/config"
	"github.com/kwtag/kwtag/internal/logging"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "kwtag",
		Short:         "kwtag ⚡ dictionary keyword tagging",
		Long:          "Finds dictionary keywords in tokenized text and tags them as entities with their canonical form.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (KWTAG_* env vars override it)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		newAnnotateCmd(opts),
		newServeCmd(opts),
		newVocabCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the config file (if any), env overrides and flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		if _, err := logging.ParseLevel(o.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}
