package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kwtag/kwtag/internal/adapters/web"
	"github.com/kwtag/kwtag/internal/app"
	"github.com/kwtag/kwtag/internal/config"
	"github.com/kwtag/kwtag/internal/domain/annotate"
	"github.com/kwtag/kwtag/internal/logging"
)

var errNoVocabulary = errors.New("no vocabulary: pass -k, --dict, -f or --vocab, or configure vocabularies")

type annotateOptions struct {
	keywordFlags
	text   string
	stored []string
	json   bool
}

func newAnnotateCmd(root *rootOptions) *cobra.Command {
	opts := &annotateOptions{}
	cmd := &cobra.Command{
		Use:   "annotate [flags]",
		Short: "Tag keywords in text",
		Long: "Tokenizes text (from --text or stdin), tags every keyword match as an entity and prints the entities.\n" +
			"Keyword flags and --vocab replace the vocabularies of the config file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	opts.bind(f)
	f.StringVarP(&opts.text, "text", "t", "", "Text to annotate (default: read stdin)")
	f.StringArrayVar(&opts.stored, "vocab", nil, "Stored vocabulary to apply (repeatable)")
	f.BoolVar(&opts.json, "json", false, "Output the annotated document as JSON")
	return cmd
}

func runAnnotate(cmd *cobra.Command, root *rootOptions, opts *annotateOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.applyTo(cfg); err != nil {
		return err
	}
	if len(cfg.Vocabularies) == 0 {
		return errNoVocabulary
	}

	text := opts.text
	if !cmd.Flags().Changed("text") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Stop()

	d, err := a.Annotate(text)
	if err != nil {
		return err
	}

	if opts.json {
		return writeJSON(cmd, web.NewAnnotateResult(d))
	}
	fmt.Fprint(cmd.OutOrStdout(), formatEntities(d))
	return nil
}

// applyTo replaces the configured vocabularies when any keyword source or
// stored vocabulary is given on the command line.
func (o *annotateOptions) applyTo(cfg *config.Config) error {
	if !o.set() && len(o.stored) == 0 {
		return nil
	}
	var vocabs []config.VocabularyConfig
	if o.set() {
		dict, err := o.readDict()
		if err != nil {
			return err
		}
		vocabs = append(vocabs, config.VocabularyConfig{
			Name:          annotate.DefaultName,
			Label:         o.label,
			CaseSensitive: o.caseSensitive,
			Keywords:      o.keywords,
			Dict:          dict,
			File:          o.file,
		})
	}
	for _, name := range o.stored {
		vocabs = append(vocabs, config.VocabularyConfig{Name: name, Store: true})
	}
	cfg.Vocabularies = vocabs
	return cfg.Validate()
}
