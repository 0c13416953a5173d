package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwtag/kwtag/internal/adapters/bbolt"
	"github.com/kwtag/kwtag/internal/domain/vocab"
	"github.com/kwtag/kwtag/internal/ports"
)

type vocabOptions struct {
	dbPath string
}

func newVocabCmd(root *rootOptions) *cobra.Command {
	opts := &vocabOptions{}
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage stored vocabularies",
		Long:  "Stored vocabularies live in the bbolt database at store.path and are applied with `annotate --vocab` or `store: true` in the config.",
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Database path (overrides store.path)")

	cmd.AddCommand(
		newVocabImportCmd(root, opts),
		newVocabListCmd(root, opts),
		newVocabShowCmd(root, opts),
		newVocabDeleteCmd(root, opts),
	)
	return cmd
}

// openStore opens the vocabulary database, turning a lock timeout into advice.
func (o *vocabOptions) openStore(root *rootOptions) (*bbolt.Store, error) {
	path := o.dbPath
	if path == "" {
		cfg, err := root.loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Store.Path
	}
	store, err := bbolt.NewStore(path)
	if bbolt.IsLocked(err) {
		return nil, fmt.Errorf("database %s is locked by another process\n"+
			"  → stop the running `kwtag serve` first, then retry", path)
	}
	return store, err
}

func newVocabImportCmd(root *rootOptions, opts *vocabOptions) *cobra.Command {
	kw := &keywordFlags{}
	cmd := &cobra.Command{
		Use:   "import <name>",
		Short: "Save keywords as a named vocabulary",
		Long:  "Resolves the keyword sources (list, then dict, then file; later mappings win) and saves the result, replacing any vocabulary with the same name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !kw.set() {
				return errNoVocabulary
			}
			c, err := kw.vocabConfig(args[0])
			if err != nil {
				return err
			}
			v, err := vocab.Load(c)
			if err != nil {
				return err
			}
			rec := newRecord(c, v)

			store, err := opts.openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveVocabulary(rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "⚡ imported %q (%d variants)\n", rec.Name, rec.Size())
			return nil
		},
	}
	kw.bind(cmd.Flags())
	return cmd
}

// newRecord flattens a resolved vocabulary: variants that are their own
// canonical form become keywords, the rest are grouped by canonical form.
func newRecord(c vocab.Config, v *vocab.Vocabulary) *ports.VocabularyRecord {
	rec := &ports.VocabularyRecord{
		Name:          c.Name,
		Label:         c.Label,
		CaseSensitive: c.CaseSensitive,
	}
	for _, e := range v.Entries() {
		if e.Variant == e.Canonical {
			rec.Keywords = append(rec.Keywords, e.Variant)
			continue
		}
		if rec.Dict == nil {
			rec.Dict = make(map[string][]string)
		}
		rec.Dict[e.Canonical] = append(rec.Dict[e.Canonical], e.Variant)
	}
	return rec
}

func newVocabListCmd(root *rootOptions, opts *vocabOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored vocabularies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.ListVocabularies()
			if err != nil {
				return err
			}
			recs := make([]*ports.VocabularyRecord, 0, len(names))
			for _, name := range names {
				rec, err := store.LoadVocabulary(name)
				if err != nil {
					return err
				}
				if rec != nil {
					recs = append(recs, rec)
				}
			}

			if asJSON {
				return writeJSON(cmd, recs)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatVocabularies(recs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newVocabShowCmd(root *rootOptions, opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored vocabulary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.LoadVocabulary(args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("vocabulary %q not found", args[0])
			}
			return writeJSON(cmd, rec)
		},
	}
}

func newVocabDeleteCmd(root *rootOptions, opts *vocabOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteVocabulary(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "⚡ deleted %q\n", args[0])
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
