package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kwtag/kwtag/internal/domain/vocab"
)

// keywordFlags are the keyword source flags shared by annotate and vocab import.
type keywordFlags struct {
	keywords      []string
	dictPath      string
	file          string
	label         string
	caseSensitive bool
}

func (k *keywordFlags) bind(f *pflag.FlagSet) {
	f.StringArrayVarP(&k.keywords, "keyword", "k", nil, "Keyword (repeatable)")
	f.StringVar(&k.dictPath, "dict", "", "JSON file mapping canonical forms to variants")
	f.StringVarP(&k.file, "file", "f", "", "Keyword file, one per line, optional variant=>canonical")
	f.StringVarP(&k.label, "label", "l", "", "Entity label attached to every match")
	f.BoolVar(&k.caseSensitive, "case-sensitive", false, "Match case exactly")
}

// set reports whether any keyword source was given.
func (k *keywordFlags) set() bool {
	return len(k.keywords) > 0 || k.dictPath != "" || k.file != ""
}

// readDict loads the --dict JSON file, or returns nil when unset.
func (k *keywordFlags) readDict() (map[string][]string, error) {
	if k.dictPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(k.dictPath)
	if err != nil {
		return nil, fmt.Errorf("read dict: %w", err)
	}
	var dict map[string][]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse dict %s: %w", k.dictPath, err)
	}
	return dict, nil
}

// vocabConfig converts the flags to construction options for name.
func (k *keywordFlags) vocabConfig(name string) (vocab.Config, error) {
	dict, err := k.readDict()
	if err != nil {
		return vocab.Config{}, err
	}
	return vocab.Config{
		Name:          name,
		KeywordList:   k.keywords,
		KeywordDict:   dict,
		KeywordFile:   k.file,
		Label:         k.label,
		CaseSensitive: k.caseSensitive,
	}, nil
}
