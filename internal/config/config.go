// Package config loads kwtag settings from YAML and KWTAG_* environment
// variables.
package config

import (
	"errors"
	"fmt"

	"github.com/kwtag/kwtag/internal/domain/vocab"
	"github.com/kwtag/kwtag/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Vocabularies []VocabularyConfig `mapstructure:"vocabularies" yaml:"vocabularies"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Log          logging.Config     `mapstructure:"log" yaml:"log"`
	// Watch reloads the pipeline when a keyword file changes.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// VocabularyConfig describes one annotator. Annotators run in list order.
type VocabularyConfig struct {
	Name          string              `mapstructure:"name" yaml:"name"`
	Label         string              `mapstructure:"label" yaml:"label"`
	CaseSensitive bool                `mapstructure:"case_sensitive" yaml:"case_sensitive"`
	Keywords      []string            `mapstructure:"keywords" yaml:"keywords,omitempty"`
	Dict          map[string][]string `mapstructure:"dict" yaml:"dict,omitempty"`
	File          string              `mapstructure:"file" yaml:"file,omitempty"`
	// Store loads the keywords saved under Name in the vocabulary store
	// instead of the inline sources above.
	Store bool `mapstructure:"store" yaml:"store,omitempty"`
}

// VocabConfig converts to the domain construction options.
func (v VocabularyConfig) VocabConfig() vocab.Config {
	return vocab.Config{
		Name:          v.Name,
		KeywordList:   v.Keywords,
		KeywordDict:   v.Dict,
		KeywordFile:   v.File,
		Label:         v.Label,
		CaseSensitive: v.CaseSensitive,
	}.Clone()
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// StoreConfig configures the bbolt vocabulary store.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Files returns the keyword files referenced by inline vocabularies.
func (c *Config) Files() []string {
	var files []string
	for _, v := range c.Vocabularies {
		if v.File != "" && !v.Store {
			files = append(files, v.File)
		}
	}
	return files
}

// UsesStore reports whether any vocabulary is loaded from the store.
func (c *Config) UsesStore() bool {
	for _, v := range c.Vocabularies {
		if v.Store {
			return true
		}
	}
	return false
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Vocabularies))
	for i, v := range c.Vocabularies {
		switch {
		case v.Name == "":
			errs = append(errs, fmt.Errorf("vocabularies[%d]: name is required", i))
		case seen[v.Name]:
			errs = append(errs, fmt.Errorf("vocabularies[%d]: duplicate name %q", i, v.Name))
		}
		seen[v.Name] = true
		if v.Store && (len(v.Keywords) > 0 || len(v.Dict) > 0 || v.File != "") {
			errs = append(errs, fmt.Errorf("vocabularies[%d] %q: store cannot be combined with inline keywords", i, v.Name))
		}
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.UsesStore() && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required when a vocabulary uses the store"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
