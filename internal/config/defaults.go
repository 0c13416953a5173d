package config

import (
	"fmt"

	"github.com/kwtag/kwtag/internal/domain/annotate"
)

const (
	DefaultServerAddr = "127.0.0.1:8371"
	DefaultStorePath  = "kwtag.db"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
)

// ApplyDefaults fills zero-value fields. Explicit settings always win.
// Unnamed vocabularies are called "entity", "entity_2", ... by position,
// the same names the pipeline would give them.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	for i := range cfg.Vocabularies {
		if cfg.Vocabularies[i].Name != "" {
			continue
		}
		if i == 0 {
			cfg.Vocabularies[i].Name = annotate.DefaultName
		} else {
			cfg.Vocabularies[i].Name = fmt.Sprintf("%s_%d", annotate.DefaultName, i+1)
		}
	}
}
