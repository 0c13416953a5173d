package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: ":9000"
log:
  level: debug
  format: console
watch: true
vocabularies:
  - name: skills
    label: SKILL
    keywords: [java, python]
    dict:
      product management: [PM, product manager]
  - label: TOOL
    file: tools.txt
    case_sensitive: true
  - name: saved
    store: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kwtag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Watch)

	require.Len(t, cfg.Vocabularies, 3)
	skills := cfg.Vocabularies[0]
	assert.Equal(t, "skills", skills.Name)
	assert.Equal(t, []string{"java", "python"}, skills.Keywords)
	assert.Equal(t, []string{"PM", "product manager"}, skills.Dict["product management"])

	assert.Equal(t, "entity_2", cfg.Vocabularies[1].Name)
	assert.True(t, cfg.Vocabularies[1].CaseSensitive)
	assert.True(t, cfg.UsesStore())
	assert.Equal(t, []string{"tools.txt"}, cfg.Files())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("KWTAG_SERVER_ADDR", ":7000")
	t.Setenv("KWTAG_LOG_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("KWTAG_STORE_PATH", "/tmp/kw.db")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, "/tmp/kw.db", cfg.Store.Path)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Empty(t, cfg.Vocabularies)
}

func TestLoadOptional_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := LoadOptional("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
}

// =============================================================================
// Validation
// =============================================================================

func validConfig() *Config {
	cfg := &Config{Vocabularies: []VocabularyConfig{{Keywords: []string{"go"}}}}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "entity", cfg.Vocabularies[0].Name)
}

func TestValidate_DuplicateNames(t *testing.T) {
	cfg := validConfig()
	cfg.Vocabularies = append(cfg.Vocabularies, VocabularyConfig{Name: "entity"})
	assert.ErrorContains(t, cfg.Validate(), "duplicate name")
}

func TestValidate_StoreWithInlineKeywords(t *testing.T) {
	cfg := validConfig()
	cfg.Vocabularies[0].Store = true
	assert.ErrorContains(t, cfg.Validate(), "store cannot be combined")
}

func TestValidate_BadLog(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	assert.ErrorContains(t, err, "log.level")
	assert.ErrorContains(t, err, "log.format")
}

func TestVocabConfig_IsDeepCopy(t *testing.T) {
	vc := VocabularyConfig{Name: "n", Keywords: []string{"a"}, Dict: map[string][]string{"c": {"v"}}}
	out := vc.VocabConfig()
	vc.Keywords[0] = "changed"
	vc.Dict["c"][0] = "changed"
	assert.Equal(t, "a", out.KeywordList[0])
	assert.Equal(t, "v", out.KeywordDict["c"][0])
}
