package ports

// VocabularyInfo describes one annotator of the running pipeline.
type VocabularyInfo struct {
	Name          string `json:"name"`
	Label         string `json:"label"`
	CaseSensitive bool   `json:"case_sensitive"`
	Patterns      int    `json:"patterns"` // distinct compiled variants
	Source        string `json:"source"`   // "inline" or "store"
}
