package model

type Document struct {
	ID         int64  `json:"id"`
	KBID       int64  `json:"kb_id"`
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
	SkillLevel string `json:"skill_level"`
	ClusterID  int64  `json:"cluster_id"`
	Ctime      int64  `json:"ctime"`
}

// Concept is a document-scoped fact produced by the external extractor. The
// semantic dictionary is what unifies concepts with the same meaning but
// different surface names.
type Concept struct {
	DocumentID int64   `json:"document_id"`
	KBID       int64   `json:"kb_id"`
	Pos        int     `json:"pos"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}
