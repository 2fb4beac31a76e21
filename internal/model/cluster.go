package model

type Cluster struct {
	ID              int64    `json:"id"`
	KBID            int64    `json:"kb_id"`
	Name            string   `json:"name"`
	PrimaryConcepts []string `json:"primary_concepts"`
	SkillLevel      string   `json:"skill_level"`
	Ctime           int64    `json:"ctime"`
	Mtime           int64    `json:"mtime"`
}
