package model

type KnowledgeBase struct {
	ID        int64  `json:"id"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	IsDefault int    `json:"is_default"`
	Ctime     int64  `json:"ctime"`
	Mtime     int64  `json:"mtime"`
}
