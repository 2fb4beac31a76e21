package model

const (
	SuggestionStatusProposed  = "proposed"
	SuggestionStatusCompleted = "completed"
	SuggestionStatusDismissed = "dismissed"
)

type BuildSuggestion struct {
	ID          int64   `json:"id"`
	KBID        int64   `json:"kb_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ClusterIDs  []int64 `json:"cluster_ids"`
	Status      string  `json:"status"`
	Ctime       int64   `json:"ctime"`
}
