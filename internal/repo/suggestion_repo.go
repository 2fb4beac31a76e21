package repo

import (
	"context"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/knolab/knolab/internal/model"
	"github.com/knolab/knolab/internal/pkg/dbutil"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
)

var suggestionFields = []string{"id", "kb_id", "title", "description", "cluster_ids", "status", "ctime"}

type SuggestionRepo struct {
	db *DB
}

func NewSuggestionRepo(db *DB) *SuggestionRepo {
	return &SuggestionRepo{db: db}
}

func (r *SuggestionRepo) Create(ctx context.Context, suggestion *model.BuildSuggestion) error {
	clusterIDs, err := json.Marshal(suggestion.ClusterIDs)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":          suggestion.ID,
		"kb_id":       suggestion.KBID,
		"title":       suggestion.Title,
		"description": suggestion.Description,
		"cluster_ids": string(clusterIDs),
		"status":      suggestion.Status,
		"ctime":       suggestion.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("build_suggestions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SuggestionRepo) GetByID(ctx context.Context, kbID, suggestionID int64) (*model.BuildSuggestion, error) {
	items, err := r.query(ctx, map[string]interface{}{"id": suggestionID, "kb_id": kbID})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *SuggestionRepo) ListByKB(ctx context.Context, kbID int64) ([]model.BuildSuggestion, error) {
	return r.query(ctx, map[string]interface{}{"kb_id": kbID, "_orderby": "ctime desc, id asc"})
}

func (r *SuggestionRepo) query(ctx context.Context, where map[string]interface{}) ([]model.BuildSuggestion, error) {
	sqlStr, args, err := builder.BuildSelect("build_suggestions", where, suggestionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.BuildSuggestion, 0)
	for rows.Next() {
		var item model.BuildSuggestion
		var clusterIDs string
		if err := rows.Scan(&item.ID, &item.KBID, &item.Title, &item.Description, &clusterIDs, &item.Status, &item.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(clusterIDs), &item.ClusterIDs); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// TransitionStatus moves a proposed suggestion to a terminal status. The
// where-clause pins status=proposed so terminal states can never transition
// again; zero rows means either missing or already terminal.
func (r *SuggestionRepo) TransitionStatus(ctx context.Context, kbID, suggestionID int64, status string) error {
	sqlStr, args, err := builder.BuildUpdate("build_suggestions",
		map[string]interface{}{"id": suggestionID, "kb_id": kbID, "status": model.SuggestionStatusProposed},
		map[string]interface{}{"status": status})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, kbID, suggestionID); getErr != nil {
			return getErr
		}
		return appErr.ErrConflict
	}
	return nil
}

func (r *SuggestionRepo) DeleteByKB(ctx context.Context, kbID int64) error {
	sqlStr, args, err := builder.BuildDelete("build_suggestions", map[string]interface{}{"kb_id": kbID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
