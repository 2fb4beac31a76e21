package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/knolab/knolab/internal/model"
	"github.com/knolab/knolab/internal/pkg/dbutil"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
)

var kbFields = []string{"id", "owner", "name", "is_default", "ctime", "mtime"}

type KnowledgeBaseRepo struct {
	db *DB
}

func NewKnowledgeBaseRepo(db *DB) *KnowledgeBaseRepo {
	return &KnowledgeBaseRepo{db: db}
}

func (r *KnowledgeBaseRepo) Create(ctx context.Context, kb *model.KnowledgeBase) error {
	data := map[string]interface{}{
		"id":         kb.ID,
		"owner":      kb.Owner,
		"name":       kb.Name,
		"is_default": kb.IsDefault,
		"ctime":      kb.Ctime,
		"mtime":      kb.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("knowledge_bases", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *KnowledgeBaseRepo) GetByID(ctx context.Context, owner string, kbID int64) (*model.KnowledgeBase, error) {
	where := map[string]interface{}{
		"id":    kbID,
		"owner": owner,
	}
	sqlStr, args, err := builder.BuildSelect("knowledge_bases", where, kbFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var kb model.KnowledgeBase
	if err := rows.Scan(&kb.ID, &kb.Owner, &kb.Name, &kb.IsDefault, &kb.Ctime, &kb.Mtime); err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepo) ListByOwner(ctx context.Context, owner string) ([]model.KnowledgeBase, error) {
	where := map[string]interface{}{
		"owner":    owner,
		"_orderby": "ctime asc",
	}
	return r.list(ctx, where)
}

func (r *KnowledgeBaseRepo) ListAll(ctx context.Context) ([]model.KnowledgeBase, error) {
	where := map[string]interface{}{
		"_orderby": "id asc",
	}
	return r.list(ctx, where)
}

func (r *KnowledgeBaseRepo) list(ctx context.Context, where map[string]interface{}) ([]model.KnowledgeBase, error) {
	sqlStr, args, err := builder.BuildSelect("knowledge_bases", where, kbFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.KnowledgeBase, 0)
	for rows.Next() {
		var kb model.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.Owner, &kb.Name, &kb.IsDefault, &kb.Ctime, &kb.Mtime); err != nil {
			return nil, err
		}
		result = append(result, kb)
	}
	return result, rows.Err()
}

// SetDefault marks one knowledge base as the owner's default and clears the
// flag on every sibling in the same transaction.
func (r *KnowledgeBaseRepo) SetDefault(ctx context.Context, owner string, kbID int64, mtime int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	clearStr, clearArgs, err := builder.BuildUpdate("knowledge_bases",
		map[string]interface{}{"owner": owner},
		map[string]interface{}{"is_default": 0})
	if err != nil {
		return err
	}
	clearStr, clearArgs = dbutil.Finalize(r.db.Driver(), clearStr, clearArgs)
	if _, err := tx.ExecContext(ctx, clearStr, clearArgs...); err != nil {
		return err
	}

	setStr, setArgs, err := builder.BuildUpdate("knowledge_bases",
		map[string]interface{}{"owner": owner, "id": kbID},
		map[string]interface{}{"is_default": 1, "mtime": mtime})
	if err != nil {
		return err
	}
	setStr, setArgs = dbutil.Finalize(r.db.Driver(), setStr, setArgs)
	result, err := tx.ExecContext(ctx, setStr, setArgs...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return tx.Commit()
}

func (r *KnowledgeBaseRepo) Delete(ctx context.Context, owner string, kbID int64) error {
	where := map[string]interface{}{
		"id":    kbID,
		"owner": owner,
	}
	sqlStr, args, err := builder.BuildDelete("knowledge_bases", where)
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
		return appErr.ErrNotFound
	}
	return nil
}
