package repo

import (
	"context"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/knolab/knolab/internal/model"
	"github.com/knolab/knolab/internal/pkg/dbutil"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
)

var clusterFields = []string{"id", "kb_id", "name", "primary_concepts", "skill_level", "ctime", "mtime"}

type ClusterRepo struct {
	db *DB
}

func NewClusterRepo(db *DB) *ClusterRepo {
	return &ClusterRepo{db: db}
}

func (r *ClusterRepo) Create(ctx context.Context, cluster *model.Cluster) error {
	primary, err := json.Marshal(cluster.PrimaryConcepts)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":               cluster.ID,
		"kb_id":            cluster.KBID,
		"name":             cluster.Name,
		"primary_concepts": string(primary),
		"skill_level":      cluster.SkillLevel,
		"ctime":            cluster.Ctime,
		"mtime":            cluster.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("clusters", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ClusterRepo) GetByID(ctx context.Context, kbID, clusterID int64) (*model.Cluster, error) {
	clusters, err := r.query(ctx, map[string]interface{}{"id": clusterID, "kb_id": kbID})
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &clusters[0], nil
}

func (r *ClusterRepo) GetByName(ctx context.Context, kbID int64, name string) (*model.Cluster, error) {
	clusters, err := r.query(ctx, map[string]interface{}{"kb_id": kbID, "name": name})
	if err != nil {
		return nil, err
	}
	if len(clusters) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &clusters[0], nil
}

// ListByKB returns clusters ordered by ascending id so scoring iterations are
// reproducible.
func (r *ClusterRepo) ListByKB(ctx context.Context, kbID int64) ([]model.Cluster, error) {
	return r.query(ctx, map[string]interface{}{"kb_id": kbID, "_orderby": "id asc"})
}

func (r *ClusterRepo) query(ctx context.Context, where map[string]interface{}) ([]model.Cluster, error) {
	sqlStr, args, err := builder.BuildSelect("clusters", where, clusterFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Cluster, 0)
	for rows.Next() {
		var cluster model.Cluster
		var primary string
		if err := rows.Scan(&cluster.ID, &cluster.KBID, &cluster.Name, &primary, &cluster.SkillLevel, &cluster.Ctime, &cluster.Mtime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(primary), &cluster.PrimaryConcepts); err != nil {
			return nil, err
		}
		result = append(result, cluster)
	}
	return result, rows.Err()
}

func (r *ClusterRepo) UpdateSkill(ctx context.Context, kbID, clusterID int64, skill string, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("clusters",
		map[string]interface{}{"id": clusterID, "kb_id": kbID},
		map[string]interface{}{"skill_level": skill, "mtime": mtime})
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

func (r *ClusterRepo) Delete(ctx context.Context, kbID, clusterID int64) error {
	sqlStr, args, err := builder.BuildDelete("clusters", map[string]interface{}{"id": clusterID, "kb_id": kbID})
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

func (r *ClusterRepo) DeleteByKB(ctx context.Context, kbID int64) error {
	sqlStr, args, err := builder.BuildDelete("clusters", map[string]interface{}{"kb_id": kbID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ClusterRepo) CountByKB(ctx context.Context, kbID int64) (int, error) {
	query, args := dbutil.Finalize(r.db.Driver(),
		`SELECT COUNT(*) FROM clusters WHERE kb_id = ?`, []interface{}{kbID})
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
