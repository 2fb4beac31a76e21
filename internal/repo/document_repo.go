package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/knolab/knolab/internal/model"
	"github.com/knolab/knolab/internal/pkg/dbutil"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
)

var documentFields = []string{"id", "kb_id", "content", "source_type", "skill_level", "cluster_id", "ctime"}

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create stores the document and its extracted concepts in one transaction.
func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document, concepts []model.Concept) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	data := map[string]interface{}{
		"id":          doc.ID,
		"kb_id":       doc.KBID,
		"content":     doc.Content,
		"source_type": doc.SourceType,
		"skill_level": doc.SkillLevel,
		"cluster_id":  doc.ClusterID,
		"ctime":       doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}

	if len(concepts) > 0 {
		rowsData := make([]map[string]interface{}, 0, len(concepts))
		for i, concept := range concepts {
			rowsData = append(rowsData, map[string]interface{}{
				"document_id": doc.ID,
				"kb_id":       doc.KBID,
				"pos":         i,
				"name":        concept.Name,
				"category":    concept.Category,
				"confidence":  concept.Confidence,
			})
		}
		sqlStr, args, err = builder.BuildInsert("document_concepts", rowsData)
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *DocumentRepo) GetByID(ctx context.Context, kbID, docID int64) (*model.Document, error) {
	where := map[string]interface{}{
		"id":    docID,
		"kb_id": kbID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
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
	var doc model.Document
	if err := scanDocument(rows, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) ListByKB(ctx context.Context, kbID int64) ([]model.Document, error) {
	where := map[string]interface{}{
		"kb_id":    kbID,
		"_orderby": "id asc",
	}
	return r.list(ctx, where)
}

func (r *DocumentRepo) ListByIDs(ctx context.Context, kbID int64, ids []int64) ([]model.Document, error) {
	if len(ids) == 0 {
		return []model.Document{}, nil
	}
	where := map[string]interface{}{
		"kb_id": kbID,
		"id in": ids,
	}
	return r.list(ctx, where)
}

func (r *DocumentRepo) list(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

func scanDocument(rows *sql.Rows, doc *model.Document) error {
	return rows.Scan(&doc.ID, &doc.KBID, &doc.Content, &doc.SourceType, &doc.SkillLevel, &doc.ClusterID, &doc.Ctime)
}

func (r *DocumentRepo) SetCluster(ctx context.Context, kbID, docID, clusterID int64) error {
	sqlStr, args, err := builder.BuildUpdate("documents",
		map[string]interface{}{"id": docID, "kb_id": kbID},
		map[string]interface{}{"cluster_id": clusterID})
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

// Delete removes the document row and its concepts; index/cluster/duplicate
// cleanup is the caller's job.
func (r *DocumentRepo) Delete(ctx context.Context, kbID, docID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sqlStr, args, err := builder.BuildDelete("documents", map[string]interface{}{"id": docID, "kb_id": kbID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	result, err := tx.ExecContext(ctx, sqlStr, args...)
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

	sqlStr, args, err = builder.BuildDelete("document_concepts", map[string]interface{}{"document_id": docID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *DocumentRepo) DeleteByKB(ctx context.Context, kbID int64) error {
	for _, table := range []string{"documents", "document_concepts"} {
		sqlStr, args, err := builder.BuildDelete(table, map[string]interface{}{"kb_id": kbID})
		if err != nil {
			return err
		}
		sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
		if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentRepo) ListConcepts(ctx context.Context, kbID, docID int64) ([]model.Concept, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"kb_id":       kbID,
		"_orderby":    "pos asc",
	}
	sqlStr, args, err := builder.BuildSelect("document_concepts", where,
		[]string{"document_id", "kb_id", "pos", "name", "category", "confidence"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.db.Driver(), sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Concept, 0)
	for rows.Next() {
		var concept model.Concept
		if err := rows.Scan(&concept.DocumentID, &concept.KBID, &concept.Pos, &concept.Name, &concept.Category, &concept.Confidence); err != nil {
			return nil, err
		}
		result = append(result, concept)
	}
	return result, rows.Err()
}

func (r *DocumentRepo) CountByKB(ctx context.Context, kbID int64) (int, error) {
	return r.queryInt(ctx, `SELECT COUNT(*) FROM documents WHERE kb_id = ?`, kbID)
}

func (r *DocumentRepo) TotalContentLength(ctx context.Context, kbID int64) (int, error) {
	return r.queryInt(ctx, `SELECT COALESCE(SUM(LENGTH(content)), 0) FROM documents WHERE kb_id = ?`, kbID)
}

func (r *DocumentRepo) DistinctConceptCount(ctx context.Context, kbID int64) (int, error) {
	return r.queryInt(ctx, `SELECT COUNT(DISTINCT name) FROM document_concepts WHERE kb_id = ?`, kbID)
}

func (r *DocumentRepo) queryInt(ctx context.Context, query string, args ...interface{}) (int, error) {
	query, fargs := dbutil.Finalize(r.db.Driver(), query, args)
	var value int
	if err := r.db.QueryRowContext(ctx, query, fargs...).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

// MemberCounts returns document counts per cluster within one knowledge base.
func (r *DocumentRepo) MemberCounts(ctx context.Context, kbID int64) (map[int64]int, error) {
	query, args := dbutil.Finalize(r.db.Driver(),
		`SELECT cluster_id, COUNT(*) FROM documents WHERE kb_id = ? AND cluster_id <> 0 GROUP BY cluster_id`,
		[]interface{}{kbID})
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var clusterID int64
		var count int
		if err := rows.Scan(&clusterID, &count); err != nil {
			return nil, err
		}
		counts[clusterID] = count
	}
	return counts, rows.Err()
}

// NewestMemberTimes returns the newest document ctime per cluster.
func (r *DocumentRepo) NewestMemberTimes(ctx context.Context, kbID int64) (map[int64]int64, error) {
	query, args := dbutil.Finalize(r.db.Driver(),
		`SELECT cluster_id, MAX(ctime) FROM documents WHERE kb_id = ? AND cluster_id <> 0 GROUP BY cluster_id`,
		[]interface{}{kbID})
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	newest := make(map[int64]int64)
	for rows.Next() {
		var clusterID, ctime int64
		if err := rows.Scan(&clusterID, &ctime); err != nil {
			return nil, err
		}
		newest[clusterID] = ctime
	}
	return newest, rows.Err()
}

func (r *DocumentRepo) MemberSkills(ctx context.Context, kbID, clusterID int64) ([]string, error) {
	query, args := dbutil.Finalize(r.db.Driver(),
		`SELECT skill_level FROM documents WHERE kb_id = ? AND cluster_id = ? ORDER BY id ASC`,
		[]interface{}{kbID, clusterID})
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	skills := make([]string, 0)
	for rows.Next() {
		var skill string
		if err := rows.Scan(&skill); err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

type ConceptCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (r *DocumentRepo) TopConcepts(ctx context.Context, kbID int64, limit int) ([]ConceptCount, error) {
	query, args := dbutil.Finalize(r.db.Driver(),
		`SELECT name, COUNT(*) AS cnt FROM document_concepts WHERE kb_id = ? GROUP BY name ORDER BY cnt DESC, name ASC LIMIT ?`,
		[]interface{}{kbID, limit})
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]ConceptCount, 0, limit)
	for rows.Next() {
		var item ConceptCount
		if err := rows.Scan(&item.Name, &item.Count); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// Distribution counts documents per value of one metadata column.
func (r *DocumentRepo) Distribution(ctx context.Context, kbID int64, column string) (map[string]int, error) {
	if column != "skill_level" && column != "source_type" {
		return nil, appErr.ErrInvalid
	}
	query, args := dbutil.Finalize(r.db.Driver(),
		`SELECT `+column+`, COUNT(*) FROM documents WHERE kb_id = ? GROUP BY `+column,
		[]interface{}{kbID})
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dist := make(map[string]int)
	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		dist[value] = count
	}
	return dist, rows.Err()
}
