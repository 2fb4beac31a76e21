package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/testutil"
)

func newDoc(kbID int64, content, skill string) *model.Document {
	return &model.Document{
		ID:         idgen.NewID(),
		KBID:       kbID,
		Content:    content,
		SourceType: "note",
		SkillLevel: skill,
		Ctime:      time.Now().Unix(),
	}
}

func conceptsFor(doc *model.Document, names ...string) []model.Concept {
	concepts := make([]model.Concept, 0, len(names))
	for i, name := range names {
		concepts = append(concepts, model.Concept{
			DocumentID: doc.ID,
			KBID:       doc.KBID,
			Pos:        i,
			Name:       name,
			Category:   "topic",
			Confidence: 0.9,
		})
	}
	return concepts
}

func TestDocumentCreateAndGet(t *testing.T) {
	db := testutil.OpenTestDB(t)
	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()

	doc := newDoc(1, "# Notes on sharding", "advanced")
	require.NoError(t, docs.Create(ctx, doc, conceptsFor(doc, "sharding", "partitioning")))

	stored, err := docs.GetByID(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Content, stored.Content)
	require.Zero(t, stored.ClusterID)

	concepts, err := docs.ListConcepts(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	require.Equal(t, "sharding", concepts[0].Name)
	require.Equal(t, 0, concepts[0].Pos)

	// Scoped to the knowledge base.
	_, err = docs.GetByID(ctx, 2, doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDocumentDeleteRemovesConcepts(t *testing.T) {
	db := testutil.OpenTestDB(t)
	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()

	doc := newDoc(1, "content", "beginner")
	require.NoError(t, docs.Create(ctx, doc, conceptsFor(doc, "caching")))
	require.NoError(t, docs.Delete(ctx, 1, doc.ID))

	_, err := docs.GetByID(ctx, 1, doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	concepts, err := docs.ListConcepts(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Empty(t, concepts)

	require.ErrorIs(t, docs.Delete(ctx, 1, doc.ID), appErr.ErrNotFound)
}

func TestDocumentAggregates(t *testing.T) {
	db := testutil.OpenTestDB(t)
	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()

	a := newDoc(1, "aaaa", "beginner")
	b := newDoc(1, "bbbbbb", "beginner")
	c := newDoc(1, "cc", "advanced")
	other := newDoc(2, "other kb", "beginner")
	require.NoError(t, docs.Create(ctx, a, conceptsFor(a, "redis", "caching")))
	require.NoError(t, docs.Create(ctx, b, conceptsFor(b, "redis", "eviction")))
	require.NoError(t, docs.Create(ctx, c, conceptsFor(c, "golang")))
	require.NoError(t, docs.Create(ctx, other, conceptsFor(other, "unrelated")))

	count, err := docs.CountByKB(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	length, err := docs.TotalContentLength(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 12, length)

	distinct, err := docs.DistinctConceptCount(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, distinct)

	top, err := docs.TopConcepts(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []repo.ConceptCount{{Name: "redis", Count: 2}, {Name: "caching", Count: 1}}, top)

	bySkill, err := docs.Distribution(ctx, 1, "skill_level")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"beginner": 2, "advanced": 1}, bySkill)

	_, err = docs.Distribution(ctx, 1, "content; DROP TABLE documents")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestDocumentClusterMembership(t *testing.T) {
	db := testutil.OpenTestDB(t)
	docs := repo.NewDocumentRepo(db)
	ctx := context.Background()

	a := newDoc(1, "a", "beginner")
	b := newDoc(1, "b", "advanced")
	require.NoError(t, docs.Create(ctx, a, nil))
	require.NoError(t, docs.Create(ctx, b, nil))

	clusterID := idgen.NewID()
	require.NoError(t, docs.SetCluster(ctx, 1, a.ID, clusterID))
	require.NoError(t, docs.SetCluster(ctx, 1, b.ID, clusterID))
	require.ErrorIs(t, docs.SetCluster(ctx, 1, idgen.NewID(), clusterID), appErr.ErrNotFound)

	counts, err := docs.MemberCounts(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, map[int64]int{clusterID: 2}, counts)

	skills, err := docs.MemberSkills(ctx, 1, clusterID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"beginner", "advanced"}, skills)

	newest, err := docs.NewestMemberTimes(ctx, 1)
	require.NoError(t, err)
	require.Contains(t, newest, clusterID)
}
