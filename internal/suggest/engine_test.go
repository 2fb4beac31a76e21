package suggest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/testutil"
)

func newTestSuggestEngine(t *testing.T) (*Engine, *repo.DocumentRepo, *repo.ClusterRepo) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	docs := repo.NewDocumentRepo(db)
	clusters := repo.NewClusterRepo(db)
	suggestions := repo.NewSuggestionRepo(db)
	return NewEngine(docs, clusters, suggestions, 3), docs, clusters
}

// seedMatureKB stores enough material to clear the maturity gate: documents
// across two clusters plus one unclustered singleton.
func seedMatureKB(t *testing.T, docs *repo.DocumentRepo, clusters *repo.ClusterRepo, kbID int64) (big, small int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Unix()

	bigCluster := &model.Cluster{
		ID: idgen.NewID(), KBID: kbID, Name: "Docker & Containers",
		PrimaryConcepts: []string{"docker", "containers", "images"},
		SkillLevel:      "intermediate", Ctime: now, Mtime: now,
	}
	smallCluster := &model.Cluster{
		ID: idgen.NewID(), KBID: kbID, Name: "Postgres",
		PrimaryConcepts: []string{"postgresql"},
		SkillLevel:      "beginner", Ctime: now, Mtime: now,
	}
	require.NoError(t, clusters.Create(ctx, bigCluster))
	require.NoError(t, clusters.Create(ctx, smallCluster))

	content := strings.Repeat("container orchestration notes ", 20) // ~600 chars
	conceptNames := [][]string{
		{"docker", "containers", "compose"},
		{"docker", "images", "registry"},
		{"containers", "networking", "volumes"},
		{"postgresql", "indexes", "btree"},
		{"postgresql", "vacuum", "autovacuum"},
	}
	clusterFor := []int64{bigCluster.ID, bigCluster.ID, bigCluster.ID, smallCluster.ID, smallCluster.ID}
	for i, names := range conceptNames {
		doc := &model.Document{
			ID: idgen.NewID(), KBID: kbID, Content: content,
			SourceType: "note", SkillLevel: "intermediate", Ctime: now,
		}
		concepts := make([]model.Concept, 0, len(names))
		for pos, name := range names {
			concepts = append(concepts, model.Concept{
				DocumentID: doc.ID, KBID: kbID, Pos: pos,
				Name: name, Category: "topic", Confidence: 0.9,
			})
		}
		require.NoError(t, docs.Create(ctx, doc, concepts))
		require.NoError(t, docs.SetCluster(ctx, kbID, doc.ID, clusterFor[i]))
	}
	return bigCluster.ID, smallCluster.ID
}

func TestGenerateClosedGateIsNotAnError(t *testing.T) {
	engine, _, _ := newTestSuggestEngine(t)

	result, err := engine.Generate(context.Background(), 1, 0)
	require.NoError(t, err)
	require.False(t, result.GateOpen)
	require.Empty(t, result.Suggestions)
	require.Equal(t, []string{"documents", "distinct_concepts", "content_length"}, result.Unmet)
}

func TestGenerateRanksClustersDeterministically(t *testing.T) {
	engine, docs, clusters := newTestSuggestEngine(t)
	big, small := seedMatureKB(t, docs, clusters, 1)

	result, err := engine.Generate(context.Background(), 1, 0)
	require.NoError(t, err)
	require.True(t, result.GateOpen)
	require.Len(t, result.Suggestions, 2)
	require.Equal(t, []int64{big}, result.Suggestions[0].ClusterIDs)
	require.Equal(t, []int64{small}, result.Suggestions[1].ClusterIDs)

	first := result.Suggestions[0]
	require.Equal(t, model.SuggestionStatusProposed, first.Status)
	require.Contains(t, first.Title, "Docker & Containers")
	require.Contains(t, first.Description, "docker, containers, images")
}

func TestGenerateRespectsMax(t *testing.T) {
	engine, docs, clusters := newTestSuggestEngine(t)
	big, _ := seedMatureKB(t, docs, clusters, 1)

	result, err := engine.Generate(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	require.Equal(t, []int64{big}, result.Suggestions[0].ClusterIDs)
}

func TestGenerateKeepsHistory(t *testing.T) {
	engine, docs, clusters := newTestSuggestEngine(t)
	seedMatureKB(t, docs, clusters, 1)
	ctx := context.Background()

	first, err := engine.Generate(ctx, 1, 0)
	require.NoError(t, err)
	_, err = engine.UpdateStatus(ctx, 1, first.Suggestions[0].ID, model.SuggestionStatusCompleted)
	require.NoError(t, err)

	// Regeneration appends; completed work is never overwritten.
	_, err = engine.Generate(ctx, 1, 0)
	require.NoError(t, err)
	history, err := engine.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 4)

	completed := 0
	for _, s := range history {
		if s.Status == model.SuggestionStatusCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)
}

func TestUpdateStatusTransitions(t *testing.T) {
	engine, docs, clusters := newTestSuggestEngine(t)
	seedMatureKB(t, docs, clusters, 1)
	ctx := context.Background()

	result, err := engine.Generate(ctx, 1, 0)
	require.NoError(t, err)
	target := result.Suggestions[0].ID

	updated, err := engine.UpdateStatus(ctx, 1, target, model.SuggestionStatusDismissed)
	require.NoError(t, err)
	require.Equal(t, model.SuggestionStatusDismissed, updated.Status)

	// Terminal states stay terminal.
	_, err = engine.UpdateStatus(ctx, 1, target, model.SuggestionStatusCompleted)
	require.ErrorIs(t, err, appErr.ErrConflict)

	// Only the two terminal states are accepted.
	_, err = engine.UpdateStatus(ctx, 1, target, "proposed")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = engine.UpdateStatus(ctx, 1, target, "bogus")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	// Unknown suggestion ids surface as not found.
	_, err = engine.UpdateStatus(ctx, 1, idgen.NewID(), model.SuggestionStatusCompleted)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
