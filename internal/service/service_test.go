package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knolab/knolab/internal/cluster"
	"github.com/knolab/knolab/internal/dedup"
	"github.com/knolab/knolab/internal/index"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/service"
	"github.com/knolab/knolab/internal/suggest"
	"github.com/knolab/knolab/internal/testutil"
)

type noRelater struct{}

func (noRelater) AreRelated(ctx context.Context, a, b string) (bool, float64) {
	return false, 0
}

type fixture struct {
	kbs         *service.KnowledgeBaseService
	docs        *service.DocumentService
	search      *service.SearchService
	analysis    *service.AnalysisService
	suggestions *service.SuggestionService
	docRepo     *repo.DocumentRepo
	clusterRepo *repo.ClusterRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	kbRepo := repo.NewKnowledgeBaseRepo(db)
	docRepo := repo.NewDocumentRepo(db)
	clusterRepo := repo.NewClusterRepo(db)
	suggestionRepo := repo.NewSuggestionRepo(db)

	idx := index.NewManager()
	detector := dedup.NewDetector(idx)
	engine := cluster.NewEngine(cluster.DefaultConfig(), noRelater{}, clusterRepo, docRepo)
	suggestEngine := suggest.NewEngine(docRepo, clusterRepo, suggestionRepo, 3)

	docService := service.NewDocumentService(kbRepo, docRepo, idx, engine, detector)
	return &fixture{
		kbs:         service.NewKnowledgeBaseService(kbRepo, docRepo, clusterRepo, suggestionRepo, idx, detector),
		docs:        docService,
		search:      service.NewSearchService(kbRepo, docRepo, clusterRepo, idx, docService),
		analysis:    service.NewAnalysisService(kbRepo, docRepo, clusterRepo, detector, docService),
		suggestions: service.NewSuggestionService(kbRepo, suggestEngine),
		docRepo:     docRepo,
		clusterRepo: clusterRepo,
	}
}

func ingest(t *testing.T, f *fixture, owner string, kbID int64, content string, concepts ...string) *service.IngestResult {
	t.Helper()
	req := &service.IngestRequest{
		Content:    content,
		SourceType: "note",
		SkillLevel: "intermediate",
	}
	for _, name := range concepts {
		req.Concepts = append(req.Concepts, service.ConceptInput{Name: name, Category: "topic", Confidence: 0.9})
	}
	result, err := f.docs.Ingest(context.Background(), owner, kbID, req)
	require.NoError(t, err)
	return result
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "notes")
	require.NoError(t, err)

	_, err = f.docs.Ingest(ctx, "alice", kb.ID, &service.IngestRequest{Content: "   ", SkillLevel: "beginner"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = f.docs.Ingest(ctx, "alice", kb.ID, &service.IngestRequest{Content: "ok", SkillLevel: "wizard"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	// Unknown or foreign knowledge base reads as missing.
	_, err = f.docs.Ingest(ctx, "bob", kb.ID, &service.IngestRequest{Content: "ok", SkillLevel: "beginner"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestIngestAssignsClusterAndIndexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "notes")
	require.NoError(t, err)

	first := ingest(t, f, "alice", kb.ID, "# Docker\nContainers and images explained", "docker", "containers")
	require.NotNil(t, first.Cluster)
	require.Equal(t, first.Cluster.ID, first.Document.ClusterID)

	second := ingest(t, f, "alice", kb.ID, "More docker content about containers", "docker", "containers", "compose")
	require.Equal(t, first.Cluster.ID, second.Cluster.ID)

	result, err := f.search.Search(ctx, "alice", kb.ID, &service.SearchRequest{Query: "containers"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	require.Equal(t, first.Cluster.ID, result.Hits[0].ClusterID)
	require.Len(t, result.ByCluster[first.Cluster.ID], 2)
}

func TestSearchFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "notes")
	require.NoError(t, err)

	beginner := &service.IngestRequest{
		Content: "goroutine scheduling basics", SourceType: "article", SkillLevel: "beginner",
		Concepts: []service.ConceptInput{{Name: "goroutines", Confidence: 0.9}},
	}
	advanced := &service.IngestRequest{
		Content: "goroutine scheduling internals and preemption", SourceType: "note", SkillLevel: "advanced",
		Concepts: []service.ConceptInput{{Name: "scheduler", Confidence: 0.9}},
	}
	_, err = f.docs.Ingest(ctx, "alice", kb.ID, beginner)
	require.NoError(t, err)
	_, err = f.docs.Ingest(ctx, "alice", kb.ID, advanced)
	require.NoError(t, err)

	result, err := f.search.Search(ctx, "alice", kb.ID, &service.SearchRequest{Query: "goroutine scheduling", SkillLevel: "advanced"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Equal(t, "advanced", result.Hits[0].Document.SkillLevel)

	result, err = f.search.Search(ctx, "alice", kb.ID, &service.SearchRequest{Query: "goroutine scheduling", SourceType: "article"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Equal(t, "article", result.Hits[0].Document.SourceType)

	_, err = f.search.Search(ctx, "alice", kb.ID, &service.SearchRequest{Query: "   "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestKnowledgeBasesAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work, err := f.kbs.Create(ctx, "alice", "work")
	require.NoError(t, err)
	personal, err := f.kbs.Create(ctx, "alice", "personal")
	require.NoError(t, err)

	ingest(t, f, "alice", work.ID, "kafka consumer groups deep dive", "kafka", "consumers")

	// Nothing from work leaks into personal: search, clusters or analytics.
	result, err := f.search.Search(ctx, "alice", personal.ID, &service.SearchRequest{Query: "kafka"})
	require.NoError(t, err)
	require.Empty(t, result.Hits)

	summaries, err := f.analysis.ListClusters(ctx, "alice", personal.ID)
	require.NoError(t, err)
	require.Empty(t, summaries)

	overview, err := f.analysis.Overview(ctx, "alice", personal.ID)
	require.NoError(t, err)
	require.Zero(t, overview.Documents)
}

func TestDeleteDocumentCleansUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "notes")
	require.NoError(t, err)
	result := ingest(t, f, "alice", kb.ID, "etcd raft consensus notes", "etcd", "raft")

	require.NoError(t, f.docs.Delete(ctx, "alice", kb.ID, result.Document.ID))

	search, err := f.search.Search(ctx, "alice", kb.ID, &service.SearchRequest{Query: "raft"})
	require.NoError(t, err)
	require.Empty(t, search.Hits)

	// The emptied cluster is gone too.
	all, err := f.clusterRepo.ListByKB(ctx, kb.ID)
	require.NoError(t, err)
	require.Empty(t, all)

	require.ErrorIs(t, f.docs.Delete(ctx, "alice", kb.ID, result.Document.ID), appErr.ErrNotFound)
}

func TestDeleteKnowledgeBaseCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "scratch")
	require.NoError(t, err)
	ingest(t, f, "alice", kb.ID, "nginx reverse proxy setup", "nginx", "proxy")

	require.NoError(t, f.kbs.Delete(ctx, "alice", kb.ID))

	_, err = f.kbs.Get(ctx, "alice", kb.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	docs, err := f.docRepo.ListByKB(ctx, kb.ID)
	require.NoError(t, err)
	require.Empty(t, docs)
	clusters, err := f.clusterRepo.ListByKB(ctx, kb.ID)
	require.NoError(t, err)
	require.Empty(t, clusters)
}

func TestDuplicateScanEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "notes")
	require.NoError(t, err)

	text := "circuit breaker pattern for resilient microservices"
	a := ingest(t, f, "alice", kb.ID, text, "resilience")
	b := ingest(t, f, "alice", kb.ID, text, "resilience")
	ingest(t, f, "alice", kb.ID, "completely different topic about css grids", "css")

	report, err := f.analysis.DuplicateScan(ctx, "alice", kb.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 3, report.Scanned)
	require.Len(t, report.Groups, 1)
	require.ElementsMatch(t, []int64{a.Document.ID, b.Document.ID}, report.Groups[0])
	require.Equal(t, 1, report.Redundant)
}

func TestSuggestionFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kb, err := f.kbs.Create(ctx, "alice", "notes")
	require.NoError(t, err)

	// Below the maturity gate: an explicit empty result, not an error.
	early, err := f.suggestions.Generate(ctx, "alice", kb.ID, 0)
	require.NoError(t, err)
	require.False(t, early.GateOpen)
	require.NotEmpty(t, early.Unmet)

	filler := strings.Repeat("structured logging with zap in production services ", 10)
	topics := [][]string{
		{"logging", "zap", "observability"},
		{"logging", "zap", "sampling"},
		{"tracing", "spans", "otel"},
		{"tracing", "spans", "baggage"},
		{"metrics", "histograms", "buckets"},
	}
	for i, names := range topics {
		ingest(t, f, "alice", kb.ID, fmt.Sprintf("%s doc %d", filler, i), names...)
	}

	mature, err := f.suggestions.Generate(ctx, "alice", kb.ID, 0)
	require.NoError(t, err)
	require.True(t, mature.GateOpen)
	require.NotEmpty(t, mature.Suggestions)

	history, err := f.suggestions.List(ctx, "alice", kb.ID)
	require.NoError(t, err)
	require.Len(t, history, len(mature.Suggestions))

	// Ownership checks apply to every entry point.
	_, err = f.suggestions.Generate(ctx, "bob", kb.ID, 0)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
