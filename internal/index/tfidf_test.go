package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedCorpus(t *testing.T, m *Manager, kbID int64) {
	t.Helper()
	m.Add(kbID, 1, "Docker packages applications into containers for repeatable deployment")
	m.Add(kbID, 2, "Kubernetes schedules containers across a cluster of worker nodes")
	m.Add(kbID, 3, "PostgreSQL query planning and index tuning for slow queries")
}

func TestSearchRanksByRelevance(t *testing.T) {
	m := NewManager()
	seedCorpus(t, m, 1)

	hits := m.Search(1, "containers", 0)
	require.Len(t, hits, 2)
	require.NotContains(t, []int64{hits[0].DocID, hits[1].DocID}, int64(3))
	for _, hit := range hits {
		require.Greater(t, hit.Score, 0.0)
	}

	hits = m.Search(1, "postgresql index tuning", 1)
	require.Len(t, hits, 1)
	require.Equal(t, int64(3), hits[0].DocID)
}

func TestSearchEmptyAndStopwordQueries(t *testing.T) {
	m := NewManager()
	seedCorpus(t, m, 1)

	require.Empty(t, m.Search(1, "", 0))
	require.Empty(t, m.Search(1, "the and of", 0))
	require.Empty(t, m.Search(1, "zeppelin", 0))
	require.Empty(t, m.Search(99, "containers", 0))
}

func TestSearchOrderIsDeterministic(t *testing.T) {
	m := NewManager()
	m.Add(1, 20, "redis caching strategies")
	m.Add(1, 10, "redis caching strategies")

	hits := m.Search(1, "redis caching", 0)
	require.Len(t, hits, 2)
	require.Equal(t, int64(10), hits[0].DocID)
	require.Equal(t, int64(20), hits[1].DocID)
}

func TestPairwiseSimilarity(t *testing.T) {
	m := NewManager()
	m.Add(1, 1, "rate limiting with token buckets")
	m.Add(1, 2, "rate limiting with token buckets")
	m.Add(1, 3, "goroutine leak debugging with pprof")

	require.InDelta(t, 1.0, m.Pairwise(1, 1, 2), 1e-9)
	require.Less(t, m.Pairwise(1, 1, 3), 0.5)
	require.Zero(t, m.Pairwise(1, 1, 99))
}

func TestKnowledgeBasesAreIsolated(t *testing.T) {
	m := NewManager()
	m.Add(1, 1, "grpc streaming internals")
	m.Add(2, 2, "grpc streaming internals")

	hits := m.Search(1, "grpc", 0)
	require.Len(t, hits, 1)
	require.Equal(t, int64(1), hits[0].DocID)

	m.Drop(2)
	require.Zero(t, m.Size(2))
	require.Equal(t, 1, m.Size(1))
}

func TestRemoveAndReAdd(t *testing.T) {
	m := NewManager()
	seedCorpus(t, m, 1)

	m.Remove(1, 2)
	hits := m.Search(1, "containers", 0)
	require.Len(t, hits, 1)
	require.Equal(t, int64(1), hits[0].DocID)

	// Re-adding a doc id replaces its old terms instead of double counting.
	m.Add(1, 1, "kafka consumer group rebalancing")
	require.Empty(t, m.Search(1, "containers", 0))
	require.Len(t, m.Search(1, "kafka", 0), 1)
	require.Equal(t, 2, m.Size(1))
}

func TestEnsureLoadedHydratesOnce(t *testing.T) {
	m := NewManager()
	loads := 0
	loader := func(ctx context.Context) (map[int64]string, error) {
		loads++
		return map[int64]string{
			1: "circuit breakers for resilient services",
			2: "retry budgets and exponential backoff",
		}, nil
	}
	ctx := context.Background()
	require.NoError(t, m.EnsureLoaded(ctx, 1, loader))
	require.NoError(t, m.EnsureLoaded(ctx, 1, loader))
	require.Equal(t, 1, loads)
	require.Equal(t, 2, m.Size(1))

	failing := func(ctx context.Context) (map[int64]string, error) {
		return nil, errors.New("db gone")
	}
	require.Error(t, m.EnsureLoaded(ctx, 2, failing))
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The quick-start guide: Docker, v2!")
	require.Equal(t, []string{"quick", "start", "guide", "docker", "v2"}, tokens)
	require.Empty(t, Tokenize("a I ."))
}
