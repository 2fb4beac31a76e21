package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/knolab/knolab/internal/index"
	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/repo"
)

// SearchRequest is a ranked query over one knowledge base with optional
// metadata filters. Filters apply before the top-k cut so a filtered search
// still returns up to TopK hits.
type SearchRequest struct {
	Query      string
	TopK       int
	SourceType string
	SkillLevel string
	ClusterID  int64
	DateFrom   int64
	DateTo     int64
}

// SearchHit is one ranked result with its cluster context attached.
type SearchHit struct {
	Document    model.Document `json:"document"`
	Score       float64        `json:"score"`
	ClusterID   int64          `json:"cluster_id"`
	ClusterName string         `json:"cluster_name,omitempty"`
}

// SearchResult groups hits by cluster on top of the flat ranking.
type SearchResult struct {
	Hits      []SearchHit       `json:"hits"`
	ByCluster map[int64][]int64 `json:"by_cluster"` // cluster id -> hit doc ids, rank order
}

type SearchService struct {
	kbs      *repo.KnowledgeBaseRepo
	docs     *repo.DocumentRepo
	clusters *repo.ClusterRepo
	idx      *index.Manager
	loader   *DocumentService
}

func NewSearchService(kbs *repo.KnowledgeBaseRepo, docs *repo.DocumentRepo,
	clusters *repo.ClusterRepo, idx *index.Manager, loader *DocumentService) *SearchService {
	return &SearchService{
		kbs:      kbs,
		docs:     docs,
		clusters: clusters,
		idx:      idx,
		loader:   loader,
	}
}

const defaultTopK = 20

func (s *SearchService) Search(ctx context.Context, owner string, kbID int64, req *SearchRequest) (*SearchResult, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty query: %w", appErr.ErrInvalid)
	}
	if err := s.loader.ensureIndexed(ctx, kbID); err != nil {
		return nil, err
	}

	// Rank everything first; metadata filters run on the full ranking so
	// top-k means "k best matching the filters".
	ranked := s.idx.Search(kbID, req.Query, 0)
	result := &SearchResult{Hits: []SearchHit{}, ByCluster: map[int64][]int64{}}
	if len(ranked) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(ranked))
	for _, hit := range ranked {
		ids = append(ids, hit.DocID)
	}
	stored, err := s.docs.ListByIDs(ctx, kbID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Document, len(stored))
	for _, doc := range stored {
		byID[doc.ID] = doc
	}
	names, err := s.clusterNames(ctx, kbID)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	for _, hit := range ranked {
		doc, ok := byID[hit.DocID]
		if !ok {
			continue // indexed but deleted mid-flight
		}
		if !matchesFilters(doc, req) {
			continue
		}
		result.Hits = append(result.Hits, SearchHit{
			Document:    doc,
			Score:       hit.Score,
			ClusterID:   doc.ClusterID,
			ClusterName: names[doc.ClusterID],
		})
		result.ByCluster[doc.ClusterID] = append(result.ByCluster[doc.ClusterID], doc.ID)
		if len(result.Hits) >= topK {
			break
		}
	}
	return result, nil
}

func (s *SearchService) clusterNames(ctx context.Context, kbID int64) (map[int64]string, error) {
	clusters, err := s.clusters.ListByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(clusters))
	for _, c := range clusters {
		names[c.ID] = c.Name
	}
	return names, nil
}

func matchesFilters(doc model.Document, req *SearchRequest) bool {
	if req.SourceType != "" && doc.SourceType != req.SourceType {
		return false
	}
	if req.SkillLevel != "" && doc.SkillLevel != req.SkillLevel {
		return false
	}
	if req.ClusterID != 0 && doc.ClusterID != req.ClusterID {
		return false
	}
	if req.DateFrom != 0 && doc.Ctime < req.DateFrom {
		return false
	}
	if req.DateTo != 0 && doc.Ctime > req.DateTo {
		return false
	}
	return true
}
