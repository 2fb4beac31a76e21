package service

import (
	"context"

	"github.com/knolab/knolab/internal/dedup"
	"github.com/knolab/knolab/internal/model"
	"github.com/knolab/knolab/internal/repo"
)

// DuplicateReport is the outcome of one duplicate scan.
type DuplicateReport struct {
	Groups    [][]int64 `json:"duplicate_groups"`
	Redundant int       `json:"total_duplicates_found"` // documents that could be removed
	Scanned   int       `json:"scanned"`
	Threshold float64   `json:"threshold"`
}

// ClusterSummary is one cluster with its live member count.
type ClusterSummary struct {
	Cluster model.Cluster `json:"cluster"`
	Members int           `json:"members"`
}

// Analytics is the per-knowledge-base overview.
type Analytics struct {
	Documents          int                 `json:"documents"`
	Clusters           int                 `json:"clusters"`
	DistinctConcepts   int                 `json:"distinct_concepts"`
	TotalContentLength int                 `json:"total_content_length"`
	BySkillLevel       map[string]int      `json:"by_skill_level"`
	BySourceType       map[string]int      `json:"by_source_type"`
	TopConcepts        []repo.ConceptCount `json:"top_concepts"`
	ClusterSizes       []ClusterSummary    `json:"cluster_sizes"`
}

const topConceptsLimit = 10

type AnalysisService struct {
	kbs      *repo.KnowledgeBaseRepo
	docs     *repo.DocumentRepo
	clusters *repo.ClusterRepo
	detector *dedup.Detector
	loader   *DocumentService
}

func NewAnalysisService(kbs *repo.KnowledgeBaseRepo, docs *repo.DocumentRepo,
	clusters *repo.ClusterRepo, detector *dedup.Detector, loader *DocumentService) *AnalysisService {
	return &AnalysisService{
		kbs:      kbs,
		docs:     docs,
		clusters: clusters,
		detector: detector,
		loader:   loader,
	}
}

// DuplicateScan runs a pairwise similarity scan over every document in the
// knowledge base.
func (s *AnalysisService) DuplicateScan(ctx context.Context, owner string, kbID int64, threshold float64) (*DuplicateReport, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	return s.ScanKB(ctx, kbID, threshold)
}

// ScanKB is the owner-agnostic scan used by the background job.
func (s *AnalysisService) ScanKB(ctx context.Context, kbID int64, threshold float64) (*DuplicateReport, error) {
	if err := s.loader.ensureIndexed(ctx, kbID); err != nil {
		return nil, err
	}
	stored, err := s.docs.ListByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(stored))
	for _, doc := range stored {
		ids = append(ids, doc.ID)
	}
	if threshold <= 0 {
		threshold = dedup.DefaultThreshold
	}
	groups := s.detector.FindDuplicateGroups(ctx, kbID, ids, threshold)
	redundant := 0
	for _, group := range groups {
		redundant += len(group) - 1
	}
	return &DuplicateReport{
		Groups:    groups,
		Redundant: redundant,
		Scanned:   len(ids),
		Threshold: threshold,
	}, nil
}

// ListClusters returns a knowledge base's clusters with member counts.
func (s *AnalysisService) ListClusters(ctx context.Context, owner string, kbID int64) ([]ClusterSummary, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	clusters, err := s.clusters.ListByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	counts, err := s.docs.MemberCounts(ctx, kbID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		summaries = append(summaries, ClusterSummary{Cluster: c, Members: counts[c.ID]})
	}
	return summaries, nil
}

// Overview aggregates the analytics dashboard numbers for one knowledge base.
func (s *AnalysisService) Overview(ctx context.Context, owner string, kbID int64) (*Analytics, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	docCount, err := s.docs.CountByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	clusterCount, err := s.clusters.CountByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	conceptCount, err := s.docs.DistinctConceptCount(ctx, kbID)
	if err != nil {
		return nil, err
	}
	contentLength, err := s.docs.TotalContentLength(ctx, kbID)
	if err != nil {
		return nil, err
	}
	bySkill, err := s.docs.Distribution(ctx, kbID, "skill_level")
	if err != nil {
		return nil, err
	}
	bySource, err := s.docs.Distribution(ctx, kbID, "source_type")
	if err != nil {
		return nil, err
	}
	topConcepts, err := s.docs.TopConcepts(ctx, kbID, topConceptsLimit)
	if err != nil {
		return nil, err
	}
	clusterSizes, err := s.ListClusters(ctx, owner, kbID)
	if err != nil {
		return nil, err
	}
	return &Analytics{
		Documents:          docCount,
		Clusters:           clusterCount,
		DistinctConcepts:   conceptCount,
		TotalContentLength: contentLength,
		BySkillLevel:       bySkill,
		BySourceType:       bySource,
		TopConcepts:        topConcepts,
		ClusterSizes:       clusterSizes,
	}, nil
}
