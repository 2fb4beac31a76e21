package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/cluster"
	"github.com/knolab/knolab/internal/dedup"
	"github.com/knolab/knolab/internal/index"
	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/pkg/mdtext"
	"github.com/knolab/knolab/internal/repo"
)

const maxDocumentLength = 1 << 20 // 1 MiB of markdown is plenty for a note

var validSkillLevels = map[string]struct{}{
	"beginner":     {},
	"intermediate": {},
	"advanced":     {},
}

// ConceptInput is one extractor finding attached to an incoming document.
type ConceptInput struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// IngestRequest carries everything needed to store and place one document.
type IngestRequest struct {
	Content    string         `json:"content"`
	SourceType string         `json:"source_type"`
	SkillLevel string         `json:"skill_level"`
	Concepts   []ConceptInput `json:"concepts"`
}

// IngestResult reports where the new document landed.
type IngestResult struct {
	Document *model.Document `json:"document"`
	Cluster  *model.Cluster  `json:"cluster"`
}

type DocumentService struct {
	kbs      *repo.KnowledgeBaseRepo
	docs     *repo.DocumentRepo
	idx      *index.Manager
	engine   *cluster.Engine
	detector *dedup.Detector
}

func NewDocumentService(kbs *repo.KnowledgeBaseRepo, docs *repo.DocumentRepo,
	idx *index.Manager, engine *cluster.Engine, detector *dedup.Detector) *DocumentService {
	return &DocumentService{
		kbs:      kbs,
		docs:     docs,
		idx:      idx,
		engine:   engine,
		detector: detector,
	}
}

// Ingest stores a document, indexes its plain text and assigns it to a
// cluster. Concepts are normalized here once so every downstream consumer
// sees the same names.
func (s *DocumentService) Ingest(ctx context.Context, owner string, kbID int64, req *IngestRequest) (*IngestResult, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	content := req.Content
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("document content empty: %w", appErr.ErrInvalid)
	}
	if len(content) > maxDocumentLength {
		return nil, fmt.Errorf("document content too large: %w", appErr.ErrInvalid)
	}
	skill := strings.ToLower(strings.TrimSpace(req.SkillLevel))
	if _, ok := validSkillLevels[skill]; !ok {
		return nil, fmt.Errorf("skill level %q: %w", req.SkillLevel, appErr.ErrInvalid)
	}

	doc := &model.Document{
		ID:         idgen.NewID(),
		KBID:       kbID,
		Content:    content,
		SourceType: strings.ToLower(strings.TrimSpace(req.SourceType)),
		SkillLevel: skill,
		Ctime:      time.Now().Unix(),
	}
	concepts := normalizeConcepts(doc, req.Concepts)
	if err := s.docs.Create(ctx, doc, concepts); err != nil {
		return nil, err
	}

	if err := s.ensureIndexed(ctx, kbID); err != nil {
		return nil, err
	}
	s.idx.Add(kbID, doc.ID, mdtext.Strip(content))
	s.detector.Invalidate(kbID)

	assigned, err := s.engine.Assign(ctx, kbID, doc, concepts)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document ingested",
		zap.Int64("kb_id", kbID), zap.Int64("doc_id", doc.ID),
		zap.Int64("cluster_id", assigned.ID), zap.Int("concepts", len(concepts)))
	return &IngestResult{Document: doc, Cluster: assigned}, nil
}

func (s *DocumentService) Get(ctx context.Context, owner string, kbID, docID int64) (*model.Document, []model.Concept, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, nil, err
	}
	doc, err := s.docs.GetByID(ctx, kbID, docID)
	if err != nil {
		return nil, nil, err
	}
	concepts, err := s.docs.ListConcepts(ctx, kbID, docID)
	if err != nil {
		return nil, nil, err
	}
	return doc, concepts, nil
}

func (s *DocumentService) List(ctx context.Context, owner string, kbID int64) ([]model.Document, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	return s.docs.ListByKB(ctx, kbID)
}

// Delete removes a document and settles the cluster it belonged to.
func (s *DocumentService) Delete(ctx context.Context, owner string, kbID, docID int64) error {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return err
	}
	doc, err := s.docs.GetByID(ctx, kbID, docID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, kbID, docID); err != nil {
		return err
	}
	s.idx.Remove(kbID, docID)
	s.detector.Invalidate(kbID)
	if err := s.engine.RemoveDocument(ctx, kbID, doc.ClusterID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document deleted",
		zap.Int64("kb_id", kbID), zap.Int64("doc_id", docID))
	return nil
}

// ensureIndexed lazily hydrates the knowledge base's index shard from stored
// documents, so search works after a restart without a warmup pass.
func (s *DocumentService) ensureIndexed(ctx context.Context, kbID int64) error {
	return s.idx.EnsureLoaded(ctx, kbID, func(ctx context.Context) (map[int64]string, error) {
		stored, err := s.docs.ListByKB(ctx, kbID)
		if err != nil {
			return nil, err
		}
		texts := make(map[int64]string, len(stored))
		for _, doc := range stored {
			texts[doc.ID] = mdtext.Strip(doc.Content)
		}
		return texts, nil
	})
}

func normalizeConcepts(doc *model.Document, inputs []ConceptInput) []model.Concept {
	seen := make(map[string]struct{}, len(inputs))
	concepts := make([]model.Concept, 0, len(inputs))
	for _, input := range inputs {
		name := strings.ToLower(strings.TrimSpace(input.Name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		confidence := input.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		concepts = append(concepts, model.Concept{
			DocumentID: doc.ID,
			KBID:       doc.KBID,
			Pos:        len(concepts),
			Name:       name,
			Category:   strings.ToLower(strings.TrimSpace(input.Category)),
			Confidence: confidence,
		})
	}
	return concepts
}
