// Package service holds the business layer between HTTP handlers and the
// repositories. Every operation is scoped to the calling user's own
// knowledge bases.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/dedup"
	"github.com/knolab/knolab/internal/index"
	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/repo"
)

const maxKBNameLength = 128

type KnowledgeBaseService struct {
	kbs         *repo.KnowledgeBaseRepo
	docs        *repo.DocumentRepo
	clusters    *repo.ClusterRepo
	suggestions *repo.SuggestionRepo
	idx         *index.Manager
	detector    *dedup.Detector
}

func NewKnowledgeBaseService(kbs *repo.KnowledgeBaseRepo, docs *repo.DocumentRepo,
	clusters *repo.ClusterRepo, suggestions *repo.SuggestionRepo,
	idx *index.Manager, detector *dedup.Detector) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		kbs:         kbs,
		docs:        docs,
		clusters:    clusters,
		suggestions: suggestions,
		idx:         idx,
		detector:    detector,
	}
}

func (s *KnowledgeBaseService) Create(ctx context.Context, owner, name string) (*model.KnowledgeBase, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxKBNameLength {
		return nil, fmt.Errorf("knowledge base name: %w", appErr.ErrInvalid)
	}
	existing, err := s.kbs.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	kb := &model.KnowledgeBase{
		ID:    idgen.NewID(),
		Owner: owner,
		Name:  name,
		Ctime: now,
		Mtime: now,
	}
	// The first knowledge base becomes the owner's default.
	if len(existing) == 0 {
		kb.IsDefault = 1
	}
	if err := s.kbs.Create(ctx, kb); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("knowledge base created",
		zap.String("owner", owner), zap.Int64("kb_id", kb.ID), zap.String("name", name))
	return kb, nil
}

func (s *KnowledgeBaseService) Get(ctx context.Context, owner string, kbID int64) (*model.KnowledgeBase, error) {
	return s.kbs.GetByID(ctx, owner, kbID)
}

func (s *KnowledgeBaseService) List(ctx context.Context, owner string) ([]model.KnowledgeBase, error) {
	return s.kbs.ListByOwner(ctx, owner)
}

func (s *KnowledgeBaseService) SetDefault(ctx context.Context, owner string, kbID int64) error {
	return s.kbs.SetDefault(ctx, owner, kbID, time.Now().Unix())
}

// Delete removes a knowledge base with everything derived from it: stored
// documents and concepts, clusters, suggestion history, the in-memory index
// shard and the duplicate-scan cache.
func (s *KnowledgeBaseService) Delete(ctx context.Context, owner string, kbID int64) error {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return err
	}
	if err := s.suggestions.DeleteByKB(ctx, kbID); err != nil {
		return err
	}
	if err := s.clusters.DeleteByKB(ctx, kbID); err != nil {
		return err
	}
	if err := s.docs.DeleteByKB(ctx, kbID); err != nil {
		return err
	}
	if err := s.kbs.Delete(ctx, owner, kbID); err != nil {
		return err
	}
	s.idx.Drop(kbID)
	s.detector.Drop(kbID)
	logutil.GetLogger(ctx).Info("knowledge base deleted",
		zap.String("owner", owner), zap.Int64("kb_id", kbID))
	return nil
}
