package service

import (
	"context"

	"github.com/knolab/knolab/internal/model"
	"github.com/knolab/knolab/internal/repo"
	"github.com/knolab/knolab/internal/suggest"
)

type SuggestionService struct {
	kbs    *repo.KnowledgeBaseRepo
	engine *suggest.Engine
}

func NewSuggestionService(kbs *repo.KnowledgeBaseRepo, engine *suggest.Engine) *SuggestionService {
	return &SuggestionService{kbs: kbs, engine: engine}
}

func (s *SuggestionService) Generate(ctx context.Context, owner string, kbID int64, max int) (*suggest.GenerateResult, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	return s.engine.Generate(ctx, kbID, max)
}

func (s *SuggestionService) List(ctx context.Context, owner string, kbID int64) ([]model.BuildSuggestion, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	return s.engine.List(ctx, kbID)
}

func (s *SuggestionService) UpdateStatus(ctx context.Context, owner string, kbID, suggestionID int64, status string) (*model.BuildSuggestion, error) {
	if _, err := s.kbs.GetByID(ctx, owner, kbID); err != nil {
		return nil, err
	}
	return s.engine.UpdateStatus(ctx, kbID, suggestionID, status)
}
