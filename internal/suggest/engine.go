package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/repo"
)

// recencyWindow is how long a cluster counts as active for scoring.
const recencyWindow = 7 * 24 * time.Hour

type Engine struct {
	docs        *repo.DocumentRepo
	clusters    *repo.ClusterRepo
	suggestions *repo.SuggestionRepo
	defaultMax  int
}

func NewEngine(docs *repo.DocumentRepo, clusters *repo.ClusterRepo, suggestions *repo.SuggestionRepo, defaultMax int) *Engine {
	if defaultMax <= 0 {
		defaultMax = 3
	}
	return &Engine{
		docs:        docs,
		clusters:    clusters,
		suggestions: suggestions,
		defaultMax:  defaultMax,
	}
}

type GenerateResult struct {
	Suggestions []model.BuildSuggestion `json:"suggestions"`
	GateOpen    bool                    `json:"gate_open"`
	Stats       Stats                   `json:"stats"`
	Unmet       []string                `json:"unmet,omitempty"`
}

// CorpusStats gathers the gate inputs for one knowledge base.
func (e *Engine) CorpusStats(ctx context.Context, kbID int64) (Stats, error) {
	docCount, err := e.docs.CountByKB(ctx, kbID)
	if err != nil {
		return Stats{}, err
	}
	conceptCount, err := e.docs.DistinctConceptCount(ctx, kbID)
	if err != nil {
		return Stats{}, err
	}
	contentLength, err := e.docs.TotalContentLength(ctx, kbID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Documents:        docCount,
		DistinctConcepts: conceptCount,
		ContentLength:    contentLength,
	}, nil
}

// Generate evaluates the maturity gate and, if open, proposes up to max new
// suggestions from the strongest clusters. A closed gate is a normal
// outcome, not an error: the result carries the unmet thresholds so the
// caller can explain the silence.
func (e *Engine) Generate(ctx context.Context, kbID int64, max int) (*GenerateResult, error) {
	stats, err := e.CorpusStats(ctx, kbID)
	if err != nil {
		return nil, err
	}
	result := &GenerateResult{
		Suggestions: []model.BuildSuggestion{},
		GateOpen:    GateOpen(stats),
		Stats:       stats,
	}
	if !result.GateOpen {
		result.Unmet = Unmet(stats)
		logutil.GetLogger(ctx).Info("suggestion gate closed",
			zap.Int64("kb_id", kbID), zap.Strings("unmet", result.Unmet))
		return result, nil
	}

	candidates, err := e.rankCandidates(ctx, kbID)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = e.defaultMax
	}
	if len(candidates) > max {
		candidates = candidates[:max]
	}

	now := time.Now().Unix()
	for _, candidate := range candidates {
		suggestion := model.BuildSuggestion{
			ID:          idgen.NewID(),
			KBID:        kbID,
			Title:       suggestionTitle(candidate.cluster),
			Description: suggestionDescription(candidate.cluster, candidate.members),
			ClusterIDs:  []int64{candidate.cluster.ID},
			Status:      model.SuggestionStatusProposed,
			Ctime:       now,
		}
		if err := e.suggestions.Create(ctx, &suggestion); err != nil {
			return nil, err
		}
		result.Suggestions = append(result.Suggestions, suggestion)
	}
	logutil.GetLogger(ctx).Info("suggestions generated",
		zap.Int64("kb_id", kbID), zap.Int("count", len(result.Suggestions)))
	return result, nil
}

type candidate struct {
	cluster model.Cluster
	members int
	score   float64
}

// rankCandidates scores clusters by size, concept breadth and recent
// activity. Ordering is fully deterministic: score descending, cluster id
// ascending on ties.
func (e *Engine) rankCandidates(ctx context.Context, kbID int64) ([]candidate, error) {
	clusters, err := e.clusters.ListByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	counts, err := e.docs.MemberCounts(ctx, kbID)
	if err != nil {
		return nil, err
	}
	newest, err := e.docs.NewestMemberTimes(ctx, kbID)
	if err != nil {
		return nil, err
	}

	activeSince := time.Now().Add(-recencyWindow).Unix()
	candidates := make([]candidate, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster.PrimaryConcepts) == 0 {
			continue // reserved catch-all cluster
		}
		members := counts[cluster.ID]
		if members < MinClusterMembers {
			continue
		}
		score := float64(members) + 0.5*float64(len(cluster.PrimaryConcepts))
		if newest[cluster.ID] >= activeSince {
			score += 1.0
		}
		candidates = append(candidates, candidate{cluster: cluster, members: members, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].cluster.ID < candidates[j].cluster.ID
	})
	return candidates, nil
}

func suggestionTitle(cluster model.Cluster) string {
	return fmt.Sprintf("Build a %s project", cluster.Name)
}

func suggestionDescription(cluster model.Cluster, members int) string {
	return fmt.Sprintf(
		"You have %d notes covering %s at %s level. Consolidate them into a hands-on project to make the knowledge stick.",
		members, strings.Join(cluster.PrimaryConcepts, ", "), cluster.SkillLevel)
}

// List returns a knowledge base's suggestion history, newest first.
func (e *Engine) List(ctx context.Context, kbID int64) ([]model.BuildSuggestion, error) {
	return e.suggestions.ListByKB(ctx, kbID)
}

// UpdateStatus moves a proposed suggestion to a terminal state. Terminal
// states never transition again.
func (e *Engine) UpdateStatus(ctx context.Context, kbID, suggestionID int64, status string) (*model.BuildSuggestion, error) {
	if status != model.SuggestionStatusCompleted && status != model.SuggestionStatusDismissed {
		return nil, fmt.Errorf("status %q: %w", status, appErr.ErrInvalid)
	}
	if err := e.suggestions.TransitionStatus(ctx, kbID, suggestionID, status); err != nil {
		return nil, err
	}
	return e.suggestions.GetByID(ctx, kbID, suggestionID)
}
