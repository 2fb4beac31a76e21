// Package cluster assigns documents to topic clusters by concept-set overlap,
// semantically enhanced through the synonym dictionary.
package cluster

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/model"
	appErr "github.com/knolab/knolab/internal/pkg/errors"
	"github.com/knolab/knolab/internal/pkg/idgen"
	"github.com/knolab/knolab/internal/repo"
)

// UncategorizedName is the reserved cluster for documents with no extracted
// concepts.
const UncategorizedName = "Uncategorized"

const maxPrimaryConcepts = 5

const scoreEpsilon = 1e-9

// Config pins the overlap weighting and acceptance threshold. The defaults
// (0.6 exact / 0.4 semantic, accept at 0.3) are what the determinism tests
// assume; deployments may tune them per corpus.
type Config struct {
	ExactWeight     float64
	SemanticWeight  float64
	AcceptThreshold float64
}

func DefaultConfig() Config {
	return Config{
		ExactWeight:     0.6,
		SemanticWeight:  0.4,
		AcceptThreshold: 0.3,
	}
}

// Relater is the dictionary view the engine needs.
type Relater interface {
	AreRelated(ctx context.Context, a, b string) (bool, float64)
}

type Engine struct {
	cfg      Config
	dict     Relater
	clusters *repo.ClusterRepo
	docs     *repo.DocumentRepo

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func NewEngine(cfg Config, dict Relater, clusters *repo.ClusterRepo, docs *repo.DocumentRepo) *Engine {
	return &Engine{
		cfg:      cfg,
		dict:     dict,
		clusters: clusters,
		docs:     docs,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// kbLock serializes assignments per knowledge base. Assignment reads then
// writes cluster membership; two racing assignments could otherwise create
// duplicate clusters for the same topic.
func (e *Engine) kbLock(kbID int64) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[kbID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[kbID] = lock
	}
	return lock
}

// Assign places a stored document into the best-matching cluster in its
// knowledge base, creating a new cluster when nothing scores above the
// acceptance threshold.
func (e *Engine) Assign(ctx context.Context, kbID int64, doc *model.Document, concepts []model.Concept) (*model.Cluster, error) {
	lock := e.kbLock(kbID)
	lock.Lock()
	defer lock.Unlock()

	names := conceptNames(concepts)
	if len(names) == 0 {
		return e.assignUncategorized(ctx, kbID, doc)
	}

	existing, err := e.clusters.ListByKB(ctx, kbID)
	if err != nil {
		return nil, err
	}
	counts, err := e.docs.MemberCounts(ctx, kbID)
	if err != nil {
		return nil, err
	}

	var best *model.Cluster
	bestScore := 0.0
	for i := range existing {
		candidate := &existing[i]
		if candidate.Name == UncategorizedName {
			continue
		}
		score := e.score(ctx, names, candidate.PrimaryConcepts)
		switch {
		case score > bestScore+scoreEpsilon:
			best, bestScore = candidate, score
		case best != nil && math.Abs(score-bestScore) <= scoreEpsilon:
			// Tie: prefer the larger cluster; clusters iterate in ascending
			// id order, so on a full tie the lowest id wins by staying put.
			if counts[candidate.ID] > counts[best.ID] {
				best = candidate
			}
		}
	}

	if best != nil && bestScore >= e.cfg.AcceptThreshold {
		if err := e.join(ctx, kbID, doc, best); err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Debug("document joined cluster",
			zap.Int64("kb_id", kbID), zap.Int64("doc_id", doc.ID),
			zap.Int64("cluster_id", best.ID), zap.Float64("score", bestScore))
		return best, nil
	}
	return e.createCluster(ctx, kbID, doc, concepts)
}

func (e *Engine) join(ctx context.Context, kbID int64, doc *model.Document, target *model.Cluster) error {
	if err := e.docs.SetCluster(ctx, kbID, doc.ID, target.ID); err != nil {
		return err
	}
	doc.ClusterID = target.ID
	return e.refreshSkill(ctx, kbID, target)
}

// refreshSkill re-derives the cluster skill level as the mode of its member
// skills; ties resolve to the lexicographically smallest value.
func (e *Engine) refreshSkill(ctx context.Context, kbID int64, target *model.Cluster) error {
	skills, err := e.docs.MemberSkills(ctx, kbID, target.ID)
	if err != nil {
		return err
	}
	mode := skillMode(skills)
	if mode == "" || mode == target.SkillLevel {
		return nil
	}
	if err := e.clusters.UpdateSkill(ctx, kbID, target.ID, mode, time.Now().Unix()); err != nil {
		return err
	}
	target.SkillLevel = mode
	return nil
}

func (e *Engine) createCluster(ctx context.Context, kbID int64, doc *model.Document, concepts []model.Concept) (*model.Cluster, error) {
	primary := primaryConcepts(concepts)
	now := time.Now().Unix()
	created := &model.Cluster{
		ID:              idgen.NewID(),
		KBID:            kbID,
		Name:            clusterName(primary),
		PrimaryConcepts: primary,
		SkillLevel:      doc.SkillLevel,
		Ctime:           now,
		Mtime:           now,
	}
	if err := e.clusters.Create(ctx, created); err != nil {
		return nil, err
	}
	if err := e.docs.SetCluster(ctx, kbID, doc.ID, created.ID); err != nil {
		return nil, err
	}
	doc.ClusterID = created.ID
	logutil.GetLogger(ctx).Info("cluster created",
		zap.Int64("kb_id", kbID), zap.Int64("cluster_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (e *Engine) assignUncategorized(ctx context.Context, kbID int64, doc *model.Document) (*model.Cluster, error) {
	target, err := e.clusters.GetByName(ctx, kbID, UncategorizedName)
	if appErr.IsNotFound(err) {
		now := time.Now().Unix()
		target = &model.Cluster{
			ID:              idgen.NewID(),
			KBID:            kbID,
			Name:            UncategorizedName,
			PrimaryConcepts: []string{},
			SkillLevel:      doc.SkillLevel,
			Ctime:           now,
			Mtime:           now,
		}
		if err := e.clusters.Create(ctx, target); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	if err := e.docs.SetCluster(ctx, kbID, doc.ID, target.ID); err != nil {
		return nil, err
	}
	doc.ClusterID = target.ID
	return target, nil
}

// RemoveDocument settles cluster state after a document left a cluster: an
// emptied cluster is deleted, a surviving one only re-derives its skill
// level. Primary-concept sets are never recomputed on removal, which keeps
// cluster identity stable.
func (e *Engine) RemoveDocument(ctx context.Context, kbID, clusterID int64) error {
	if clusterID == 0 {
		return nil
	}
	lock := e.kbLock(kbID)
	lock.Lock()
	defer lock.Unlock()

	counts, err := e.docs.MemberCounts(ctx, kbID)
	if err != nil {
		return err
	}
	if counts[clusterID] == 0 {
		err := e.clusters.Delete(ctx, kbID, clusterID)
		if appErr.IsNotFound(err) {
			return nil
		}
		return err
	}
	target, err := e.clusters.GetByID(ctx, kbID, clusterID)
	if err != nil {
		return err
	}
	return e.refreshSkill(ctx, kbID, target)
}

// score combines the raw Jaccard index of exact name overlap with a
// semantically enhanced overlap where related concepts count at the
// dictionary's confidence.
func (e *Engine) score(ctx context.Context, docNames, clusterNames []string) float64 {
	if len(docNames) == 0 || len(clusterNames) == 0 {
		return 0
	}
	docSet := toSet(docNames)
	clusterSet := toSet(clusterNames)

	exact := 0
	unmatchedDoc := make([]string, 0, len(docSet))
	for name := range docSet {
		if _, ok := clusterSet[name]; ok {
			exact++
		} else {
			unmatchedDoc = append(unmatchedDoc, name)
		}
	}
	sort.Strings(unmatchedDoc)
	unmatchedCluster := make([]string, 0, len(clusterSet))
	for name := range clusterSet {
		if _, ok := docSet[name]; !ok {
			unmatchedCluster = append(unmatchedCluster, name)
		}
	}
	sort.Strings(unmatchedCluster)

	union := len(docSet) + len(clusterSet) - exact
	jaccard := float64(exact) / float64(union)

	semantic := float64(exact)
	for _, docName := range unmatchedDoc {
		bestConfidence := 0.0
		for _, clusterName := range unmatchedCluster {
			if related, confidence := e.dict.AreRelated(ctx, docName, clusterName); related && confidence > bestConfidence {
				bestConfidence = confidence
			}
		}
		semantic += bestConfidence
	}
	enhanced := semantic / float64(union)

	return e.cfg.ExactWeight*jaccard + e.cfg.SemanticWeight*enhanced
}

func conceptNames(concepts []model.Concept) []string {
	seen := make(map[string]struct{}, len(concepts))
	names := make([]string, 0, len(concepts))
	for _, concept := range concepts {
		name := strings.ToLower(strings.TrimSpace(concept.Name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// primaryConcepts picks the founding document's top concepts by extractor
// confidence, name as tie-break, capped at maxPrimaryConcepts.
func primaryConcepts(concepts []model.Concept) []string {
	unique := make(map[string]float64, len(concepts))
	for _, concept := range concepts {
		name := strings.ToLower(strings.TrimSpace(concept.Name))
		if name == "" {
			continue
		}
		if confidence, ok := unique[name]; !ok || concept.Confidence > confidence {
			unique[name] = concept.Confidence
		}
	}
	names := make([]string, 0, len(unique))
	for name := range unique {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if unique[names[i]] != unique[names[j]] {
			return unique[names[i]] > unique[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > maxPrimaryConcepts {
		names = names[:maxPrimaryConcepts]
	}
	return names
}

func clusterName(primary []string) string {
	if len(primary) == 0 {
		return UncategorizedName
	}
	top := primary
	if len(top) > 2 {
		top = top[:2]
	}
	titled := make([]string, 0, len(top))
	for _, name := range top {
		titled = append(titled, titleCase(name))
	}
	return strings.Join(titled, " & ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
