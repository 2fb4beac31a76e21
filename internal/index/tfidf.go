// Package index implements a per-knowledge-base term-frequency relevance
// index with cosine ranking and pairwise document similarity.
package index

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

type Hit struct {
	DocID int64   `json:"doc_id"`
	Score float64 `json:"score"`
}

// Manager shards the corpus by knowledge base id. Shards for different
// knowledge bases never contend; within one shard writers are exclusive and
// readers run in parallel.
type Manager struct {
	mu     sync.Mutex
	shards map[int64]*shard
}

type shard struct {
	mu     sync.RWMutex
	loaded bool
	docs   map[int64]map[string]int // doc id -> term frequencies
	df     map[string]int           // term -> number of docs containing it
}

func NewManager() *Manager {
	return &Manager{shards: make(map[int64]*shard)}
}

func (m *Manager) shard(kbID int64) *shard {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shards[kbID]
	if !ok {
		s = &shard{
			docs: make(map[int64]map[string]int),
			df:   make(map[string]int),
		}
		m.shards[kbID] = s
	}
	return s
}

// EnsureLoaded hydrates a shard from stored documents on first use. The
// loader runs without the shard lock; if two callers race, the second apply
// is a no-op.
func (m *Manager) EnsureLoaded(ctx context.Context, kbID int64, load func(ctx context.Context) (map[int64]string, error)) error {
	s := m.shard(kbID)
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	texts, err := load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	for docID, text := range texts {
		s.addLocked(docID, text)
	}
	s.loaded = true
	return nil
}

func (m *Manager) Add(kbID, docID int64, text string) {
	s := m.shard(kbID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(docID, text)
	s.loaded = true
}

func (s *shard) addLocked(docID int64, text string) {
	if old, ok := s.docs[docID]; ok {
		s.removeTermsLocked(old)
	}
	tf := make(map[string]int)
	for _, token := range Tokenize(text) {
		tf[token]++
	}
	s.docs[docID] = tf
	for term := range tf {
		s.df[term]++
	}
}

func (m *Manager) Remove(kbID, docID int64) {
	s := m.shard(kbID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if tf, ok := s.docs[docID]; ok {
		s.removeTermsLocked(tf)
		delete(s.docs, docID)
	}
}

func (s *shard) removeTermsLocked(tf map[string]int) {
	for term := range tf {
		if s.df[term] <= 1 {
			delete(s.df, term)
		} else {
			s.df[term]--
		}
	}
}

// Drop discards an entire knowledge base shard.
func (m *Manager) Drop(kbID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shards, kbID)
}

// Search ranks documents by cosine similarity between the tf-idf weighted
// query and document vectors. Results are ordered by descending score, then
// ascending doc id for reproducibility. topK <= 0 returns all matches.
func (m *Manager) Search(kbID int64, query string, topK int) []Hit {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return []Hit{}
	}
	queryTF := make(map[string]int)
	for _, token := range tokens {
		queryTF[token]++
	}

	s := m.shard(kbID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.docs)
	if n == 0 {
		return []Hit{}
	}
	queryVec, queryNorm := s.weighLocked(queryTF, n)
	if queryNorm == 0 {
		return []Hit{}
	}

	hits := make([]Hit, 0, n)
	for docID, tf := range s.docs {
		score := s.cosineLocked(queryVec, queryNorm, tf, n)
		if score > 0 {
			hits = append(hits, Hit{DocID: docID, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// Pairwise returns the cosine similarity of two stored documents in [0,1].
func (m *Manager) Pairwise(kbID, docA, docB int64) float64 {
	s := m.shard(kbID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	tfA, okA := s.docs[docA]
	tfB, okB := s.docs[docB]
	if !okA || !okB {
		return 0
	}
	n := len(s.docs)
	vecA, normA := s.weighLocked(tfA, n)
	if normA == 0 {
		return 0
	}
	return s.cosineLocked(vecA, normA, tfB, n)
}

// Size returns the number of indexed documents in one knowledge base.
func (m *Manager) Size(kbID int64) int {
	s := m.shard(kbID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *shard) idfLocked(term string, n int) float64 {
	return math.Log(float64(n+1)/float64(s.df[term]+1)) + 1
}

func (s *shard) weighLocked(tf map[string]int, n int) (map[string]float64, float64) {
	vec := make(map[string]float64, len(tf))
	var sumSquares float64
	for term, count := range tf {
		w := float64(count) * s.idfLocked(term, n)
		vec[term] = w
		sumSquares += w * w
	}
	return vec, math.Sqrt(sumSquares)
}

func (s *shard) cosineLocked(vec map[string]float64, norm float64, tf map[string]int, n int) float64 {
	var dot, sumSquares float64
	for term, count := range tf {
		w := float64(count) * s.idfLocked(term, n)
		sumSquares += w * w
		if qw, ok := vec[term]; ok {
			dot += qw * w
		}
	}
	if dot == 0 || sumSquares == 0 {
		return 0
	}
	return dot / (norm * math.Sqrt(sumSquares))
}

// Tokenize lowercases the text, splits on non-alphanumeric runes and drops
// stopwords and single characters.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 || isStopword(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
