package semdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/oracle"
	"github.com/knolab/knolab/internal/snapstore"
)

const (
	SourceSeed    = "seed"
	SourceLearned = "learned"
)

// Synonym is one learned or seeded relation from a canonical name to another
// surface name.
type Synonym struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	LearnedAt  int64   `json:"learned_at,omitempty"`
}

type snapshot struct {
	UpdatedAt int64                `json:"updated_at"`
	Entries   map[string][]Synonym `json:"entries"`
}

// Dictionary is the process-wide synonym store. Concept synonymy is domain
// knowledge rather than tenant data, so one instance is shared across all
// knowledge bases. Cached lookups never touch the oracle; a learn consults
// the oracle at most once per pair, with no lock held during the call.
type Dictionary struct {
	relater oracle.IRelater
	store   snapstore.Store
	key     string
	timeout time.Duration

	mu      sync.RWMutex
	entries map[string]map[string]Synonym

	dirty  atomic.Bool
	saveMu sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]*inflightLearn
}

type inflightLearn struct {
	done       chan struct{}
	related    bool
	confidence float64
	failed     bool
}

func New(relater oracle.IRelater, store snapstore.Store, key string, timeout time.Duration) *Dictionary {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dictionary{
		relater:  relater,
		store:    store,
		key:      key,
		timeout:  timeout,
		entries:  make(map[string]map[string]Synonym),
		inflight: make(map[string]*inflightLearn),
	}
	d.applySeeds()
	return d
}

// Load merges a persisted snapshot into the seeded table. It must run before
// the dictionary serves lookups; seed entries always win over stale snapshot
// rows for the same pair.
func (d *Dictionary) Load(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	data, found, err := d.store.Load(ctx, d.key)
	if err != nil {
		return fmt.Errorf("load dictionary snapshot: %w", err)
	}
	if !found {
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode dictionary snapshot: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	loaded := 0
	for canonical, synonyms := range snap.Entries {
		canonical = normalize(canonical)
		if canonical == "" {
			continue
		}
		for _, syn := range synonyms {
			name := normalize(syn.Name)
			if name == "" || name == canonical {
				continue
			}
			if existing, ok := d.entries[canonical][name]; ok && existing.Source == SourceSeed {
				continue
			}
			syn.Name = name
			d.putLocked(canonical, syn)
			loaded++
		}
	}
	logutil.GetLogger(ctx).Info("semantic dictionary snapshot loaded", zap.Int("synonyms", loaded))
	return nil
}

// AreRelated reports whether two concept names are synonymous and at what
// confidence. Oracle failures degrade to (false, 0) and are not cached, so
// the question can be retried later.
func (d *Dictionary) AreRelated(ctx context.Context, a, b string) (bool, float64) {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return false, 0
	}
	if a == b {
		return true, 1.0
	}
	if related, confidence, ok := d.lookup(a, b); ok {
		return related, confidence
	}
	return d.learn(ctx, a, b)
}

func (d *Dictionary) lookup(a, b string) (bool, float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if syn, ok := d.entries[a][b]; ok {
		return true, syn.Confidence, true
	}
	if syn, ok := d.entries[b][a]; ok {
		return true, syn.Confidence, true
	}
	return false, 0, false
}

func (d *Dictionary) learn(ctx context.Context, a, b string) (bool, float64) {
	key := pairKey(a, b)

	d.inflightMu.Lock()
	if pending, ok := d.inflight[key]; ok {
		d.inflightMu.Unlock()
		select {
		case <-pending.done:
			if pending.failed {
				return false, 0
			}
			return pending.related, pending.confidence
		case <-ctx.Done():
			return false, 0
		}
	}
	call := &inflightLearn{done: make(chan struct{})}
	d.inflight[key] = call
	d.inflightMu.Unlock()

	defer func() {
		d.inflightMu.Lock()
		delete(d.inflight, key)
		d.inflightMu.Unlock()
		close(call.done)
	}()

	// Another goroutine may have finished learning this pair while we raced
	// for the inflight slot.
	if related, confidence, ok := d.lookup(a, b); ok {
		call.related, call.confidence = related, confidence
		return related, confidence
	}

	if d.relater == nil {
		call.failed = true
		return false, 0
	}
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	rel, err := d.relater.Relate(callCtx, a, b)
	if err != nil {
		// Fail closed: a wrong permanent merge is worse than a retried question.
		logutil.GetLogger(ctx).Warn("oracle lookup failed, treating pair as unrelated",
			zap.String("a", a), zap.String("b", b), zap.Error(err))
		call.failed = true
		return false, 0
	}

	call.related, call.confidence = rel.Related, rel.Confidence
	if rel.Related {
		now := time.Now().Unix()
		d.mu.Lock()
		d.putLocked(a, Synonym{Name: b, Confidence: rel.Confidence, Source: SourceLearned, LearnedAt: now})
		d.putLocked(b, Synonym{Name: a, Confidence: rel.Confidence, Source: SourceLearned, LearnedAt: now})
		d.mu.Unlock()
		d.dirty.Store(true)
		go d.flushAsync()
	}
	return rel.Related, rel.Confidence
}

func (d *Dictionary) putLocked(canonical string, syn Synonym) {
	group, ok := d.entries[canonical]
	if !ok {
		group = make(map[string]Synonym)
		d.entries[canonical] = group
	}
	group[syn.Name] = syn
}

func (d *Dictionary) flushAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.Flush(ctx); err != nil {
		logutil.GetLogger(ctx).Warn("dictionary snapshot write failed, will retry", zap.Error(err))
	}
}

// Flush persists the current map if there are unsynced learns. The dirty flag
// is cleared only after a successful write so a failed write is retried by
// the flush job.
func (d *Dictionary) Flush(ctx context.Context) error {
	if d.store == nil || !d.dirty.Load() {
		return nil
	}
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if !d.dirty.Load() {
		return nil
	}

	d.mu.RLock()
	snap := snapshot{
		UpdatedAt: time.Now().Unix(),
		Entries:   make(map[string][]Synonym, len(d.entries)),
	}
	for canonical, group := range d.entries {
		synonyms := make([]Synonym, 0, len(group))
		for _, syn := range group {
			synonyms = append(synonyms, syn)
		}
		snap.Entries[canonical] = synonyms
	}
	d.mu.RUnlock()

	data, err := json.Marshal(&snap)
	if err != nil {
		return err
	}
	if err := d.store.Save(ctx, d.key, data); err != nil {
		return err
	}
	d.dirty.Store(false)
	return nil
}

// Dirty reports whether learned state is waiting for a successful snapshot
// write.
func (d *Dictionary) Dirty() bool {
	return d.dirty.Load()
}

// SynonymCount returns the number of stored directed synonym links.
func (d *Dictionary) SynonymCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := 0
	for _, group := range d.entries {
		total += len(group)
	}
	return total
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
