package semdict

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/knolab/knolab/internal/oracle"
)

// WrapLruCacheToRelater memoizes oracle verdicts for a bounded time. The
// dictionary persists only positive relations; this layer keeps repeated
// negative verdicts from hammering the oracle without freezing a wrong "no"
// forever. Errors are never cached.
func WrapLruCacheToRelater(next oracle.IRelater, size int, ttl time.Duration) oracle.IRelater {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruRelater{
		next:  next,
		cache: expirable.NewLRU[string, oracle.Relation](size, nil, ttl),
	}
}

type lruRelater struct {
	next  oracle.IRelater
	cache *expirable.LRU[string, oracle.Relation]
}

func (l *lruRelater) Relate(ctx context.Context, conceptA, conceptB string) (oracle.Relation, error) {
	key := pairKey(normalize(conceptA), normalize(conceptB))
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("oracle verdict cache hit (lru)",
			zap.String("a", conceptA), zap.String("b", conceptB))
		return cached, nil
	}
	rel, err := l.next.Relate(ctx, conceptA, conceptB)
	if err != nil {
		return oracle.Relation{}, err
	}
	l.cache.Add(key, rel)
	return rel, nil
}
