package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks a failed or misconfigured oracle call. Callers treat
// the pair as not related and must not cache the verdict.
var ErrUnavailable = errors.New("similarity oracle unavailable")

// Relation is a verdict on whether two concept names refer to the same or
// closely related concepts.
type Relation struct {
	Related    bool    `json:"related"`
	Confidence float64 `json:"confidence"`
}

type IProvider interface {
	Name() string
	Relate(ctx context.Context, model string, conceptA, conceptB string) (Relation, error)
}

// IRelater is the single-method contract the rest of the system depends on;
// the concrete provider and model stay behind it.
type IRelater interface {
	Relate(ctx context.Context, conceptA, conceptB string) (Relation, error)
}

type relater struct {
	provider IProvider
	model    string
}

func NewRelater(p IProvider, model string) IRelater {
	return &relater{provider: p, model: model}
}

func (r *relater) Relate(ctx context.Context, conceptA, conceptB string) (Relation, error) {
	return r.provider.Relate(ctx, r.model, conceptA, conceptB)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("oracle.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported oracle provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("oracle provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode oracle provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode oracle provider config: %w", err)
	}
	return nil
}

func relatePrompt(conceptA, conceptB string) string {
	return fmt.Sprintf(`You are a technical terminology expert.
Decide whether the two concept names below refer to the same or closely related technology, tool, or concept.
- "kubernetes" and "k8s" are related; "kubernetes" and "postgresql" are not.
- Respond ONLY with JSON: {"related": true or false, "confidence": number between 0.0 and 1.0}

A: %s
B: %s`, conceptA, conceptB)
}

// parseRelation extracts the JSON verdict from a model response, tolerating
// code fences and surrounding prose.
func parseRelation(raw string) (Relation, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Relation{}, fmt.Errorf("no json object in oracle response")
	}
	var rel Relation
	if err := json.Unmarshal([]byte(raw[start:end+1]), &rel); err != nil {
		return Relation{}, fmt.Errorf("decode oracle response: %w", err)
	}
	if rel.Confidence < 0 {
		rel.Confidence = 0
	}
	if rel.Confidence > 1 {
		rel.Confidence = 1
	}
	return rel, nil
}
