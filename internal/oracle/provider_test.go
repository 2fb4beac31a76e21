package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRelation(t *testing.T) {
	rel, err := parseRelation(`{"related": true, "confidence": 0.9}`)
	require.NoError(t, err)
	require.True(t, rel.Related)
	require.Equal(t, 0.9, rel.Confidence)

	// Code fences and prose around the verdict are tolerated.
	rel, err = parseRelation("Sure, here is the verdict:\n```json\n{\"related\": false, \"confidence\": 0.2}\n```")
	require.NoError(t, err)
	require.False(t, rel.Related)

	_, err = parseRelation("the concepts are related")
	require.Error(t, err)
	_, err = parseRelation("{not json}")
	require.Error(t, err)
}

func TestParseRelationClampsConfidence(t *testing.T) {
	rel, err := parseRelation(`{"related": true, "confidence": 1.7}`)
	require.NoError(t, err)
	require.Equal(t, 1.0, rel.Confidence)

	rel, err = parseRelation(`{"related": false, "confidence": -3}`)
	require.NoError(t, err)
	require.Equal(t, 0.0, rel.Confidence)
}

func TestNewProviderRegistry(t *testing.T) {
	_, err := NewProvider("", nil)
	require.Error(t, err)
	_, err = NewProvider("no-such-provider", nil)
	require.Error(t, err)

	provider, err := NewProvider("gemini", map[string]interface{}{"api_key": "test"})
	require.NoError(t, err)
	require.Equal(t, "gemini", provider.Name())

	// Registry lookup is case insensitive.
	provider, err = NewProvider("  OpenAI ", map[string]interface{}{"api_key": "test"})
	require.NoError(t, err)
	require.Equal(t, "openai", provider.Name())
}
