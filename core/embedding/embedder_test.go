package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pbeckmann/evidex/core/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubProvider() *Provider {
	return &Provider{
		embed: func(text string) ([]float32, error) {
			return []float32{0.1, 0.2, 0.3}, nil
		},
		dim: 3,
	}
}

func TestEmbed(t *testing.T) {
	provider := newStubProvider()

	t.Run("Valid text", func(t *testing.T) {
		embedding, err := provider.Embed(context.Background(), "magnesium and sleep")
		assert.NoError(t, err, "Expected Embed to not return an error")
		assert.Len(t, embedding, 3, "Expected the pipeline output")
	})

	t.Run("Empty text", func(t *testing.T) {
		_, err := provider.Embed(context.Background(), "   ")
		require.Error(t, err, "Expected error for empty text")
		assert.True(t, errors.Is(err, retrieval.ErrInvalidInput), "Expected ErrInvalidInput in the chain")
	})

	t.Run("Text over the length cap", func(t *testing.T) {
		_, err := provider.Embed(context.Background(), strings.Repeat("a", maxInputRunes+1))
		require.Error(t, err, "Expected error for oversized text")
		assert.True(t, errors.Is(err, retrieval.ErrInvalidInput), "Expected ErrInvalidInput in the chain")
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := provider.Embed(ctx, "text")
		assert.ErrorIs(t, err, context.Canceled, "Expected the context error to surface")
	})
}

func TestDim(t *testing.T) {
	provider := newStubProvider()
	assert.Equal(t, 3, provider.Dim(), "Expected the configured dimension")
}

func TestClose(t *testing.T) {
	t.Run("Close without a session", func(t *testing.T) {
		provider := newStubProvider()
		assert.NoError(t, provider.Close(), "Expected Close to handle a nil session")
	})

	t.Run("Close releases the session", func(t *testing.T) {
		closed := false
		provider := &Provider{destroy: func() error {
			closed = true
			return nil
		}}

		assert.NoError(t, provider.Close())
		assert.True(t, closed, "Expected the session to be destroyed")
	})
}
