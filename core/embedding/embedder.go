package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"

	"github.com/pbeckmann/evidex/core/retrieval"
	"github.com/pbeckmann/evidex/helper"
)

const (
	// DefaultModelName is the sentence transformer used when no model is
	// configured. It produces 384-dimensional embeddings.
	DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"
	// DefaultDimension is the embedding dimension of the default model
	DefaultDimension = 384

	// maxInputRunes caps query length before embedding, longer input is
	// rejected as invalid rather than silently truncated.
	maxInputRunes = 8192
)

// Provider generates embeddings with a hugot feature extraction pipeline.
// It implements retrieval.EmbeddingProvider.
type Provider struct {
	embed   func(text string) ([]float32, error)
	dim     int
	destroy func() error
}

// NewDefaultProvider creates a provider backed by the all-MiniLM-L6-v2
// sentence transformer, downloading the model on first use.
func NewDefaultProvider() (*Provider, error) {
	return NewProvider(DefaultModelName, "onnx/model.onnx", DefaultDimension)
}

// NewProvider creates a provider for the given hugot model
func NewProvider(modelName string, onnxFilePath string, dim int) (*Provider, error) {
	modelPath, err := helper.PrepareModel(modelName, onnxFilePath)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return &Provider{
		embed: func(text string) ([]float32, error) {
			result, err := sentencePipeline.RunPipeline([]string{text})
			if err != nil {
				return nil, fmt.Errorf("failed to generate embedding: %w", err)
			}
			if len(result.Embeddings) == 0 {
				return nil, fmt.Errorf("no embedding generated")
			}
			return result.Embeddings[0], nil
		},
		dim:     dim,
		destroy: session.Destroy,
	}, nil
}

// Embed generates an embedding for the given text
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", retrieval.ErrInvalidInput)
	}
	if len([]rune(text)) > maxInputRunes {
		return nil, fmt.Errorf("%w: text exceeds %d runes", retrieval.ErrInvalidInput, maxInputRunes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.embed(text)
}

// Dim returns the embedding dimension of the configured model
func (p *Provider) Dim() int {
	return p.dim
}

// Close releases the underlying hugot session
func (p *Provider) Close() error {
	if p.destroy != nil {
		return p.destroy()
	}
	return nil
}
