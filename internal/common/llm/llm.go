// Package llm adapts langchaingo models to the narrow Generator and
// Embedder interfaces the routing stages depend on.
package llm

import (
	"context"
	"errors"
	"fmt"

	"query-router/internal/common/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator produces a text completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder maps text to vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// LangChainGenerator wraps any langchaingo model.
type LangChainGenerator struct {
	model llms.Model
	opts  []llms.CallOption
}

func NewLangChainGenerator(model llms.Model, opts ...llms.CallOption) *LangChainGenerator {
	return &LangChainGenerator{model: model, opts: opts}
}

func (g *LangChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, g.opts...)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// LangChainEmbedder wraps a langchaingo embedder.
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

func NewLangChainEmbedder(e embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{embedder: e}
}

func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

func (e *LangChainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedder.EmbedDocuments(ctx, texts)
}

// NewGenerator builds the configured text model.
func NewGenerator(cfg config.LLMConfig) (*LangChainGenerator, error) {
	model, err := newModel(cfg.Provider, cfg.Model, cfg.BaseURL, cfg.APIKey, "")
	if err != nil {
		return nil, err
	}

	opts := []llms.CallOption{llms.WithTemperature(cfg.Temperature)}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return NewLangChainGenerator(model, opts...), nil
}

// NewEmbedder builds the configured embedding model.
func NewEmbedder(cfg config.EmbeddingConfig) (*LangChainEmbedder, error) {
	model, err := newModel(cfg.Provider, cfg.Model, cfg.BaseURL, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}

	client, ok := model.(embeddings.EmbedderClient)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot create embeddings", cfg.Provider)
	}
	e, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return NewLangChainEmbedder(e), nil
}

func newModel(provider, model, baseURL, apiKey, embeddingModel string) (llms.Model, error) {
	switch provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(model)}
		if apiKey != "" {
			opts = append(opts, openai.WithToken(apiKey))
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		if embeddingModel != "" {
			opts = append(opts, openai.WithEmbeddingModel(embeddingModel))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return m, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(model)}
		if baseURL != "" {
			opts = append(opts, ollama.WithServerURL(baseURL))
		}
		m, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}
