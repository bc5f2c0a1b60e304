package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"regbot/config"
	"regbot/internal/adapter/embedding"
	"regbot/internal/adapter/llm"
	"regbot/internal/adapter/retriever"
	"regbot/internal/adapter/store"
	"regbot/internal/port"
	"regbot/internal/usecase"
)

const mockDimension = 384

// pipeline holds the collaborator handles built once per process.
type pipeline struct {
	embedder port.Embedder
	index    port.VectorIndex
	llm      port.LLM
	closers  []func() error
	log      *slog.Logger
}

func newPipeline(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pipeline, error) {
	p := &pipeline{log: log}

	embedder, closeEmbedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	p.embedder = embedder
	if closeEmbedder != nil {
		p.closers = append(p.closers, closeEmbedder)
	}

	index, closeIndex, err := openIndex(ctx, cfg.Index, embedder, log)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.index = index
	if closeIndex != nil {
		p.closers = append(p.closers, closeIndex)
	}

	if cfg.Generation.Enabled {
		p.llm = buildLLM(cfg.Generation, cfg.Generation.URL, cfg.Generation.Model)
	}

	return p, nil
}

// Close releases the index and embedder.
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			p.log.Warn("close failed", "error", err)
		}
	}
	p.closers = nil
}

func (p *pipeline) indexAvailable() bool {
	return p.index != nil
}

func (p *pipeline) retriever(topK int, threshold float64) *retriever.SemanticRetriever {
	return retriever.NewSemanticRetriever(p.index, p.embedder, topK, threshold)
}

func (p *pipeline) composer(cfg *config.Config) *usecase.Composer {
	return usecase.NewComposer(p.llm, cfg.Answer.FallbackMessage, cfg.Generation.Timeout(), p.log)
}

func (p *pipeline) queryUseCase(cfg *config.Config) *usecase.QueryUseCase {
	messages := usecase.Messages{
		Fallback:  cfg.Answer.FallbackMessage,
		Gibberish: cfg.Answer.GibberishMessage,
	}
	r := p.retriever(cfg.Retrieve.TopK, cfg.Retrieve.SimilarityThreshold)
	return usecase.NewQueryUseCase(r, p.composer(cfg), messages, p.log)
}

func buildEmbedder(cfg config.EmbeddingConfig) (port.Embedder, func() error, error) {
	switch cfg.Provider {
	case "hugot":
		emb, err := embedding.NewHugotEmbedder(cfg.Model, resolvePath(cfg.ModelDir))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return emb, emb.Close, nil
	case "ollama":
		emb, err := embedding.NewOllamaEmbedder(cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return emb, nil, nil
	case "openai":
		var (
			emb *embedding.OpenAIEmbedder
			err error
		)
		if cfg.BaseURL != "" {
			emb, err = embedding.NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		} else {
			emb, err = embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return emb, nil, nil
	case "mock":
		return embedding.NewMockEmbedder(mockDimension), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// openIndex opens the configured vector index. A missing database, table or
// collection is not an error: the index is reported unavailable (nil) and
// every retrieval comes back empty.
func openIndex(ctx context.Context, cfg config.IndexConfig, embedder port.Embedder, log *slog.Logger) (port.VectorIndex, func() error, error) {
	switch cfg.Backend {
	case "bolt":
		path := resolvePath(cfg.Path)
		if _, err := os.Stat(path); err != nil {
			log.Warn("index database not found, retrieval disabled", "path", path)
			return nil, nil, nil
		}

		st, err := store.NewBoltStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open index: %w", err)
		}

		coll, err := st.Collection(cfg.Collection)
		if errors.Is(err, store.ErrCollectionNotFound) {
			var available []string
			if infos, listErr := st.ListCollections(); listErr == nil {
				for _, info := range infos {
					available = append(available, info.Name)
				}
			}
			log.Warn("collection not found, retrieval disabled", "collection", cfg.Collection, "path", path, "available", available)
			return nil, st.Close, nil
		}
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("failed to open collection: %w", err)
		}

		if warning := coll.Info().CheckEmbedder(embedder.ModelName(), embedder.Dimension()); warning != "" {
			log.Warn(warning, "collection", cfg.Collection)
		}
		log.Info("index opened", "backend", cfg.Backend, "collection", cfg.Collection, "fragments", coll.Count())
		return coll, st.Close, nil

	case "pgvector":
		st, err := store.NewPgVectorStore(ctx, cfg.DSN, cfg.Collection)
		if err != nil {
			log.Warn("pgvector index unavailable, retrieval disabled", "collection", cfg.Collection, "error", err)
			return nil, nil, nil
		}
		log.Info("index opened", "backend", cfg.Backend, "collection", cfg.Collection)
		return st, st.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

func buildLLM(cfg config.GenerationConfig, url, model string) port.LLM {
	if cfg.Provider == "openai" {
		return llm.NewChatClient(url, model, cfg.APIKeyEnv, cfg.Timeout())
	}
	return llm.NewOllamaClient(url, model, cfg.Timeout())
}

func buildJudge(cfg config.GenerationConfig) port.LLM {
	url, model := cfg.Judge()
	return buildLLM(cfg, url, model)
}
