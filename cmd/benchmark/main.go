package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"regbot/config"
	"regbot/internal/adapter/embedding"
	"regbot/internal/adapter/fs"
	"regbot/internal/adapter/retriever"
	"regbot/internal/adapter/store"
	"regbot/internal/port"
)

func main() {
	dir := flag.String("dir", ".", "Project directory holding regbot.yaml and the index")
	query := flag.String("q", "", "Question to test")
	questions := flag.String("questions", "", "Questions file or glob, one question per line")
	topK := flag.Int("k", 0, "Number of results (default from config)")
	threshold := flag.Float64("threshold", -1, "Similarity threshold (default from config)")
	flag.Parse()

	if *query == "" && *questions == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"question\"")
		fmt.Println("       go run cmd/benchmark/main.go -dir . -questions eval/perguntas_factscore.txt")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model, collection metadata)")
		fmt.Println("  2. Similarity of the nearest fragments")
		fmt.Println("  3. Similarity gate decision (answered or fallback)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *topK <= 0 {
		*topK = cfg.Retrieve.TopK
	}
	if *threshold < 0 {
		*threshold = cfg.Retrieve.SimilarityThreshold
	}

	dbPath := cfg.Index.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(*dir, dbPath)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	embedder, collection, err := setupEmbedding(st, cfg, *dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Semantic search not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("SIMILARITY GATE BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Fragments indexed: %d\n", collection.Count())
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Printf("Threshold: %.2f, top-k: %d\n", *threshold, *topK)
	if warning := collection.Info().CheckEmbedder(embedder.ModelName(), embedder.Dimension()); warning != "" {
		fmt.Printf("Warning: %s\n", warning)
	}
	fmt.Println()

	var list []string
	if *query != "" {
		list = append(list, *query)
	}
	if *questions != "" {
		loaded, err := fs.LoadQuestions(*questions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading questions: %v\n", err)
			os.Exit(1)
		}
		list = append(list, loaded...)
	}

	ctx := context.Background()
	passed := 0
	totalBest := 0.0
	for _, q := range list {
		best, err := benchmarkQuery(ctx, embedder, collection, q, *topK, *threshold)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query %q failed: %v\n", q, err)
			os.Exit(1)
		}
		totalBest += best
		if best >= *threshold {
			passed++
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Questions:            %d\n", len(list))
	fmt.Printf("  Answered (gate pass): %d\n", passed)
	fmt.Printf("  Fallback (gate miss): %d\n", len(list)-passed)
	if len(list) > 0 {
		fmt.Printf("  Average best sim:     %.3f\n", totalBest/float64(len(list)))
	}
}

// benchmarkQuery prints the nearest fragments for q and returns the best
// similarity.
func benchmarkQuery(ctx context.Context, embedder port.Embedder, index port.VectorIndex, q string, k int, threshold float64) (float64, error) {
	fmt.Printf("Query: \"%s\"\n", q)
	fmt.Println(strings.Repeat("-", 70))

	queryVec, err := embedder.Embed(ctx, []string{q})
	if err != nil {
		return 0, fmt.Errorf("embedding error: %w", err)
	}

	results, err := index.Search(ctx, queryVec[0], k)
	if err != nil {
		return 0, fmt.Errorf("search error: %w", err)
	}

	best := 0.0
	for i, r := range results {
		similarity := 0.0
		if r.Distance != nil {
			similarity = 1 - *r.Distance
		}
		if i == 0 || similarity > best {
			best = similarity
		}

		preview := r.Document
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")

		rating := "LOW"
		if similarity > 0.7 {
			rating = "HIGH"
		} else if similarity > 0.5 {
			rating = "GOOD"
		} else if similarity >= threshold {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, similarity, r.Metadata[retriever.MetadataRef])
		fmt.Printf("   %s\n\n", preview)
	}

	if len(results) > 0 && best >= threshold {
		fmt.Printf("Gate: PASS (best %.3f >= %.2f), all %d fragments returned\n\n", best, threshold, len(results))
	} else {
		fmt.Printf("Gate: MISS (best %.3f < %.2f), fallback message returned\n\n", best, threshold)
	}
	return best, nil
}

func setupEmbedding(st *store.BoltStore, cfg *config.Config, dir string) (port.Embedder, *store.BoltVectorStore, error) {
	var embedder port.Embedder

	switch cfg.Embedding.Provider {
	case "hugot":
		modelDir := cfg.Embedding.ModelDir
		if !filepath.IsAbs(modelDir) {
			modelDir = filepath.Join(dir, modelDir)
		}
		emb, err := embedding.NewHugotEmbedder(cfg.Embedding.Model, modelDir)
		if err != nil {
			return nil, nil, fmt.Errorf("embedder init failed: %w", err)
		}
		embedder = emb
	case "ollama":
		emb, err := embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("embedder init failed: %w", err)
		}
		embedder = emb
	case "openai":
		emb, err := embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("embedder init failed: %w", err)
		}
		embedder = emb
	default:
		return nil, nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}

	collection, err := st.Collection(cfg.Index.Collection)
	if err != nil {
		return nil, nil, fmt.Errorf("collection %s: %w", cfg.Index.Collection, err)
	}
	if collection.Count() == 0 {
		return nil, nil, fmt.Errorf("collection %s is empty", cfg.Index.Collection)
	}

	return embedder, collection, nil
}
