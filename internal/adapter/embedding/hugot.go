package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotEmbedder runs a sentence-transformers model locally through hugot's
// pure Go backend.
type HugotEmbedder struct {
	model     string
	session   *hugot.Session
	pipeline  *pipelines.FeatureExtractionPipeline
	dimension int
}

// NewHugotEmbedder downloads the model into modelDir if needed and starts a
// feature-extraction pipeline. Close releases the session.
func NewHugotEmbedder(model, modelDir string) (*HugotEmbedder, error) {
	modelPath, err := prepareModel(model, modelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "regbot-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	dimension := 768
	if strings.Contains(model, "MiniLM") {
		dimension = 384
	}

	return &HugotEmbedder{
		model:     model,
		session:   session,
		pipeline:  pipeline,
		dimension: dimension,
	}, nil
}

// prepareModel returns the local path of model, downloading it on first use.
func prepareModel(model, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	}

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	downloadOptions := hugot.NewDownloadOptions()
	downloadOptions.OnnxFilePath = "onnx/model.onnx"
	downloadedPath, err := hugot.DownloadModel(model, modelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", model, err)
	}
	return downloadedPath, nil
}

func (e *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	return result.Embeddings, nil
}

func (e *HugotEmbedder) Dimension() int {
	return e.dimension
}

func (e *HugotEmbedder) ModelName() string {
	return e.model
}

func (e *HugotEmbedder) Close() error {
	return e.session.Destroy()
}
