package provider

import (
	"fmt"
	"os"

	"github.com/knights-analytics/hugot"
)

// DefaultLocalModel is the sentence embedding model fetched for local use.
const DefaultLocalModel = "sentence-transformers/all-MiniLM-L6-v2"

// DownloadModel fetches a HuggingFace feature-extraction model with its ONNX
// export into dest, where NewHugotEmbedding(dest) will find it. It returns
// the model directory.
func DownloadModel(model, dest string) (string, error) {
	if model == "" {
		model = DefaultLocalModel
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	path, err := hugot.DownloadModel(model, dest, opts)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", model, err)
	}
	return path, nil
}
