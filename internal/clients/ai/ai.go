package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fluentclass/fluentclass-backend/internal/clients/gemini"
	"github.com/fluentclass/fluentclass-backend/internal/clients/imagegen"
	"github.com/fluentclass/fluentclass-backend/internal/clients/openai"
	"github.com/fluentclass/fluentclass-backend/internal/clients/openrouter"
	"github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
)

// TextClient is the surface the lesson pipeline needs from a language model
// provider. It returns the raw completion text: parsing and repair belong to
// the pipeline, and a provider must never hide malformed output behind its
// own fixups. One call here is one upstream request; retrying is the
// orchestrator's job, so attempt accounting stays exact.
type TextClient interface {
	GenerateJSONText(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error)
	Name() string
	Model() string
}

// ImageClient generates one raster image per prompt, returning the bytes and
// mime type.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
	Name() string
}

// NewTextClientFromEnv selects the provider via AI_PROVIDER
// (openai|openrouter|gemini, default openai).
func NewTextClientFromEnv(log *logger.Logger) (TextClient, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	if provider == "" {
		provider = "openai"
	}
	switch provider {
	case "openai":
		return openai.NewClient(log)
	case "openrouter", "qwen":
		return openrouter.NewClient(log)
	case "gemini":
		return gemini.NewClient(log)
	}
	return nil, fmt.Errorf("unknown AI_PROVIDER %q", provider)
}

// NewImageClientFromEnv builds the image client, or (nil, nil) when image
// generation is not configured; lessons render fine without images.
func NewImageClientFromEnv(log *logger.Logger) (ImageClient, error) {
	if strings.TrimSpace(os.Getenv("IMAGE_API_URL")) == "" {
		return nil, nil
	}
	return imagegen.NewClient(log)
}
