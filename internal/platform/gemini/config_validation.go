package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/config"
	"github.com/prettiscom-lgtm/SIBHAH-STUDIO/internal/generation"
)

// validateConfig checks the settings the transport cannot work without.
// A missing API key is not an error here; it is reported per call.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "missing model name in LLM configuration")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.GeminiAPIKey == "" {
		logger.WarnContext(ctx, "gemini API key is not set, every generation will fail until it is configured")
	}

	return nil
}
