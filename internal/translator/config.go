package translator

import (
	"log/slog"

	"gamesort/internal/config"
	"gamesort/internal/services/llm"
)

// NewFromConfig returns the LLM translator, or Passthrough when translation
// is disabled. A missing API key is not an error here; each call fails
// transiently instead.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) Translator {
	if cfg == nil || !cfg.Translator.Enabled {
		return Passthrough{}
	}
	client := llm.NewFromConfig(cfg.Translator, logger)
	return NewLLM(client, cfg.Translator.SourceLanguage, cfg.Translator.TargetLanguage, logger)
}
