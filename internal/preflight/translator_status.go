package preflight

import (
	"context"
	"strings"

	"gamesort/internal/config"
)

// CheckTranslatorFromConfig evaluates translator status from config and
// connectivity. A disabled translator passes: tags and titles keep their
// source text. A missing key is reported but does not block a batch,
// since every translation then degrades to source text.
func CheckTranslatorFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Translator"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Translator.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Translator.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key", Optional: true}
	}
	check := CheckLLM(ctx, name, cfg.Translator)
	check.Optional = true
	return check
}
