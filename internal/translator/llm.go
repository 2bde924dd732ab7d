package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gamesort/internal/logging"
	"gamesort/internal/services"
	"gamesort/internal/services/llm"
)

// Completer is the slice of the LLM client the translator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLM translates through a JSON chat completion.
type LLM struct {
	client         Completer
	sourceLanguage string
	targetLanguage string
	logger         *slog.Logger
}

// NewLLM wraps client. Languages default to Japanese and Korean.
func NewLLM(client Completer, sourceLanguage, targetLanguage string, logger *slog.Logger) *LLM {
	if strings.TrimSpace(sourceLanguage) == "" {
		sourceLanguage = "Japanese"
	}
	if strings.TrimSpace(targetLanguage) == "" {
		targetLanguage = "Korean"
	}
	return &LLM{
		client:         client,
		sourceLanguage: sourceLanguage,
		targetLanguage: targetLanguage,
		logger:         logging.NewComponentLogger(logger, "translator"),
	}
}

type payload struct {
	Tags  []string `json:"tags"`
	Title *string  `json:"title,omitempty"`
}

func (t *LLM) systemPrompt() string {
	return fmt.Sprintf(`You translate %[1]s video game metadata into natural %[2]s.
Input is a JSON object with "tags" (genre tags) and optionally "title" (a game title).
Respond with JSON only, in the same shape: {"tags": [...], "title": "..."}.
Return exactly one translated tag per input tag, in the same order.
Keep proper nouns, numbers, and Latin-script words as they are.
Omit "title" when the input has none.`, t.sourceLanguage, t.targetLanguage)
}

// TranslateBatch implements Translator.
func (t *LLM) TranslateBatch(ctx context.Context, tags []string, title *string) (Result, error) {
	fallback := Fallback(tags)
	if len(tags) == 0 && title == nil {
		return fallback, nil
	}
	request, err := json.Marshal(payload{Tags: nonNil(tags), Title: title})
	if err != nil {
		return fallback, services.Wrap(services.ErrValidation, "translate", "encode request", "", err)
	}

	content, err := t.client.CompleteJSON(ctx, t.systemPrompt(), string(request))
	if err != nil {
		return fallback, err
	}

	var response payload
	if err := llm.DecodeLLMJSON(content, &response); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, t.logger), "translation response unreadable; using source text", "translation_garbled",
			logging.Int("tag_count", len(tags)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the translator model or prompt"),
			logging.String(logging.FieldImpact, "tags and title keep their source text"),
		)
		return fallback, services.Wrap(services.ErrUpstream, "translate", "decode response", "", err)
	}

	res := Align(tags, response.Tags)
	if len(response.Tags) != len(tags) {
		logging.WithContext(ctx, t.logger).Debug("translation length mismatch; aligned to source",
			logging.Int("requested", len(tags)),
			logging.Int("returned", len(response.Tags)))
	}
	if title != nil && response.Title != nil {
		if translated := strings.TrimSpace(*response.Title); translated != "" {
			res.Title = &translated
		}
	}
	return res, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
