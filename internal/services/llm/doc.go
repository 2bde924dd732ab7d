// Package llm provides an OpenRouter-compatible chat client that returns
// JSON-only completions.
//
// The translator uses it to turn batches of Japanese genre tags and titles
// into the target language; the status command uses HealthCheck to confirm
// the key and model respond.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// NewFromConfig: construct a client from the [translator] config section.
// Client.CompleteJSON: send system/user prompts, receive the raw JSON payload.
// Client.HealthCheck: verify the API key and model.
// DecodeLLMJSON: decode a payload, tolerating code fences and prose.
//
// # Errors
//
// Every returned error carries a services marker. A missing API key is
// ErrTransient so callers fall back per item instead of failing at startup.
// HTTP 408/429/5xx, empty completions, and network timeouts are retried with
// exponential backoff (base 2s, cap 15s, 3 attempts by default); anything
// else fails on the first attempt.
package llm
