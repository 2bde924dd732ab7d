package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gamesort/internal/language"
)

const maxBatchWorkers = 16

// Validate ensures the configuration is usable. A missing translator API key is
// not an error: translation then degrades to source text on every call.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateTranslator(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateTags(); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		return validateHTTPURL("notifications.ntfy_topic", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateScraper() error {
	if err := validateHTTPURL("scraper.base_url", c.Scraper.BaseURL); err != nil {
		return err
	}
	if c.Scraper.ProxyURL != "" {
		if _, err := url.Parse(c.Scraper.ProxyURL); err != nil {
			return fmt.Errorf("scraper.proxy_url: %w", err)
		}
	}
	if c.Scraper.RetryMaxSeconds < c.Scraper.RetryBaseSeconds {
		return errors.New("scraper.retry_max_seconds must be >= scraper.retry_base_seconds")
	}
	for _, pair := range strings.Split(c.Scraper.Cookies, ";") {
		pair = strings.TrimSpace(pair)
		if pair != "" && !strings.Contains(pair, "=") {
			return fmt.Errorf("scraper.cookies: %q is not name=value", pair)
		}
	}
	return nil
}

func (c *Config) validateTranslator() error {
	if !c.Translator.Enabled {
		return nil
	}
	if language.Same(c.Translator.SourceLanguage, c.Translator.TargetLanguage) {
		return fmt.Errorf("translator.source_language and translator.target_language are both %q", c.Translator.TargetLanguage)
	}
	return validateHTTPURL("translator.base_url", c.Translator.BaseURL)
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers > maxBatchWorkers {
		return fmt.Errorf("batch.workers must be between 1 and %d", maxBatchWorkers)
	}
	if c.Batch.ChunkSize > 1000 {
		return errors.New("batch.chunk_size must be at most 1000")
	}
	return nil
}

func (c *Config) validateTags() error {
	for tag, priority := range c.Tags.Curated {
		if priority < 0 {
			return fmt.Errorf("tags.curated[%q]: priority must be non-negative", tag)
		}
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: expected http(s) url, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host in %q", field, value)
	}
	return nil
}
