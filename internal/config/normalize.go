package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"gamesort/internal/language"
)

// envOverrides lists the environment variables that take precedence over the
// config file. Empty variables leave the file value untouched.
type envOverrides struct {
	DataDir          string `env:"GAMESORT_DATA_DIR"`
	LogLevel         string `env:"GAMESORT_LOG_LEVEL"`
	LogFormat        string `env:"GAMESORT_LOG_FORMAT"`
	TranslatorAPIKey string `env:"GAMESORT_TRANSLATOR_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	ScraperCookies   string `env:"DLSITE_COOKIES"`
	ScraperProxyURL  string `env:"PROXY_URL"`
	NtfyTopic        string `env:"GAMESORT_NTFY_TOPIC"`
}

func (c *Config) normalize() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeCache()
	c.normalizeScraper()
	c.normalizeTranslator()
	c.normalizeBatch()
	c.normalizeTags()
	c.normalizeNotifications()
	return nil
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if overrides.DataDir != "" {
		c.Paths.DataDir = overrides.DataDir
	}
	if overrides.LogLevel != "" {
		c.Logging.Level = overrides.LogLevel
	}
	if overrides.LogFormat != "" {
		c.Logging.Format = overrides.LogFormat
	}
	if c.Translator.APIKey == "" {
		switch {
		case overrides.TranslatorAPIKey != "":
			c.Translator.APIKey = overrides.TranslatorAPIKey
		case overrides.OpenRouterAPIKey != "":
			c.Translator.APIKey = overrides.OpenRouterAPIKey
		}
	}
	if c.Scraper.Cookies == "" {
		c.Scraper.Cookies = overrides.ScraperCookies
	}
	if c.Scraper.ProxyURL == "" {
		c.Scraper.ProxyURL = overrides.ScraperProxyURL
	}
	if overrides.NtfyTopic != "" {
		c.Notifications.NtfyTopic = overrides.NtfyTopic
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDB) == "" {
		c.Paths.CacheDB = filepath.Join(c.Paths.DataDir, defaultCacheDBName)
	}
	if c.Paths.CacheDB, err = expandPath(c.Paths.CacheDB); err != nil {
		return fmt.Errorf("paths.cache_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = defaultTTLDays
	}
	c.Cache.TitlePlatform = strings.ToLower(strings.TrimSpace(c.Cache.TitlePlatform))
	if c.Cache.TitlePlatform == "" {
		c.Cache.TitlePlatform = defaultTitlePlatform
	}
}

func (c *Config) normalizeScraper() {
	c.Scraper.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.BaseURL), "/")
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = defaultScraperBaseURL
	}
	c.Scraper.UserAgent = strings.TrimSpace(c.Scraper.UserAgent)
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = defaultScraperUserAgent
	}
	c.Scraper.Cookies = strings.TrimSpace(c.Scraper.Cookies)
	c.Scraper.ProxyURL = strings.TrimSpace(c.Scraper.ProxyURL)
	if c.Scraper.TimeoutSeconds <= 0 {
		c.Scraper.TimeoutSeconds = defaultScraperTimeoutSeconds
	}
	if c.Scraper.MaxAttempts <= 0 {
		c.Scraper.MaxAttempts = defaultScraperMaxAttempts
	}
	if c.Scraper.RetryBaseSeconds <= 0 {
		c.Scraper.RetryBaseSeconds = defaultScraperRetryBaseSeconds
	}
	if c.Scraper.RetryMaxSeconds <= 0 {
		c.Scraper.RetryMaxSeconds = defaultScraperRetryMaxSeconds
	}
	if c.Scraper.MaxTags <= 0 {
		c.Scraper.MaxTags = defaultScraperMaxTags
	}
}

func (c *Config) normalizeTranslator() {
	c.Translator.APIKey = strings.TrimSpace(c.Translator.APIKey)
	c.Translator.BaseURL = strings.TrimSpace(c.Translator.BaseURL)
	if c.Translator.BaseURL == "" {
		c.Translator.BaseURL = defaultTranslatorBaseURL
	}
	c.Translator.Model = strings.TrimSpace(c.Translator.Model)
	if c.Translator.Model == "" {
		c.Translator.Model = defaultTranslatorModel
	}
	c.Translator.Referer = strings.TrimSpace(c.Translator.Referer)
	c.Translator.Title = strings.TrimSpace(c.Translator.Title)
	// Prompts name languages in English, so codes and native names are mapped.
	if c.Translator.SourceLanguage = language.DisplayName(c.Translator.SourceLanguage); c.Translator.SourceLanguage == "" {
		c.Translator.SourceLanguage = defaultTranslatorSourceLanguage
	}
	if c.Translator.TargetLanguage = language.DisplayName(c.Translator.TargetLanguage); c.Translator.TargetLanguage == "" {
		c.Translator.TargetLanguage = defaultTranslatorTargetLanguage
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = defaultTranslatorTimeoutSeconds
	}
	if c.Translator.MaxAttempts <= 0 {
		c.Translator.MaxAttempts = defaultTranslatorMaxAttempts
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultBatchWorkers
	}
	if c.Batch.ChunkSize <= 0 {
		c.Batch.ChunkSize = defaultBatchChunkSize
	}
	if c.Batch.TimeoutSeconds < 0 {
		c.Batch.TimeoutSeconds = 0
	}
}

func (c *Config) normalizeTags() {
	c.Tags.Fallback = strings.TrimSpace(c.Tags.Fallback)
	if c.Tags.Fallback == "" {
		c.Tags.Fallback = defaultTagFallback
	}
	if c.Tags.DefaultPriority <= 0 {
		c.Tags.DefaultPriority = defaultTagPriority
	}
	curated := make(map[string]int, len(c.Tags.Curated))
	for tag, priority := range c.Tags.Curated {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		curated[tag] = priority
	}
	c.Tags.Curated = curated
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
	if c.Notifications.MinItems <= 0 {
		c.Notifications.MinItems = defaultNotifyMinItems
	}
}
