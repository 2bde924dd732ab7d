package config

const (
	defaultConfigPath               = "~/.config/gamesort/config.toml"
	defaultDataDir                  = "~/.local/share/gamesort"
	defaultCacheDBName              = "cache.db"
	defaultLogDir                   = "~/.local/share/gamesort/logs"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultTTLDays                  = 7
	defaultTitlePlatform            = "steam"
	defaultScraperBaseURL           = "https://www.dlsite.com/maniax/work/=/product_id"
	defaultScraperUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
	defaultScraperTimeoutSeconds    = 10
	defaultScraperMaxAttempts       = 3
	defaultScraperRetryBaseSeconds  = 2
	defaultScraperRetryMaxSeconds   = 15
	defaultScraperMaxTags           = 5
	defaultTranslatorBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslatorModel          = "google/gemini-3-flash-preview"
	defaultTranslatorReferer        = "https://github.com/gamesort/gamesort"
	defaultTranslatorTitle          = "gamesort"
	defaultTranslatorSourceLanguage = "Japanese"
	defaultTranslatorTargetLanguage = "Korean"
	defaultTranslatorTimeoutSeconds = 60
	defaultTranslatorMaxAttempts    = 3
	defaultBatchWorkers             = 4
	defaultBatchChunkSize           = 10
	defaultBatchTimeoutSeconds      = 300
	defaultTagFallback              = "uncategorized"
	defaultTagPriority              = 10
	defaultNotifyTimeoutSeconds     = 10
	defaultNotifyMinItems           = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Cache: Cache{
			TTLDays:       defaultTTLDays,
			TitlePlatform: defaultTitlePlatform,
		},
		Scraper: Scraper{
			BaseURL:          defaultScraperBaseURL,
			UserAgent:        defaultScraperUserAgent,
			TimeoutSeconds:   defaultScraperTimeoutSeconds,
			MaxAttempts:      defaultScraperMaxAttempts,
			RetryBaseSeconds: defaultScraperRetryBaseSeconds,
			RetryMaxSeconds:  defaultScraperRetryMaxSeconds,
			MaxTags:          defaultScraperMaxTags,
		},
		Translator: Translator{
			Enabled:        true,
			BaseURL:        defaultTranslatorBaseURL,
			Model:          defaultTranslatorModel,
			Referer:        defaultTranslatorReferer,
			Title:          defaultTranslatorTitle,
			SourceLanguage: defaultTranslatorSourceLanguage,
			TargetLanguage: defaultTranslatorTargetLanguage,
			TimeoutSeconds: defaultTranslatorTimeoutSeconds,
			MaxAttempts:    defaultTranslatorMaxAttempts,
		},
		Batch: Batch{
			Workers:        defaultBatchWorkers,
			ChunkSize:      defaultBatchChunkSize,
			TimeoutSeconds: defaultBatchTimeoutSeconds,
		},
		Tags: Tags{
			Fallback:        defaultTagFallback,
			DefaultPriority: defaultTagPriority,
			Curated:         map[string]int{},
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			MinItems:              defaultNotifyMinItems,
		},
	}
}
