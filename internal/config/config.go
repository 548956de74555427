package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "NEWSLENS_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	lmStudioHostEnv   = "LM_STUDIO_HOST"
	lmStudioPortEnv   = "LM_STUDIO_PORT"
	inferenceModelEnv = "INFERENCE_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Inference     InferenceConfig    `yaml:"inference"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	Scoring       ScoringConfig      `yaml:"scoring"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
	Feeds         []FeedSeed         `yaml:"feeds"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines how often refresh cycles run. A non-positive
// interval disables the scheduler and runs a single cycle instead.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
}

// Interval resolves the configured cadence to a duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// IngestConfig tunes feed fetching and entry normalization.
type IngestConfig struct {
	TimeoutSeconds   int  `yaml:"timeoutSeconds"`
	Workers          int  `yaml:"workers"`
	FetchFullContent bool `yaml:"fetchFullContent"`
	MinBodyRunes     int  `yaml:"minBodyRunes"`
}

// Timeout resolves the per-feed fetch timeout.
func (i IngestConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// InferenceConfig defines how to contact the local inference endpoint.
// An empty Model defers to discovery against the endpoint's model list.
type InferenceConfig struct {
	Endpoint           string  `yaml:"endpoint"`
	Model              string  `yaml:"model"`
	TimeoutSeconds     int     `yaml:"timeoutSeconds"`
	MaxTokens          int     `yaml:"maxTokens"`
	SummaryMaxTokens   int     `yaml:"summaryMaxTokens"`
	Temperature        float64 `yaml:"temperature"`
	RequestsPerMinute  int     `yaml:"requestsPerMinute"`
	Burst              int     `yaml:"burst"`
	PromptRunes        int     `yaml:"promptRunes"`
	SummaryPromptRunes int     `yaml:"summaryPromptRunes"`
}

// Timeout resolves the per-request completion timeout.
func (i InferenceConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// AnalysisConfig scopes the derived-attribute pipeline.
type AnalysisConfig struct {
	BiasCategories []string `yaml:"biasCategories"`
}

// ScoringConfig tunes personalized relevance scoring.
type ScoringConfig struct {
	KeywordBoost   float64 `yaml:"keywordBoost"`
	LikeWeight     float64 `yaml:"likeWeight"`
	DislikeWeight  float64 `yaml:"dislikeWeight"`
	WindowDays     int     `yaml:"windowDays"`
	RelevanceFloor float64 `yaml:"relevanceFloor"`
}

// Window resolves the interaction lookback window.
func (s ScoringConfig) Window() time.Duration {
	return time.Duration(s.WindowDays) * 24 * time.Hour
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig selects log verbosity and output encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeedSeed describes a feed subscribed automatically when the feed
// table is empty.
type FeedSeed struct {
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	host := os.Getenv(lmStudioHostEnv)
	port := os.Getenv(lmStudioPortEnv)
	if host != "" || port != "" {
		if host == "" {
			host = "localhost"
		}
		if port == "" {
			port = "1234"
		}
		c.Inference.Endpoint = fmt.Sprintf("http://%s:%s", host, port)
	}

	if v := os.Getenv(inferenceModelEnv); v != "" {
		c.Inference.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.IntervalMinutes != 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}

	if override.Ingest.TimeoutSeconds != 0 {
		base.Ingest.TimeoutSeconds = override.Ingest.TimeoutSeconds
	}
	if override.Ingest.Workers != 0 {
		base.Ingest.Workers = override.Ingest.Workers
	}
	if override.Ingest.FetchFullContent {
		base.Ingest.FetchFullContent = true
	}
	if override.Ingest.MinBodyRunes != 0 {
		base.Ingest.MinBodyRunes = override.Ingest.MinBodyRunes
	}

	if override.Inference.Endpoint != "" {
		base.Inference.Endpoint = override.Inference.Endpoint
	}
	if override.Inference.Model != "" {
		base.Inference.Model = override.Inference.Model
	}
	if override.Inference.TimeoutSeconds != 0 {
		base.Inference.TimeoutSeconds = override.Inference.TimeoutSeconds
	}
	if override.Inference.MaxTokens != 0 {
		base.Inference.MaxTokens = override.Inference.MaxTokens
	}
	if override.Inference.SummaryMaxTokens != 0 {
		base.Inference.SummaryMaxTokens = override.Inference.SummaryMaxTokens
	}
	if override.Inference.Temperature != 0 {
		base.Inference.Temperature = override.Inference.Temperature
	}
	if override.Inference.RequestsPerMinute != 0 {
		base.Inference.RequestsPerMinute = override.Inference.RequestsPerMinute
	}
	if override.Inference.Burst != 0 {
		base.Inference.Burst = override.Inference.Burst
	}
	if override.Inference.PromptRunes != 0 {
		base.Inference.PromptRunes = override.Inference.PromptRunes
	}
	if override.Inference.SummaryPromptRunes != 0 {
		base.Inference.SummaryPromptRunes = override.Inference.SummaryPromptRunes
	}

	if len(override.Analysis.BiasCategories) > 0 {
		base.Analysis.BiasCategories = override.Analysis.BiasCategories
	}

	if override.Scoring.KeywordBoost != 0 {
		base.Scoring.KeywordBoost = override.Scoring.KeywordBoost
	}
	if override.Scoring.LikeWeight != 0 {
		base.Scoring.LikeWeight = override.Scoring.LikeWeight
	}
	if override.Scoring.DislikeWeight != 0 {
		base.Scoring.DislikeWeight = override.Scoring.DislikeWeight
	}
	if override.Scoring.WindowDays != 0 {
		base.Scoring.WindowDays = override.Scoring.WindowDays
	}
	if override.Scoring.RelevanceFloor != 0 {
		base.Scoring.RelevanceFloor = override.Scoring.RelevanceFloor
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database:  DatabaseConfig{Path: "news_feed.db"},
		Scheduler: SchedulerConfig{IntervalMinutes: 60},
		Ingest: IngestConfig{
			TimeoutSeconds:   20,
			Workers:          3,
			FetchFullContent: false,
			MinBodyRunes:     200,
		},
		Inference: InferenceConfig{
			Endpoint:           "http://localhost:1234",
			Model:              "",
			TimeoutSeconds:     30,
			MaxTokens:          500,
			SummaryMaxTokens:   100,
			Temperature:        0.1,
			RequestsPerMinute:  30,
			Burst:              2,
			PromptRunes:        1000,
			SummaryPromptRunes: 2000,
		},
		Analysis: AnalysisConfig{
			BiasCategories: []string{"politics", "world"},
		},
		Scoring: ScoringConfig{
			KeywordBoost:  0.5,
			LikeWeight:    0.1,
			DislikeWeight: 0.1,
			WindowDays:    30,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Feeds: []FeedSeed{
			{URL: "https://feeds.bbci.co.uk/news/rss.xml", Category: "world"},
			{URL: "https://rss.cnn.com/rss/edition.rss", Category: "world"},
			{URL: "https://feeds.reuters.com/reuters/topNews", Category: "world"},
			{URL: "https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml", Category: "world"},
			{URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "technology"},
			{URL: "https://feeds.feedburner.com/TechCrunch", Category: "technology"},
			{URL: "https://www.theverge.com/rss/index.xml", Category: "technology"},
		},
	}
}
