package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"cryptobot/internal/model"
)

// Config stores all configuration for the bot.
// The values are read by viper from a key=value file, overridden by environment variables.
type Config struct {
	Telegram   TelegramConfig
	MarketData MarketDataConfig
	AI         AIConfig
	Schedule   ScheduleConfig
	Log        LogConfig

	Location      *time.Location
	HTTPTimeout   time.Duration
	Debug         bool
	StatusAddr    string
	DatabaseURL   string
	HistoryPoints int
}

// TelegramConfig defines the destination channel and bot credentials.
type TelegramConfig struct {
	BotToken string
	Channel  string
}

// MarketDataConfig defines the market-data API settings.
type MarketDataConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// AIConfig defines the summarization API settings.
type AIConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Timeout time.Duration
}

// ScheduleConfig defines the update and countdown periods.
type ScheduleConfig struct {
	UpdateInterval    time.Duration
	CountdownInterval time.Duration
}

// LogConfig defines the logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// fileConfig mirrors the raw keys; everything is read as text and converted in build.
type fileConfig struct {
	TelegramBotToken    string `mapstructure:"telegram_bot_token"`
	TelegramChannel     string `mapstructure:"telegram_channel"`
	CoinMarketCapAPIKey string `mapstructure:"coinmarketcap_api_key"`
	AIEnabled           string `mapstructure:"ai_enabled"`
	AIAPIKey            string `mapstructure:"ai_api_key"`
	UpdateIntervalMS    string `mapstructure:"update_interval_ms"`
	CountdownIntervalMS string `mapstructure:"countdown_interval_ms"`

	Timezone          string `mapstructure:"timezone"`
	LogLevel          string `mapstructure:"log_level"`
	LogFormat         string `mapstructure:"log_format"`
	Debug             string `mapstructure:"debug"`
	MarketDataBaseURL string `mapstructure:"market_data_base_url"`
	AIBaseURL         string `mapstructure:"ai_base_url"`
	AIModel           string `mapstructure:"ai_model"`
	AIReferer         string `mapstructure:"ai_referer"`
	HTTPTimeoutMS     string `mapstructure:"http_timeout_ms"`
	AITimeoutMS       string `mapstructure:"ai_timeout_ms"`
	StatusAddr        string `mapstructure:"status_addr"`
	DatabaseURL       string `mapstructure:"database_url"`
	HistoryPoints     string `mapstructure:"history_points"`
}

// RequiredKeys must be present and non-empty. AI_API_KEY may be empty when AI_ENABLED is false.
var RequiredKeys = []string{
	"TELEGRAM_BOT_TOKEN",
	"COINMARKETCAP_API_KEY",
	"TELEGRAM_CHANNEL",
	"AI_ENABLED",
	"AI_API_KEY",
	"UPDATE_INTERVAL_MS",
	"COUNTDOWN_INTERVAL_MS",
}

var defaults = map[string]string{
	"TIMEZONE":             "Europe/Amsterdam",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"DEBUG":                "false",
	"MARKET_DATA_BASE_URL": "https://pro-api.coinmarketcap.com",
	"AI_BASE_URL":          "https://openrouter.ai/api/v1",
	"AI_MODEL":             "meta-llama/llama-3.1-70b-instruct:free",
	"AI_REFERER":           "",
	"HTTP_TIMEOUT_MS":      "10000",
	"AI_TIMEOUT_MS":        "30000",
	"STATUS_ADDR":          "",
	"DATABASE_URL":         "",
	"HISTORY_POINTS":       "12",
}

// LoadConfig reads the key=value file at path. Environment variables with the same
// key names take precedence over file values.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	values, err := keyValueLines(f)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return load(values)
}

func load(values map[string]any) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(strings.ToLower(key), value)
	}
	for _, key := range append(append([]string{}, RequiredKeys...), defaultKeys()...) {
		if err := v.BindEnv(strings.ToLower(key)); err != nil {
			return Config{}, err
		}
	}

	if err := v.MergeConfigMap(values); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(v); err != nil {
		return Config{}, err
	}
	return build(raw)
}

// validate lists every missing required key before anything else is built.
func validate(v *viper.Viper) error {
	aiEnabled, _ := cast.ToBoolE(strings.TrimSpace(v.GetString("ai_enabled")))

	var missing []string
	for _, key := range RequiredKeys {
		if strings.TrimSpace(v.GetString(strings.ToLower(key))) != "" {
			continue
		}
		if key == "AI_API_KEY" && v.IsSet("ai_api_key") && !aiEnabled {
			continue
		}
		missing = append(missing, key)
	}
	if len(missing) > 0 {
		return &model.MissingKeysError{Keys: missing}
	}
	return nil
}

func build(raw fileConfig) (Config, error) {
	cfg := Config{
		Telegram: TelegramConfig{
			BotToken: strings.TrimSpace(raw.TelegramBotToken),
			Channel:  strings.TrimSpace(raw.TelegramChannel),
		},
		MarketData: MarketDataConfig{
			APIKey:  strings.TrimSpace(raw.CoinMarketCapAPIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(raw.MarketDataBaseURL), "/"),
		},
		AI: AIConfig{
			APIKey:  strings.TrimSpace(raw.AIAPIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(raw.AIBaseURL), "/"),
			Model:   strings.TrimSpace(raw.AIModel),
			Referer: strings.TrimSpace(raw.AIReferer),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(raw.LogLevel)),
			Format: strings.ToLower(strings.TrimSpace(raw.LogFormat)),
		},
		StatusAddr:  strings.TrimSpace(raw.StatusAddr),
		DatabaseURL: strings.TrimSpace(raw.DatabaseURL),
	}

	var err error
	if cfg.AI.Enabled, err = parseBool("AI_ENABLED", raw.AIEnabled); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = parseBool("DEBUG", raw.Debug); err != nil {
		return Config{}, err
	}
	if cfg.Schedule.UpdateInterval, err = parseMillis("UPDATE_INTERVAL_MS", raw.UpdateIntervalMS); err != nil {
		return Config{}, err
	}
	if cfg.Schedule.CountdownInterval, err = parseMillis("COUNTDOWN_INTERVAL_MS", raw.CountdownIntervalMS); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = parseMillis("HTTP_TIMEOUT_MS", raw.HTTPTimeoutMS); err != nil {
		return Config{}, err
	}
	cfg.MarketData.Timeout = cfg.HTTPTimeout
	if cfg.AI.Timeout, err = parseMillis("AI_TIMEOUT_MS", raw.AITimeoutMS); err != nil {
		return Config{}, err
	}

	cfg.HistoryPoints, err = cast.ToIntE(strings.TrimSpace(raw.HistoryPoints))
	if err != nil || cfg.HistoryPoints < 2 {
		return Config{}, fmt.Errorf("HISTORY_POINTS must be an integer >= 2, got %q", raw.HistoryPoints)
	}

	cfg.Location, err = time.LoadLocation(strings.TrimSpace(raw.Timezone))
	if err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}

	return cfg, nil
}

func defaultKeys() []string {
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	return keys
}

func parseBool(key, value string) (bool, error) {
	b, err := cast.ToBoolE(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, value)
	}
	return b, nil
}

func parseMillis(key, value string) (time.Duration, error) {
	ms, err := cast.ToIntE(strings.TrimSpace(value))
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of milliseconds, got %q", key, value)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// keyValueLines collects key=value lines, dropping blanks, comments and anything
// without a separator. Values are everything after the first "=", taken literally.
func keyValueLines(r io.Reader) (map[string]any, error) {
	values := make(map[string]any)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[strings.ToLower(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
