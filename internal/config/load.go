package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by Load when the corresponding field is omitted or zero.
const (
	DefaultFeedLimit      = 6
	DefaultMinAge         = 10 * time.Minute
	DefaultFeedTimeout    = 15 * time.Second
	DefaultSendTimeout    = 30 * time.Second
	DefaultMaxProcessed   = 200
	DefaultMessageDelay   = 1 * time.Second
	DefaultStateDir       = "./state"
	DefaultParseMode      = "HTML"
	defaultCanvasWidth    = 1080
	defaultCanvasHeight   = 1080
	defaultFontSize       = 56
	defaultPadding        = 96
	defaultLineSpacing    = 1.35
	defaultTextColor      = "#ffffff"
	defaultFallbackColor  = "#1f2430"
	defaultDimOpacity     = 0.35
)

// Env override keys. Credentials usually come from the environment so the
// config file can be committed without secrets.
const (
	EnvTelegramToken  = "INSIGHTBOT_TELEGRAM_TOKEN"
	EnvTelegramChatID = "INSIGHTBOT_TELEGRAM_CHAT_ID"
	EnvFeedBaseURL    = "INSIGHTBOT_FEED_BASE_URL"
)

// Load reads, strictly decodes, defaults, and validates the config file.
//
// A validation failure here is the only configuration-class fatal error in
// the program: it happens before any network call and exits non-zero.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	jsonBytes, format, err := toJSON(path, data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s config %s: %w", format, path, err)
	}

	applyEnv(&cfg)
	if err := finalize(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFeedBaseURL)); v != "" {
		cfg.Feed.BaseURL = v
	}
}

// finalize fills defaults, parses duration strings, and validates.
func finalize(cfg *Config) error {
	var err error

	if cfg.Feed.Limit <= 0 {
		cfg.Feed.Limit = DefaultFeedLimit
	}
	if cfg.Feed.InsightBaseURL == "" {
		cfg.Feed.InsightBaseURL = cfg.Feed.BaseURL
	}
	if cfg.Feed.MinAgeDur, err = durationField("feed.min_age", cfg.Feed.MinAge, DefaultMinAge); err != nil {
		return err
	}
	if cfg.Feed.TimeoutDur, err = durationField("feed.timeout", cfg.Feed.Timeout, DefaultFeedTimeout); err != nil {
		return err
	}

	if cfg.Telegram.ParseMode == "" {
		cfg.Telegram.ParseMode = DefaultParseMode
	}
	if cfg.Telegram.TimeoutDur, err = durationField("telegram.timeout", cfg.Telegram.Timeout, DefaultSendTimeout); err != nil {
		return err
	}

	if cfg.State.Driver == "" {
		cfg.State.Driver = "file"
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = DefaultStateDir
	}
	if cfg.State.MaxProcessed <= 0 {
		cfg.State.MaxProcessed = DefaultMaxProcessed
	}
	if cfg.State.BusyTimeoutDur, err = durationField("state.busy_timeout", cfg.State.BusyTimeout, 0); err != nil {
		return err
	}

	if cfg.Delivery.MessageDelayDur, err = durationField("delivery.message_delay", cfg.Delivery.MessageDelay, DefaultMessageDelay); err != nil {
		return err
	}

	if cfg.Render.CanvasWidth <= 0 {
		cfg.Render.CanvasWidth = defaultCanvasWidth
	}
	if cfg.Render.CanvasHeight <= 0 {
		cfg.Render.CanvasHeight = defaultCanvasHeight
	}
	if cfg.Render.FontSize <= 0 {
		cfg.Render.FontSize = defaultFontSize
	}
	if cfg.Render.Padding <= 0 {
		cfg.Render.Padding = defaultPadding
	}
	if cfg.Render.LineSpacing <= 0 {
		cfg.Render.LineSpacing = defaultLineSpacing
	}
	if cfg.Render.TextColor == "" {
		cfg.Render.TextColor = defaultTextColor
	}
	if cfg.Render.FallbackBackground == "" {
		cfg.Render.FallbackBackground = defaultFallbackColor
	}
	if cfg.Render.DimOpacity <= 0 || cfg.Render.DimOpacity > 1 {
		cfg.Render.DimOpacity = defaultDimOpacity
	}

	return validate(cfg)
}

func validate(cfg *Config) error {
	var problems []string
	if strings.TrimSpace(cfg.Feed.BaseURL) == "" {
		problems = append(problems, "feed.base_url is required")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		problems = append(problems, "telegram.token is required (or "+EnvTelegramToken+")")
	}
	if cfg.Telegram.ChatID == 0 {
		problems = append(problems, "telegram.chat_id is required (or "+EnvTelegramChatID+")")
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}
