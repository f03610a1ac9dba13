package config

import "time"

// Config is the full configuration surface.
//
// It is constructed once by Load (or reloaded by Manager in daemon mode)
// and passed by value into every component; nothing mutates it afterwards.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m") in the
// file; Load parses them into the corresponding *Dur fields.
type Config struct {
	Feed     FeedConfig     `json:"feed"`
	Telegram TelegramConfig `json:"telegram"`
	State    StateConfig    `json:"state,omitempty"`
	Delivery DeliveryConfig `json:"delivery,omitempty"`
	Render   RenderConfig   `json:"render,omitempty"`
	Schedule ScheduleConfig `json:"schedule,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// FeedConfig points at the upstream insight feed.
type FeedConfig struct {
	// BaseURL is the API root; items are fetched from <base>/items.
	BaseURL string `json:"base_url"`

	// InsightBaseURL is the public site root used to build per-item links
	// in outgoing messages. Defaults to BaseURL.
	InsightBaseURL string `json:"insight_base_url,omitempty"`

	// Limit is the number of most recent items requested per run.
	Limit int `json:"limit,omitempty"`

	// MinAge excludes items published too recently; upstream edits items
	// shortly after publication, so give them a grace window before we
	// deliver them irrevocably.
	MinAge  string `json:"min_age,omitempty"`
	Timeout string `json:"timeout,omitempty"`

	MinAgeDur  time.Duration `json:"-"`
	TimeoutDur time.Duration `json:"-"`
}

// TelegramConfig holds delivery credentials.
//
// Token and ChatID may also come from INSIGHTBOT_TELEGRAM_TOKEN and
// INSIGHTBOT_TELEGRAM_CHAT_ID; env wins over the file.
type TelegramConfig struct {
	Token     string `json:"token,omitempty"`
	ChatID    int64  `json:"chat_id,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
	Timeout   string `json:"timeout,omitempty"`

	TimeoutDur time.Duration `json:"-"`
}

// StateConfig controls the persistence layer.
//
// Driver values:
//   - "file": two human-readable JSON documents under Dir (default)
//   - "sqlite": SQLite database file (build with -tags sqlite)
type StateConfig struct {
	Driver       string `json:"driver,omitempty"`
	Dir          string `json:"dir,omitempty"`
	MaxProcessed int    `json:"max_processed,omitempty"`
	BusyTimeout  string `json:"busy_timeout,omitempty"` // sqlite only

	BusyTimeoutDur time.Duration `json:"-"`
}

// DeliveryConfig controls the send loop.
type DeliveryConfig struct {
	// MessageDelay is the fixed pause between successive deliveries
	// within one run, applied after failures as well as successes.
	MessageDelay string `json:"message_delay,omitempty"`

	// UseImageOverlay enables the composited-image representation.
	UseImageOverlay bool `json:"use_image_overlay,omitempty"`

	// LinkPreview toggles Telegram link previews on text messages.
	LinkPreview bool `json:"link_preview,omitempty"`

	MessageDelayDur time.Duration `json:"-"`
}

// RenderConfig holds typography/layout parameters for the composite overlay.
type RenderConfig struct {
	CanvasWidth  int     `json:"canvas_width,omitempty"`
	CanvasHeight int     `json:"canvas_height,omitempty"`
	FontSize     float64 `json:"font_size,omitempty"`
	Padding      float64 `json:"padding,omitempty"`
	LineSpacing  float64 `json:"line_spacing,omitempty"`
	TextColor    string  `json:"text_color,omitempty"`

	// FallbackBackground is used when an item carries no background
	// reference, or carries a color token instead of an image URL.
	FallbackBackground string `json:"fallback_background,omitempty"`

	// DimOpacity darkens image backgrounds so text stays readable.
	DimOpacity float64 `json:"dim_opacity,omitempty"`

	// FontFile is an optional TTF path; the embedded Go Regular face is
	// used when empty.
	FontFile string `json:"font_file,omitempty"`
}

// ScheduleConfig controls daemon mode.
//
// Spec accepts cron expressions ("*/10 * * * *", "@hourly") or intervals
// ("30m", "every:2h"). Empty means run once and exit.
type ScheduleConfig struct {
	Spec string `json:"spec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}
