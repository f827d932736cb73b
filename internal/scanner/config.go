package scanner

import (
	"log"
	"strings"
	"time"

	"crosswatch/config"
	"crosswatch/internal/alert"
	"crosswatch/internal/indicator"
	"crosswatch/internal/model"
)

// Refresh cadence bounds in seconds. The provider rate-limits aggressive
// polling, so the floor is part of the contract.
const (
	MinRefreshSec = 30
	MaxRefreshSec = 300
)

// Config holds all env-parsed configuration for the scanner service.
type Config struct {
	Symbols    []string
	Interval   model.Interval
	RefreshSec int
	SkipClosed bool
	MACD       indicator.MACDConfig

	Policy         alert.Policy
	NotifyChannels []string

	// SMTP / email alerting
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	AlertRecipients []string

	// Telegram / webhook alerting
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string

	// Quote provider
	ProviderBaseURL    string
	ProviderTimeoutSec int
	ProviderDebug      bool

	// Redis publishing (optional)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SQLite archive (optional)
	SQLiteEnabled       bool
	SQLitePath          string
	SQLiteRetentionDays int // bars older than this are pruned at startup; 0 keeps everything

	MetricsAddr string // "" disables the metrics server
	APIAddr     string // "" disables the control API
	TOTPSecret  string // "" disables POST /refresh
}

// LoadConfig reads all environment variables and returns a Config.
// A YAML watchlist (WATCHLIST_PATH) overrides the TICKERS list and may
// override the alert policy.
func LoadConfig() Config {
	cfg := Config{
		Symbols:    config.GetEnvList("TICKERS", []string{"AAPL", "MSFT", "NVDA"}),
		RefreshSec: config.ClampInt("REFRESH_SEC", config.GetEnvInt("REFRESH_SEC", 60), MinRefreshSec, MaxRefreshSec),
		SkipClosed: config.GetEnvBool("SKIP_CLOSED", false),

		NotifyChannels: config.GetEnvList("NOTIFY_CHANNELS", []string{"log"}),

		SMTPHost:        config.GetEnv("SMTP_HOST", ""),
		SMTPPort:        config.GetEnvInt("SMTP_PORT", 465),
		SMTPUsername:    config.GetEnv("SMTP_USERNAME", ""),
		SMTPPassword:    config.GetEnv("SMTP_PASSWORD", ""),
		AlertRecipients: config.GetEnvList("ALERT_RECIPIENT", nil),

		TelegramToken:  config.GetEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: config.GetEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     config.GetEnv("WEBHOOK_URL", ""),

		ProviderBaseURL:    config.GetEnv("PROVIDER_BASE_URL", ""),
		ProviderTimeoutSec: config.GetEnvInt("PROVIDER_TIMEOUT_SEC", 10),
		ProviderDebug:      config.GetEnvBool("PROVIDER_DEBUG", false),

		RedisEnabled:  config.GetEnvBool("REDIS_ENABLED", false),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),

		SQLiteEnabled:       config.GetEnvBool("SQLITE_ENABLED", false),
		SQLitePath:          config.GetEnv("SQLITE_PATH", "data/crosswatch.db"),
		SQLiteRetentionDays: config.GetEnvInt("SQLITE_RETENTION_DAYS", 30),

		MetricsAddr: config.GetEnv("METRICS_ADDR", ":9090"),
		APIAddr:     config.GetEnv("SCAN_API_ADDR", ":9096"),
		TOTPSecret:  config.GetEnv("SCAN_TOTP_SECRET", ""),
	}

	iv, err := model.ParseInterval(config.GetEnv("BAR_INTERVAL", string(model.Interval5m)))
	if err != nil {
		log.Printf("[scanner] %v, using %s", err, model.Interval5m)
		iv = model.Interval5m
	}
	cfg.Interval = iv

	cfg.MACD = loadMACDConfig()

	cfg.Policy = alert.Policy{
		Enabled:  config.GetEnvBool("ALERTS_ENABLED", true),
		EmitOn:   parseEmitOn(config.GetEnvList("ALERT_EMIT_ON", nil)),
		FireOnce: config.GetEnvBool("ALERT_FIRE_ONCE", false),
	}

	if path := config.GetEnv("WATCHLIST_PATH", ""); path != "" {
		wl, err := LoadWatchlist(path)
		if err != nil {
			log.Printf("[scanner] WARNING: %v (keeping TICKERS list)", err)
		} else {
			cfg.applyWatchlist(wl, config.GetEnv("WATCHLIST_GROUP", ""))
		}
	}

	return cfg
}

// loadMACDConfig reads the span settings. Fast must stay below slow;
// an inverted pair falls back to the 12/26 defaults.
func loadMACDConfig() indicator.MACDConfig {
	mc := indicator.MACDConfig{
		Fast:   config.GetEnvInt("MACD_FAST", indicator.DefaultMACD.Fast),
		Slow:   config.GetEnvInt("MACD_SLOW", indicator.DefaultMACD.Slow),
		Signal: config.GetEnvInt("MACD_SIGNAL", indicator.DefaultMACD.Signal),
	}
	mc = mc.Normalize()
	if mc.Fast >= mc.Slow {
		log.Printf("[scanner] MACD fast span %d >= slow span %d, using defaults %d/%d",
			mc.Fast, mc.Slow, indicator.DefaultMACD.Fast, indicator.DefaultMACD.Slow)
		mc.Fast = indicator.DefaultMACD.Fast
		mc.Slow = indicator.DefaultMACD.Slow
	}
	return mc
}

// parseEmitOn maps ALERT_EMIT_ON entries to crossover kinds. Only the
// directional kinds are emit-worthy; anything else is skipped with a log.
func parseEmitOn(items []string) []model.Cross {
	var out []model.Cross
	for _, item := range items {
		switch model.Cross(strings.ToUpper(strings.TrimSpace(item))) {
		case model.CrossBuy:
			out = append(out, model.CrossBuy)
		case model.CrossSell:
			out = append(out, model.CrossSell)
		default:
			log.Printf("[scanner] skipping unknown ALERT_EMIT_ON value %q", item)
		}
	}
	return out // nil means "default set", resolved by Policy.Normalize
}

// applyWatchlist folds the YAML watchlist into the config. File symbols
// replace the env list when the file yields any.
func (c *Config) applyWatchlist(wl *Watchlist, group string) {
	if syms := wl.Resolve(group); len(syms) > 0 {
		c.Symbols = syms
	}
	if wl.Alerts == nil {
		return
	}
	if wl.Alerts.Enabled != nil {
		c.Policy.Enabled = *wl.Alerts.Enabled
	}
	if len(wl.Alerts.EmitOn) > 0 {
		c.Policy.EmitOn = parseEmitOn(wl.Alerts.EmitOn)
	}
	if wl.Alerts.FireOnce != nil {
		c.Policy.FireOnce = *wl.Alerts.FireOnce
	}
}

// RefreshInterval returns the cycle cadence as a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSec) * time.Second
}
