package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"daytrader-systemv1/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Angel One credentials
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Order confirmation
	ConfirmToken string

	// Trading defaults
	InvestAmount float64 // rupee budget per position
	TPPct        float64
	SLPct        float64
	ScanInterval string // broker candle interval for scans
	ScanBars     int
	Watchlist    string // comma-separated symbols; empty means NIFTY 50

	MonitorInterval time.Duration
	QuoteMaxAge     time.Duration

	// Execution
	PaperMode   bool    // simulate fills instead of placing real orders
	SlippageBps float64 // paper-mode slippage in basis points

	// Risk limits (zero disables a check)
	RiskMaxQty       int64
	RiskMaxOpenPos   int
	RiskMaxExposure  float64
	RiskMaxDailyLoss float64

	// Infrastructure
	HTTPAddr      string
	MetricsAddr   string
	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	// Notifications (optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
// Missing credentials are fatal; everything else defaults.
func Load() *Config {
	return &Config{
		AngelAPIKey:     mustEnv("ANGEL_API_KEY"),
		AngelClientCode: mustEnv("ANGEL_CLIENT_CODE"),
		AngelPassword:   mustEnv("ANGEL_PASSWORD"),
		AngelTOTPSecret: mustEnv("ANGEL_TOTP_SECRET"),

		ConfirmToken: mustEnv("CONFIRM_TOKEN"),

		InvestAmount: getFloat("INVEST_AMOUNT", 10000),
		TPPct:        getFloat("TP_PCT", 0.8),
		SLPct:        getFloat("SL_PCT", 0.4),
		ScanInterval: getEnv("SCAN_INTERVAL", "FIVE_MINUTE"),
		ScanBars:     getInt("SCAN_BARS", 120),
		Watchlist:    getEnv("WATCHLIST", ""),

		MonitorInterval: getDuration("MONITOR_INTERVAL", 5*time.Second),
		QuoteMaxAge:     getDuration("QUOTE_MAX_AGE", 5*time.Second),

		PaperMode:   getBool("PAPER_MODE", false),
		SlippageBps: getFloat("SLIPPAGE_BPS", 5),

		RiskMaxQty:       int64(getInt("RISK_MAX_QTY", 500)),
		RiskMaxOpenPos:   getInt("RISK_MAX_OPEN_POSITIONS", 5),
		RiskMaxExposure:  getFloat("RISK_MAX_EXPOSURE", 100000),
		RiskMaxDailyLoss: getFloat("RISK_MAX_DAILY_LOSS", 5000),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/trades.db"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// Symbols returns the configured watchlist, defaulting to NIFTY 50.
func (c *Config) Symbols() []string {
	if strings.TrimSpace(c.Watchlist) == "" {
		return model.Nifty50
	}
	parts := strings.Split(c.Watchlist, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
