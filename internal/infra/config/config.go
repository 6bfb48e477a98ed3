package config

// Configuration layering, lowest priority first:
// 1. defaults
// 2. config.yaml
// 3. .env file
// 4. process environment (explicit aliases + AutomaticEnv)
// 5. command-line flags that were set

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ErrMissingCredential is returned by Validate when a required secret is absent.
var ErrMissingCredential = errors.New("missing required credential")

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Store    StoreConfig    `mapstructure:"store"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	App      AppConfig      `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"` // redis, postgres or memory
	RedisURL      string `mapstructure:"redis_url"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"` // optional signal archive
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type SourcesConfig struct {
	CovalentKey        string  `mapstructure:"covalent_key"`
	CovalentBaseURL    string  `mapstructure:"covalent_base_url"`
	DexscreenerBaseURL string  `mapstructure:"dexscreener_base_url"`
	RequestTimeout     int     `mapstructure:"request_timeout"` // seconds
	MaxRetries         int     `mapstructure:"max_retries"`
	RatePerSecond      float64 `mapstructure:"rate_per_second"`
	MaxResponseSize    int64   `mapstructure:"max_response_size"`
}

type MonitorConfig struct {
	PollSeconds            int      `mapstructure:"poll_seconds"`
	MinTradeUSD            float64  `mapstructure:"min_trade_usd"`
	MinLiquidityUSD        float64  `mapstructure:"min_liquidity_usd"`
	MinStars               int      `mapstructure:"min_stars"`
	TopWalletsCount        int      `mapstructure:"top_wallets_count"`
	ActivityPageSize       int      `mapstructure:"activity_page_size"`
	ActivityLookback       int      `mapstructure:"activity_lookback"`
	WhaleWindowHours       int      `mapstructure:"whale_window_hours"`
	Concurrency            int      `mapstructure:"concurrency"`
	MemoizeMarketData      bool     `mapstructure:"memoize_market_data"`
	RefreshSchedule        string   `mapstructure:"refresh_schedule"`
	SeedWallets            []string `mapstructure:"seed_wallets"` // address:chainId:roi:winrate
	SeedFile               string   `mapstructure:"seed_file"`
	BlacklistFile          string   `mapstructure:"blacklist_file"`
	FailureCooldownMinutes int      `mapstructure:"failure_cooldown_minutes"`
}

type AppConfig struct {
	LogDir      string `mapstructure:"log_dir"`
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Requirements selects which credentials Validate insists on.
type Requirements struct {
	Telegram bool
	Activity bool
}

// Load reads the configuration. flags may be nil; only flags that were set
// on the command line override lower layers.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := setupEnvAliases(v); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// SEED_WALLETS arrives as one comma-separated string from the env,
	// as a list from YAML.
	cfg.Monitor.SeedWallets = stringList(v.Get("monitor.seed_wallets"))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) error {
	aliases := map[string]string{
		"telegram.bot_token":               "BOT_TOKEN",
		"telegram.chat_id":                 "CHAT_ID",
		"store.driver":                     "STORE_DRIVER",
		"store.redis_url":                  "REDIS_URL",
		"store.postgres_dsn":               "POSTGRES_DSN",
		"store.clickhouse_dsn":             "CLICKHOUSE_DSN",
		"sources.covalent_key":             "COVALENT_KEY",
		"monitor.poll_seconds":             "POLL_SECONDS",
		"monitor.min_trade_usd":            "MIN_TRADE_USD",
		"monitor.min_liquidity_usd":        "MIN_LIQ_USD",
		"monitor.min_stars":                "MIN_STARS",
		"monitor.top_wallets_count":        "TOP_WALLETS_COUNT",
		"monitor.refresh_schedule":         "REFRESH_SCHEDULE",
		"monitor.seed_wallets":             "SEED_WALLETS",
		"monitor.seed_file":                "SEED_FILE",
		"monitor.blacklist_file":           "BLACKLIST_FILE",
		"monitor.concurrency":              "MONITOR_CONCURRENCY",
		"monitor.failure_cooldown_minutes": "FAILURE_COOLDOWN_MINUTES",
		"app.log_dir":                      "LOG_DIR",
		"app.log_level":                    "LOG_LEVEL",
		"app.metrics_addr":                 "METRICS_ADDR",
	}
	for key, env := range aliases {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")

	v.SetDefault("store.driver", "redis")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.clickhouse_dsn", "")
	v.SetDefault("store.key_prefix", "sm:")

	v.SetDefault("sources.covalent_key", "")
	v.SetDefault("sources.covalent_base_url", "https://api.covalenthq.com")
	v.SetDefault("sources.dexscreener_base_url", "https://api.dexscreener.com")
	v.SetDefault("sources.request_timeout", 20)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.rate_per_second", 4.0)
	v.SetDefault("sources.max_response_size", 10*1024*1024)

	v.SetDefault("monitor.poll_seconds", 60)
	v.SetDefault("monitor.min_trade_usd", 1000.0)
	v.SetDefault("monitor.min_liquidity_usd", 500000.0)
	v.SetDefault("monitor.min_stars", 3)
	v.SetDefault("monitor.top_wallets_count", 30)
	v.SetDefault("monitor.activity_page_size", 20)
	v.SetDefault("monitor.activity_lookback", 5)
	v.SetDefault("monitor.whale_window_hours", 24)
	v.SetDefault("monitor.concurrency", 4)
	v.SetDefault("monitor.memoize_market_data", true)
	v.SetDefault("monitor.refresh_schedule", "@daily")
	v.SetDefault("monitor.seed_wallets", []string{})
	v.SetDefault("monitor.seed_file", "data/seed_wallets.json")
	v.SetDefault("monitor.blacklist_file", "data/blacklisted_tokens.json")
	v.SetDefault("monitor.failure_cooldown_minutes", 10)

	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.log_level", "debug")
	v.SetDefault("app.metrics_addr", "")
}

// RegisterFlags adds the overridable settings to a command's flag set.
// Flag names are the viper keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("store.driver", "redis", "Store backend: redis, postgres or memory (env: STORE_DRIVER)")
	fs.String("store.redis_url", "redis://localhost:6379/0", "Redis URL (env: REDIS_URL)")
	fs.String("store.postgres_dsn", "", "PostgreSQL DSN (env: POSTGRES_DSN)")
	fs.Int("monitor.poll_seconds", 60, "Seconds between monitor passes (env: POLL_SECONDS)")
	fs.Float64("monitor.min_trade_usd", 1000, "Minimum approximate buy volume in USD (env: MIN_TRADE_USD)")
	fs.Float64("monitor.min_liquidity_usd", 500000, "Minimum token liquidity in USD (env: MIN_LIQ_USD)")
	fs.Int("monitor.top_wallets_count", 30, "Watchlist size (env: TOP_WALLETS_COUNT)")
	fs.String("app.log_level", "debug", "File log level (env: LOG_LEVEL)")
	fs.String("app.metrics_addr", "", "Serve Prometheus metrics on this address, e.g. :9102 (env: METRICS_ADDR)")
}

// Validate checks required credentials and numeric sanity.
func (c *Config) Validate(req Requirements) error {
	if req.Telegram {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("%w: BOT_TOKEN (telegram.bot_token)", ErrMissingCredential)
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("%w: CHAT_ID (telegram.chat_id)", ErrMissingCredential)
		}
		if _, err := c.ChatID(); err != nil {
			return err
		}
	}
	if req.Activity && c.Sources.CovalentKey == "" {
		return fmt.Errorf("%w: COVALENT_KEY (sources.covalent_key)", ErrMissingCredential)
	}

	switch c.Store.Driver {
	case "redis", "memory":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for the postgres store", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	m := c.Monitor
	switch {
	case m.PollSeconds <= 0:
		return fmt.Errorf("monitor.poll_seconds must be positive, got %d", m.PollSeconds)
	case m.ActivityLookback < 1 || m.ActivityPageSize < m.ActivityLookback:
		return fmt.Errorf("monitor.activity_page_size (%d) must be >= activity_lookback (%d) >= 1", m.ActivityPageSize, m.ActivityLookback)
	case m.Concurrency < 1:
		return fmt.Errorf("monitor.concurrency must be >= 1, got %d", m.Concurrency)
	case m.MinStars < 1 || m.MinStars > 5:
		return fmt.Errorf("monitor.min_stars must be within 1..5, got %d", m.MinStars)
	case m.WhaleWindowHours < 1 || m.WhaleWindowHours > 72:
		return fmt.Errorf("monitor.whale_window_hours must be within 1..72, got %d", m.WhaleWindowHours)
	case m.TopWalletsCount < 1:
		return fmt.Errorf("monitor.top_wallets_count must be >= 1, got %d", m.TopWalletsCount)
	}
	return nil
}

// ChatID parses the configured chat id.
func (c *Config) ChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid CHAT_ID %q: %w", c.Telegram.ChatID, err)
	}
	return id, nil
}

func (m MonitorConfig) PollInterval() time.Duration {
	return time.Duration(m.PollSeconds) * time.Second
}

func (m MonitorConfig) WhaleWindow() time.Duration {
	return time.Duration(m.WhaleWindowHours) * time.Hour
}

func (m MonitorConfig) FailureCooldown() time.Duration {
	return time.Duration(m.FailureCooldownMinutes) * time.Minute
}

func (s SourcesConfig) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// LogFields summarizes the configuration with secrets masked.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("bot_token", maskSecret(c.Telegram.BotToken)),
		zap.String("chat_id", c.Telegram.ChatID),
		zap.String("store", c.Store.Driver),
		zap.Bool("archive", c.Store.ClickhouseDSN != ""),
		zap.String("covalent_key", maskSecret(c.Sources.CovalentKey)),
		zap.Int("poll_seconds", c.Monitor.PollSeconds),
		zap.Float64("min_trade_usd", c.Monitor.MinTradeUSD),
		zap.Float64("min_liquidity_usd", c.Monitor.MinLiquidityUSD),
		zap.Int("top_wallets_count", c.Monitor.TopWalletsCount),
		zap.Int("seed_wallets", len(c.Monitor.SeedWallets)),
		zap.String("refresh_schedule", c.Monitor.RefreshSchedule),
	}
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func stringList(raw interface{}) []string {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
