package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TradePilot/pkg/util"
)

// Trading modes select both the monitor intervals and the active strategy set.
const (
	ModeShortTerm = "short_term"
	ModeLongTerm  = "long_term"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Trading     TradingConfig    `yaml:"trading"`
	Strategies  StrategySets     `yaml:"strategies"`
	Risk        RiskConfig       `yaml:"risk"`
	Escalation  EscalationConfig `yaml:"escalation"`
	Log         LogConfig        `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		OrderRatePerSec float64       `yaml:"order_rate_per_sec" default:"2" validate:"gt=0"`
		OrderBurst      int           `yaml:"order_burst" default:"5" validate:"gte=1"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"tradepilot"`
	} `yaml:"redis"`
	Cache struct {
		MaxSize int `yaml:"max_size" default:"10000"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		AlertsTopic  string        `yaml:"alerts_topic" default:"tradepilot.alerts"`
		OrdersTopic  string        `yaml:"orders_topic" default:"tradepilot.orders"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"200ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"tradepilot"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Journal struct {
		Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=clickhouse sqlite none"`
		SQLitePath string `yaml:"sqlite_path" default:"tradepilot.db"`
	} `yaml:"journal"`
	Finnhub struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		MaxSnapshotAge time.Duration `yaml:"max_snapshot_age" default:"5m"`
	} `yaml:"finnhub"`
	Analytics struct {
		AnomalyURL      string        `yaml:"anomaly_url"`
		DeepAnalysisURL string        `yaml:"deep_analysis_url"`
		SentimentURL    string        `yaml:"sentiment_url"`
		NewsURL         string        `yaml:"news_url"`
		Timeout         time.Duration `yaml:"timeout" default:"5s"`
		RatePerSec      float64       `yaml:"rate_per_sec" default:"10"`
		Burst           int           `yaml:"burst" default:"5"`
	} `yaml:"analytics"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
}

type TradingConfig struct {
	Mode                 string        `yaml:"mode" default:"short_term" validate:"oneof=short_term long_term"`
	Symbols              []string      `yaml:"symbols" validate:"required,min=1,dive,required"`
	DryRun               bool          `yaml:"dry_run" default:"true"`
	MinConfidence        float64       `yaml:"min_confidence" default:"0.6" validate:"gte=0,lte=1"`
	RequireMultiStrategy bool          `yaml:"require_multi_strategy" default:"true"`
	ExecutionConfidence  float64       `yaml:"execution_confidence" default:"0.7" validate:"gte=0,lte=1"`
	MaxConcurrency       int           `yaml:"max_concurrency" default:"8" validate:"gte=1"`
	CycleBudget          time.Duration `yaml:"cycle_budget" default:"500ms"`
	SignalHistorySize    int           `yaml:"signal_history_size" default:"1000" validate:"gte=1"`
	StopTimeout          time.Duration `yaml:"stop_timeout" default:"10s"`
}

// StrategyConfig configures one strategy of a mode set.
type StrategyConfig struct {
	Name    string             `yaml:"name" validate:"required"`
	Enabled bool               `yaml:"enabled"`
	Weight  float64            `yaml:"weight" validate:"gte=0"`
	Params  map[string]float64 `yaml:"params"`
}

type StrategySets struct {
	ShortTerm []StrategyConfig `yaml:"short_term" validate:"dive"`
	LongTerm  []StrategyConfig `yaml:"long_term" validate:"dive"`
}

type RiskConfig struct {
	PositionSizeUSD      float64 `yaml:"position_size_usd" default:"1000" validate:"gt=0"`
	MaxOpenPositions     int     `yaml:"max_open_positions" default:"5" validate:"gte=1"`
	DefaultStopLossPct   float64 `yaml:"default_stop_loss_pct" default:"0.03" validate:"gte=0,lt=1"`
	DefaultTakeProfitPct float64 `yaml:"default_take_profit_pct" default:"0.06" validate:"gte=0"`
}

type EscalationConfig struct {
	Workers   int           `yaml:"workers" default:"4" validate:"gte=1"`
	QueueSize int           `yaml:"queue_size" default:"32" validate:"gte=1"`
	Timeout   time.Duration `yaml:"timeout" default:"30s"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

// Intervals are the monitor periods for one trading mode.
type Intervals struct {
	Market        time.Duration
	News          time.Duration
	Announcements time.Duration
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, then applies defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

// decode applies struct defaults first so YAML values, including explicit
// false booleans, take precedence over them.
func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, and environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRADING_MODE"); v != "" {
		c.Trading.Mode = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Trading.Symbols = splitList(v)
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trading.DryRun = b
		}
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// finalize normalizes symbols, fills the default strategy sets and validates.
func (c *Config) finalize() error {
	c.Trading.Symbols = util.NormalizeSymbols(c.Trading.Symbols)
	if len(c.Strategies.ShortTerm) == 0 {
		c.Strategies.ShortTerm = DefaultShortTermStrategies()
	}
	if len(c.Strategies.LongTerm) == 0 {
		c.Strategies.LongTerm = DefaultLongTermStrategies()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks struct tags plus cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// Intervals returns the monitor intervals for the configured trading mode.
func (c *Config) Intervals() Intervals {
	return IntervalsFor(c.Trading.Mode)
}

// IntervalsFor maps a trading mode to its monitor intervals.
func IntervalsFor(mode string) Intervals {
	if mode == ModeLongTerm {
		return Intervals{Market: 15 * time.Second, News: time.Hour, Announcements: time.Hour}
	}
	return Intervals{Market: 5 * time.Second, News: 15 * time.Minute, Announcements: 15 * time.Minute}
}

// StrategySet returns the strategy configs of the active mode.
func (c *Config) StrategySet() []StrategyConfig {
	if c.Trading.Mode == ModeLongTerm {
		return c.Strategies.LongTerm
	}
	return c.Strategies.ShortTerm
}

func DefaultShortTermStrategies() []StrategyConfig {
	return []StrategyConfig{
		{Name: "breakout", Enabled: true, Weight: 1.2},
		{Name: "ma_cross", Enabled: true, Weight: 1.0},
		{Name: "momentum_reversal", Enabled: true, Weight: 1.0},
		{Name: "order_flow_anomaly", Enabled: true, Weight: 0.8},
		{Name: "news_momentum", Enabled: true, Weight: 0.8},
	}
}

func DefaultLongTermStrategies() []StrategyConfig {
	return []StrategyConfig{
		{Name: "trend_following", Enabled: true, Weight: 1.5},
		{Name: "mean_reversion", Enabled: true, Weight: 1.0},
		{Name: "momentum", Enabled: true, Weight: 1.0},
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
