package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/taengine/indicators"
	"github.com/rustyeddy/taengine/market"
)

// Config represents the complete run configuration
type Config struct {
	Run        RunConfig         `json:"run" yaml:"run"`
	Strategy   StrategyConfig    `json:"strategy" yaml:"strategy"`
	Indicators []IndicatorConfig `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	Journal    JournalConfig     `json:"journal" yaml:"journal"`
	Log        LogConfig         `json:"log" yaml:"log"`
	Metrics    MetricsConfig     `json:"metrics" yaml:"metrics"`
}

// RunConfig says what data a run replays
type RunConfig struct {
	Name string `json:"name" yaml:"name"`
	Data string `json:"data" yaml:"data"` // bar CSV
	// From and To optionally bound the replay, RFC3339
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
	// Benchmark is the default benchmark instrument for CAPM
	Benchmark string `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
	// Depth is the history each series starts with; 0 means the engine default
	Depth int `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// StrategyConfig selects the built-in strategy
type StrategyConfig struct {
	Type       string `json:"type" yaml:"type"` // "ema-cross" or "none"
	Instrument string `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	FastPeriod int    `json:"fast_period,omitempty" yaml:"fast_period,omitempty"`
	SlowPeriod int    `json:"slow_period,omitempty" yaml:"slow_period,omitempty"`
}

// IndicatorConfig is one registry formula evaluated on every bar
type IndicatorConfig struct {
	Name       string             `json:"name" yaml:"name"` // prefix of emitted value names
	Type       string             `json:"type" yaml:"type"` // registry formula, e.g. "EMA"
	Instrument string             `json:"instrument" yaml:"instrument"`
	Input      string             `json:"input,omitempty" yaml:"input,omitempty"` // open|high|low|close|volume
	Benchmark  string             `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
	Params     map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// Field returns the input field, close by default.
func (ic IndicatorConfig) Field() (market.Field, error) {
	if ic.Input == "" {
		return market.Close, nil
	}
	return market.ParseField(strings.ToLower(ic.Input))
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "none", "csv", "sqlite" or "redis"
	ValuesFile    string `json:"values_file,omitempty" yaml:"values_file,omitempty"`
	RunsFile      string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	Stream        string `json:"stream,omitempty" yaml:"stream,omitempty"`
	MaxLen        int64  `json:"max_len,omitempty" yaml:"max_len,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // console or json
}

// MetricsConfig names a Prometheus textfile written when the run ends
type MetricsConfig struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Range returns the parsed run.from and run.to; zero when unset.
func (r RunConfig) Range() (from, to time.Time, err error) {
	if r.From != "" {
		if from, err = time.Parse(time.RFC3339, r.From); err != nil {
			return from, to, fmt.Errorf("run.from: %w", err)
		}
	}
	if r.To != "" {
		if to, err = time.Parse(time.RFC3339, r.To); err != nil {
			return from, to, fmt.Errorf("run.to: %w", err)
		}
	}
	return from, to, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Run.Data == "" {
		return fmt.Errorf("run.data is required")
	}
	if c.Run.Depth < 0 {
		return fmt.Errorf("run.depth must not be negative")
	}
	from, to, err := c.Run.Range()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fmt.Errorf("run.from must be before run.to")
	}

	switch c.Strategy.Type {
	case "", "none":
	case "ema-cross":
		if c.Strategy.Instrument == "" {
			return fmt.Errorf("strategy.instrument is required for ema-cross")
		}
		if c.Strategy.FastPeriod <= 0 || c.Strategy.SlowPeriod <= 0 {
			return fmt.Errorf("strategy fast_period and slow_period must be positive")
		}
		if c.Strategy.FastPeriod >= c.Strategy.SlowPeriod {
			return fmt.Errorf("strategy.fast_period must be less than slow_period")
		}
	default:
		return fmt.Errorf("strategy.type must be 'ema-cross' or 'none'")
	}

	if err := c.validateIndicators(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.ValuesFile == "" || c.Journal.RunsFile == "" {
			return fmt.Errorf("journal values_file and runs_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "redis":
		if c.Journal.RedisAddr == "" {
			return fmt.Errorf("journal redis_addr required for Redis type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv', 'sqlite' or 'redis'")
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if f := c.Log.Format; f != "" && f != "console" && f != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

func (c *Config) validateIndicators() error {
	reg := indicators.Default()
	seen := make(map[string]bool)
	for i, ic := range c.Indicators {
		if ic.Name == "" {
			return fmt.Errorf("indicators[%d].name is required", i)
		}
		if seen[ic.Name] {
			return fmt.Errorf("indicators[%d]: duplicate name %q", i, ic.Name)
		}
		seen[ic.Name] = true

		f, ok := reg.Lookup(ic.Type)
		if !ok {
			return fmt.Errorf("indicators[%d] %s: unknown type %q", i, ic.Name, ic.Type)
		}
		if ic.Instrument == "" {
			return fmt.Errorf("indicators[%d] %s: instrument is required", i, ic.Name)
		}
		if _, err := ic.Field(); err != nil {
			return fmt.Errorf("indicators[%d] %s: %w", i, ic.Name, err)
		}
		if f.NeedsBenchmark && ic.Benchmark == "" && c.Run.Benchmark == "" {
			return fmt.Errorf("indicators[%d] %s: %s needs a benchmark", i, ic.Name, f.Name)
		}
		if _, err := f.Resolve(ic.Params); err != nil {
			return fmt.Errorf("indicators[%d] %s: %w", i, ic.Name, err)
		}
	}
	return nil
}

// Env holds the TAENGINE_* overrides.
type Env struct {
	Data          string `envconfig:"DATA"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogFormat     string `envconfig:"LOG_FORMAT"`
	Journal       string `envconfig:"JOURNAL"`
	DBPath        string `envconfig:"DB_PATH"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	MetricsFile   string `envconfig:"METRICS_FILE"`
}

// ApplyEnv overrides c with TAENGINE_* environment variables, after
// loading the given dotenv files (".env" when none are named). Missing
// dotenv files are ignored.
func (c *Config) ApplyEnv(dotenv ...string) error {
	_ = godotenv.Load(dotenv...)

	var e Env
	if err := envconfig.Process("TAENGINE", &e); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Run.Data, e.Data)
	set(&c.Log.Level, e.LogLevel)
	set(&c.Log.Format, e.LogFormat)
	set(&c.Journal.Type, e.Journal)
	set(&c.Journal.DBPath, e.DBPath)
	set(&c.Journal.RedisAddr, e.RedisAddr)
	set(&c.Journal.RedisPassword, e.RedisPassword)
	set(&c.Metrics.File, e.MetricsFile)
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Name:      "demo",
			Data:      "./data/bars.csv",
			Benchmark: "SPY",
		},
		Strategy: StrategyConfig{
			Type:       "ema-cross",
			Instrument: "SPY",
			FastPeriod: 12,
			SlowPeriod: 26,
		},
		Indicators: []IndicatorConfig{
			{Name: "rsi", Type: "RSI", Instrument: "SPY", Params: map[string]float64{"period": 14}},
			{Name: "macd", Type: "MACD", Instrument: "SPY"},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./taengine.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
