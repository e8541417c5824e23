package infra

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"trading_go/internal/domain"
)

// Config holds the settings for all four pipeline processes. Every process
// loads the same file so ports, symbols and the store name stay in agreement.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Gateway struct {
		Host                string             `yaml:"host"`
		PricePort           int                `yaml:"price_port"`
		SentimentPort       int                `yaml:"sentiment_port"`
		MonitorPort         int                `yaml:"monitor_port"` // 0 disables the websocket monitor
		TickIntervalMS      int                `yaml:"tick_interval_ms"`
		SentimentIntervalMS int                `yaml:"sentiment_interval_ms"`
		StepPct             float64            `yaml:"step_pct"` // random walk bound per tick
		HistoryCSV          string             `yaml:"history_csv"`
		Symbols             []string           `yaml:"symbols"`
		BasePrices          map[string]float64 `yaml:"base_prices"`
	} `yaml:"gateway"`

	Store struct {
		Name string `yaml:"name"`
	} `yaml:"store"`

	OrderManager struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		JournalPath string `yaml:"journal_path"`
	} `yaml:"order_manager"`

	Strategy struct {
		Name               string `yaml:"name"` // "ma_cross" or "sentiment"
		ShortWindow        int    `yaml:"short_window"`
		LongWindow         int    `yaml:"long_window"`
		SentimentThreshold int    `yaml:"sentiment_threshold"`
		Qty                int64  `yaml:"qty"`
		EvalIntervalMS     int    `yaml:"eval_interval_ms"`
		AckTimeoutMS       int    `yaml:"ack_timeout_ms"`
	} `yaml:"strategy"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// configErr builds the non-retriable ConfigError for one offending field.
func configErr(field, format string, args ...any) error {
	return &domain.ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if len(c.Gateway.Symbols) == 0 {
		return configErr("gateway.symbols", "at least one symbol is required")
	}
	for _, sym := range c.Gateway.Symbols {
		if sym == "" || len(sym) > 16 {
			return configErr("gateway.symbols", "invalid symbol %q (1-16 chars)", sym)
		}
	}

	ports := map[string]int{
		"gateway.price_port":     c.Gateway.PricePort,
		"gateway.sentiment_port": c.Gateway.SentimentPort,
		"order_manager.port":     c.OrderManager.Port,
	}
	seen := make(map[int]string)
	for field, port := range ports {
		if port <= 0 || port > 65535 {
			return configErr(field, "must be in 1-65535, got %d", port)
		}
		if prev, dup := seen[port]; dup {
			return configErr(field, "%s and %s share port %d", field, prev, port)
		}
		seen[port] = field
	}

	if c.Gateway.TickIntervalMS <= 0 {
		return configErr("gateway.tick_interval_ms", "must be positive")
	}
	if c.Gateway.SentimentIntervalMS <= 0 {
		return configErr("gateway.sentiment_interval_ms", "must be positive")
	}
	if c.Gateway.StepPct <= 0 || c.Gateway.StepPct >= 1 {
		return configErr("gateway.step_pct", "must be in (0, 1), got %v", c.Gateway.StepPct)
	}

	if c.Store.Name == "" {
		return configErr("store.name", "required")
	}

	if c.Strategy.ShortWindow <= 0 || c.Strategy.ShortWindow >= c.Strategy.LongWindow {
		return configErr("strategy.short_window", "windows: need 0 < short (%d) < long (%d)",
			c.Strategy.ShortWindow, c.Strategy.LongWindow)
	}
	if c.Strategy.SentimentThreshold < 0 || c.Strategy.SentimentThreshold > 100 {
		return configErr("strategy.sentiment_threshold", "must be in [0, 100], got %d",
			c.Strategy.SentimentThreshold)
	}
	if c.Strategy.Qty <= 0 {
		return configErr("strategy.qty", "must be positive, got %d", c.Strategy.Qty)
	}
	if c.Strategy.EvalIntervalMS <= 0 {
		return configErr("strategy.eval_interval_ms", "must be positive")
	}
	if c.Strategy.AckTimeoutMS <= 0 {
		return configErr("strategy.ack_timeout_ms", "must be positive")
	}

	return nil
}

// PriceAddr returns the gateway price stream address.
func (c *Config) PriceAddr() string {
	return net.JoinHostPort(c.Gateway.Host, strconv.Itoa(c.Gateway.PricePort))
}

// SentimentAddr returns the gateway sentiment stream address.
func (c *Config) SentimentAddr() string {
	return net.JoinHostPort(c.Gateway.Host, strconv.Itoa(c.Gateway.SentimentPort))
}

// OrderAddr returns the order manager address.
func (c *Config) OrderAddr() string {
	return net.JoinHostPort(c.OrderManager.Host, strconv.Itoa(c.OrderManager.Port))
}

// overrideWithEnv applies environment overrides so a deployment can move
// ports or the store name without editing the shared file.
func overrideWithEnv(cfg *Config) {
	if host := os.Getenv("PIPE_GATEWAY_HOST"); host != "" {
		cfg.Gateway.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("PIPE_PRICE_PORT")); err == nil {
		cfg.Gateway.PricePort = port
	}
	if port, err := strconv.Atoi(os.Getenv("PIPE_SENTIMENT_PORT")); err == nil {
		cfg.Gateway.SentimentPort = port
	}
	if port, err := strconv.Atoi(os.Getenv("PIPE_ORDER_PORT")); err == nil {
		cfg.OrderManager.Port = port
	}
	if name := os.Getenv("PIPE_STORE_NAME"); name != "" {
		cfg.Store.Name = name
	}
}
