package infra

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trading_go/internal/domain"
)

const validYAML = `
app:
  name: "trading-pipeline"
  version: "test"
gateway:
  host: "127.0.0.1"
  price_port: 9001
  sentiment_port: 9002
  tick_interval_ms: 100
  sentiment_interval_ms: 250
  step_pct: 0.01
  symbols: [AAPL, MSFT]
  base_prices:
    AAPL: 180.0
store:
  name: "pricebook"
order_manager:
  host: "127.0.0.1"
  port: 62000
  journal_path: "data/orders.db"
strategy:
  name: "ma_cross"
  short_window: 5
  long_window: 20
  sentiment_threshold: 50
  qty: 10
  eval_interval_ms: 100
  ack_timeout_ms: 2000
logging:
  level: "info"
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Gateway.PricePort != 9001 || cfg.OrderManager.Port != 62000 {
		t.Errorf("ports not parsed: %+v", cfg)
	}
	if len(cfg.Gateway.Symbols) != 2 {
		t.Errorf("symbols not parsed: %v", cfg.Gateway.Symbols)
	}
	if cfg.PriceAddr() != "127.0.0.1:9001" {
		t.Errorf("PriceAddr = %q", cfg.PriceAddr())
	}
	if cfg.SentimentAddr() != "127.0.0.1:9002" {
		t.Errorf("SentimentAddr = %q", cfg.SentimentAddr())
	}
	if cfg.OrderAddr() != "127.0.0.1:62000" {
		t.Errorf("OrderAddr = %q", cfg.OrderAddr())
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PIPE_PRICE_PORT", "19001")
	t.Setenv("PIPE_STORE_NAME", "pricebook_alt")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Gateway.PricePort != 19001 {
		t.Errorf("env port override ignored: %d", cfg.Gateway.PricePort)
	}
	if cfg.Store.Name != "pricebook_alt" {
		t.Errorf("env store override ignored: %q", cfg.Store.Name)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  string // replacement applied to the valid yaml
		from    string
		errPart string
	}{
		{"no symbols", "symbols: []", "symbols: [AAPL, MSFT]", "symbol"},
		{"duplicate ports", "sentiment_port: 9001", "sentiment_port: 9002", "share port"},
		{"port out of range", "price_port: 70000", "price_port: 9001", "1-65535"},
		{"short >= long", "short_window: 20", "short_window: 5", "windows"},
		{"threshold out of range", "sentiment_threshold: 101", "sentiment_threshold: 50", "sentiment_threshold"},
		{"zero qty", "qty: 0", "qty: 10", "qty"},
		{"missing store name", `name: ""`, `name: "pricebook"`, "store.name"},
		{"bad step", "step_pct: 1.5", "step_pct: 0.01", "step_pct"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			yaml := strings.Replace(validYAML, tc.from, tc.mutate, 1)
			if yaml == validYAML {
				t.Fatalf("mutation %q did not apply", tc.from)
			}
			_, err := LoadConfig(writeConfig(t, yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.errPart) {
				t.Errorf("error %q does not mention %q", err, tc.errPart)
			}

			// Validation failures carry the offending field and are never
			// retriable.
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *domain.ConfigError, got %T", err)
			}
			if cfgErr.Field == "" {
				t.Error("ConfigError without a field")
			}
			if domain.IsRetriable(err) {
				t.Error("config errors must not be retriable")
			}
		})
	}
}
