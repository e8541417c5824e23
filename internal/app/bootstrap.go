package app

import (
	"log/slog"
	"os"

	"trading_go/internal/infra"
)

// defaultConfigPath is shared by all four processes; PIPE_CONFIG overrides it.
const defaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the startup sequence common to every pipeline
// process: load the shared config, then install the process logger.
type Bootstrap struct {
	Process string
	Config  *infra.Config
}

// NewBootstrap creates a Bootstrap for the named process.
func NewBootstrap(process string) *Bootstrap {
	return &Bootstrap{Process: process}
}

// Initialize performs core system initialization.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping", slog.String("process", b.Process))

	path := os.Getenv("PIPE_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg, b.Process)
	slog.SetDefault(logger)

	return nil
}
