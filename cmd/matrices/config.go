package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/Danielfrancoi/matrices/internal/logger"
)

// envConfig overrides the config file location.
const envConfig = "MATRICES_CONFIG"

// Config represents the matrices configuration file
// (~/.config/matrices/config.yaml). Numeric fields are pointers so we can
// distinguish "not set" from zero values.
type Config struct {
	// Problem defaults
	Size    *int   `yaml:"size"`
	Workers *int   `yaml:"workers"`
	DType   string `yaml:"dtype"`
	Seed    *int64 `yaml:"seed"`

	// Strategy defaults
	Strategy   string `yaml:"strategy"`
	MaxThreads *int64 `yaml:"max_threads"`
	Chunk      *int   `yaml:"chunk"`
	ShmDir     string `yaml:"shm_dir"`
	Launcher   string `yaml:"launcher"`
	HubAddr    string `yaml:"hub_addr"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// fileConfig is loaded once by setup and applied by each command.
var fileConfig Config

func configPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "matrices", "config.yaml")
}

// loadConfig reads the config file. A missing file yields a zero Config.
func loadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// setup runs before any command: it loads the config file and installs the
// logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(configPath())
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: config: %v", err), 1)
	}
	fileConfig = cfg
	applyLoggingConfig(cmd, cfg)
	return logger.WithContext(ctx, logger.Setup(os.Stderr, logLevel, logFormat)), nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if debug {
		logLevel = "debug"
	}
}

// applyProblemConfig applies config file defaults to the problem flags when
// the corresponding CLI flag was not explicitly set.
func applyProblemConfig(c *cli.Command, cfg Config) {
	if cfg.Size != nil && !c.IsSet("size") {
		size = *cfg.Size
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
	if cfg.DType != "" && !c.IsSet("dtype") {
		dtypeName = cfg.DType
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
}

// applyStrategyConfig applies config file defaults to the strategy flags.
func applyStrategyConfig(c *cli.Command, cfg Config) {
	if cfg.Strategy != "" && !c.IsSet("strategy") {
		strategyName = cfg.Strategy
	}
	if cfg.MaxThreads != nil && !c.IsSet("max-threads") {
		maxThreads = *cfg.MaxThreads
	}
	if cfg.Chunk != nil && !c.IsSet("chunk") {
		chunk = *cfg.Chunk
	}
	if cfg.ShmDir != "" && !c.IsSet("shm-dir") {
		shmDir = cfg.ShmDir
	}
	if cfg.Launcher != "" && !c.IsSet("launcher") {
		launcher = cfg.Launcher
	}
	if cfg.HubAddr != "" && !c.IsSet("hub-addr") {
		hubAddr = cfg.HubAddr
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyProblemConfig(c, cfg)
	applyStrategyConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
