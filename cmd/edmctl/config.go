package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"example.com/edmdat/internal/common"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	// OutDir receives reports; empty means next to each input.
	OutDir       string    `yaml:"outDir"`
	NoSuffix     bool      `yaml:"noSuffix"`
	AbortOnError *bool     `yaml:"abortOnError"`
	Archive      string    `yaml:"archive"`
	Audit        string    `yaml:"audit"`
	Timezone     string    `yaml:"timezone"`
	Logs         logConfig `yaml:"logs"`
}

func (c config) abortOnError() bool {
	return c.AbortOnError == nil || *c.AbortOnError
}

func (c config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func defaultConfig() config {
	return applyDefaults(config{}, "")
}

// loadConfig reads path; an empty path yields the defaults.
func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return defaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return applyDefaults(cfg, filepath.Dir(path)), nil
}

func applyDefaults(cfg config, baseDir string) config {
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) || baseDir == "" {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	cfg.OutDir = resolvePath(cfg.OutDir)
	cfg.Archive = resolvePath(cfg.Archive)
	cfg.Audit = resolvePath(cfg.Audit)
	if cfg.Audit == "" {
		cfg.Audit = "edmctl-audit.jsonl"
	}
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg
}

// setupLogging mirrors the package log to a rotating file when a log
// directory is configured. The returned func closes the file.
func setupLogging(cfg config) (func() error, error) {
	if cfg.Logs.Directory == "" {
		return func() error { return nil }, nil
	}
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logs.Directory, "edmctl.log"),
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	common.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return func() error {
		common.SetOutput(os.Stderr)
		return rotator.Close()
	}, nil
}
