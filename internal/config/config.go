// ============================================================================
// Chemist Config - YAML 設定載入
// ============================================================================
//
// Package: internal/config
// 文件: config.go
// 功能: 載入 chemist 程序的 YAML 設定檔：環形緩衝區容量、lifecycle 門檻值、
//       executor 佇列深度、metrics 監聽位址
//
// ============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chemist/chemist/pkg/types"
)

// Config groups settings into top-level sections by concern, loaded with
// gopkg.in/yaml.v3.
type Config struct {
	History struct {
		PlatformCapacity int `yaml:"platform_capacity"` // historyStack 容量
		RepoCapacity     int `yaml:"repo_capacity"`      // repoHistoryStack 容量
		ErrorCapacity    int `yaml:"error_capacity"`     // errorStack 容量
	} `yaml:"history"`

	Lifecycle struct {
		AttemptThreshold int    `yaml:"attempt_threshold"` // 調查重試上限 N
		TerminalState    string `yaml:"terminal_state"`    // 耗盡調查後的終止狀態
	} `yaml:"lifecycle"`

	Executor struct {
		QueueSize int `yaml:"queue_size"` // 寫入者 goroutine 的任務佇列容量
	} `yaml:"executor"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"` // Prometheus /metrics 監聽位址
	} `yaml:"metrics"`
}

// Defaults returns the baseline ring-buffer capacities, lifecycle
// threshold, executor queue depth, and metrics listen address used when a
// field is left unset in the loaded YAML.
func Defaults() Config {
	var c Config
	c.History.PlatformCapacity = 2000
	c.History.RepoCapacity = 2000
	c.History.ErrorCapacity = 500
	c.Lifecycle.AttemptThreshold = 3
	c.Lifecycle.TerminalState = string(types.StateFin)
	c.Executor.QueueSize = 256
	c.Metrics.ListenAddr = ":9090"
	return c
}

// Load reads and parses a YAML file at path, applying Defaults() for any
// zero-valued field left unset.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.History.PlatformCapacity == 0 {
		cfg.History.PlatformCapacity = def.History.PlatformCapacity
	}
	if cfg.History.RepoCapacity == 0 {
		cfg.History.RepoCapacity = def.History.RepoCapacity
	}
	if cfg.History.ErrorCapacity == 0 {
		cfg.History.ErrorCapacity = def.History.ErrorCapacity
	}
	if cfg.Lifecycle.AttemptThreshold == 0 {
		cfg.Lifecycle.AttemptThreshold = def.Lifecycle.AttemptThreshold
	}
	if cfg.Lifecycle.TerminalState == "" {
		cfg.Lifecycle.TerminalState = def.Lifecycle.TerminalState
	}
	if cfg.Executor.QueueSize == 0 {
		cfg.Executor.QueueSize = def.Executor.QueueSize
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = def.Metrics.ListenAddr
	}
}
