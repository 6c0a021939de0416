package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config 描述了 OmniEVM 在启动阶段需要加载的核心配置。
type Config struct {
	EVM     EVMConfig     `json:"evm"`
	Cache   CacheConfig   `json:"cache"`
	Journal JournalConfig `json:"journal"`
	Notify  NotifyConfig  `json:"notify"`
	Log     LogConfig     `json:"log"`
	Runtime RuntimeConfig `json:"runtime"`
}

// EVMConfig 包含访问区块链节点所需的信息。
type EVMConfig struct {
	// ChainConfig 指向 YAML 链定义文件，详见 configs/chains.yaml。
	ChainConfig  string `json:"chain_config"`
	DefaultChain string `json:"default_chain"`
	// RPCURL 是未提供链定义文件时的单链快捷配置。
	RPCURL string `json:"rpc_url"`
}

// CacheConfig 描述 RPC 只读结果缓存的 Redis 连接信息。
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
	Prefix     string `json:"prefix"`
}

// JournalConfig 描述交易日志的持久化方式。
type JournalConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// NotifyConfig 描述交易事件广播的 RabbitMQ 连接信息。
type NotifyConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Queue   string `json:"queue"`
	Durable bool   `json:"durable"`
}

// LogConfig 控制结构化日志输出。
type LogConfig struct {
	Level       string          `json:"level"`
	Format      string          `json:"format"`
	OutputPaths []string        `json:"output_paths"`
	Rotate      LogRotateConfig `json:"rotate"`
}

// LogRotateConfig 控制文件输出的按大小滚动，stdout/stderr 不受影响。
type LogRotateConfig struct {
	Enabled    bool `json:"enabled"`
	MaxSizeMB  int  `json:"max_size_mb"`
	MaxBackups int  `json:"max_backups"`
	MaxAgeDays int  `json:"max_age_days"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.EVM.ChainConfig != "" && !filepath.IsAbs(c.EVM.ChainConfig) {
		c.EVM.ChainConfig = filepath.Join(baseDir, c.EVM.ChainConfig)
	}

	if c.Journal.Driver == "" {
		c.Journal.Driver = "memory"
	}

	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 600
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "omnievm:rpc:"
	}

	if c.Notify.Queue == "" {
		c.Notify.Queue = "omnievm.tx-events"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if len(c.Log.OutputPaths) == 0 {
		c.Log.OutputPaths = []string{"stdout"}
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}
