package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"OmniEVM/internal/config"
	"OmniEVM/internal/evm"
	"OmniEVM/internal/evm/provider"
	"OmniEVM/internal/journal"
	"OmniEVM/internal/notify"
	"OmniEVM/internal/rpc"
	"OmniEVM/pkg/logger"
)

const usage = `用法: omnievm <命令> [参数...]

命令:
  chains                         列出已配置的链
  raw <链> <方法> [JSON 参数]     直接执行一次 JSON-RPC 调用
  call <链> <函数> [JSON 参数]    执行只读合约调用
  selector <签名>                由函数签名计算 4 字节选择器
  wei <数量> <单位>              将人类可读数量换算为 wei
`

// main 是 omnievm 命令行工具的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("omnievm 运行失败: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	configPath := os.Getenv("OMNIEVM_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "omnievm.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Rotate: logger.RotateConfig{
			Enabled:    cfg.Log.Rotate.Enabled,
			MaxSizeMB:  cfg.Log.Rotate.MaxSizeMB,
			MaxBackups: cfg.Log.Rotate.MaxBackups,
			MaxAgeDays: cfg.Log.Rotate.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var dispatcher *notify.Dispatcher
	if cfg.Notify.Enabled {
		publisher, err := notify.NewAMQPPublisher(notify.AMQPConfig{
			URL:     cfg.Notify.URL,
			Queue:   cfg.Notify.Queue,
			Durable: cfg.Notify.Durable,
		})
		if err != nil {
			return err
		}
		dispatcher = notify.NewDispatcher(publisher)
		defer func() { _ = dispatcher.Close() }()
	}

	var cache *rpc.Cache
	if cfg.Cache.Enabled {
		cache = rpc.NewCache(rpc.CacheConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
			Prefix:   cfg.Cache.Prefix,
		})
		defer func() { _ = cache.Close() }()
	}

	registry, err := provider.NewRegistry(ctx, cfg.EVM, provider.Options{
		Journal:  store,
		Notifier: dispatcher,
		Cache:    cache,
	})
	if err != nil {
		return err
	}
	defer registry.Close()

	switch args[0] {
	case "chains":
		for _, name := range registry.Chains() {
			client, _ := registry.Client(name)
			fmt.Printf("%s\t%s\t%s\n", name, client.Type(), client.ProviderURL())
		}
		return nil
	case "raw":
		if len(args) < 3 {
			return fmt.Errorf("用法: omnievm raw <链> <方法> [JSON 参数]")
		}
		client, err := resolveClient(registry, args[1])
		if err != nil {
			return err
		}
		params, err := parseParams(args[3:])
		if err != nil {
			return err
		}
		out := client.RawRequest(ctx, args[2], params, rpc.RetryOptions{}, rpc.ResultRules{AllowEmpty: true})
		if !out.OK() {
			return out.Err()
		}
		fmt.Println(string(out.Data()))
		return nil
	case "call":
		if len(args) < 3 {
			return fmt.Errorf("用法: omnievm call <链> <函数> [JSON 参数]")
		}
		client, err := resolveClient(registry, args[1])
		if err != nil {
			return err
		}
		callArgs, err := parseParams(args[3:])
		if err != nil {
			return err
		}
		out := client.Call(ctx, evm.Input{Function: args[2], Args: callArgs})
		if !out.OK() {
			return out.Err()
		}
		return printJSON(out.Data())
	case "selector":
		if len(args) != 2 {
			return fmt.Errorf("用法: omnievm selector <签名>")
		}
		client, err := registry.DefaultClient()
		if err != nil {
			return err
		}
		out := client.SelectorByName(args[1])
		if !out.OK() {
			return out.Err()
		}
		fmt.Println(out.Data())
		return nil
	case "wei":
		if len(args) != 3 {
			return fmt.Errorf("用法: omnievm wei <数量> <单位>")
		}
		wei, werr := evm.GenerateWei(args[1], evm.Unit(args[2]))
		if werr != nil {
			return werr
		}
		fmt.Println(wei.String())
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("未知命令: %s", args[0])
	}
}

func openJournal(ctx context.Context, cfg config.JournalConfig) (journal.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return journal.NewMemoryStore(), nil
	case "mysql":
		return journal.NewSQLStore(ctx, journal.MySQLConfig{DSN: cfg.DSN})
	default:
		return nil, fmt.Errorf("未知的交易日志驱动: %s", cfg.Driver)
	}
}

func resolveClient(registry *provider.Registry, name string) (evm.Client, error) {
	if name == "" || name == "default" {
		return registry.DefaultClient()
	}
	client, ok := registry.Client(name)
	if !ok {
		return nil, fmt.Errorf("未配置链: %s", name)
	}
	return client, nil
}

// parseParams 将命令行参数解析为 JSON 值，非法 JSON 按字符串处理。
func parseParams(raw []string) ([]any, error) {
	params := make([]any, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		var value any
		if err := json.Unmarshal([]byte(item), &value); err != nil {
			value = item
		}
		params = append(params, value)
	}
	return params, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
