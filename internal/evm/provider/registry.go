// Package provider manages a set of chain clients keyed by human readable
// names, instantiating the right backend for each configured chain.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"OmniEVM/internal/config"
	"OmniEVM/internal/evm"
	"OmniEVM/internal/evm/ava"
	"OmniEVM/internal/evm/geth"
	"OmniEVM/internal/journal"
	"OmniEVM/internal/notify"
	"OmniEVM/internal/rpc"
)

// Options 是注册表为每个客户端注入的共享依赖。
type Options struct {
	Journal  journal.Store
	Notifier *notify.Dispatcher
	Cache    *rpc.Cache
}

// Registry manages chain clients built from the YAML chain definitions.
type Registry struct {
	defaultChain string
	clients      map[string]evm.Client
}

// NewRegistry loads chain definitions and instantiates concrete clients.
func NewRegistry(ctx context.Context, cfg config.EVMConfig, opts Options) (*Registry, error) {
	defs, err := evm.LoadChainDefinitions(cfg.ChainConfig)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]evm.Client)
	for name, chain := range defs.Chains {
		client, err := buildClient(ctx, name, chain, opts)
		if err != nil {
			return nil, fmt.Errorf("初始化链 %s 失败: %w", name, err)
		}
		clients[name] = client
	}

	if len(clients) == 0 && strings.TrimSpace(cfg.RPCURL) != "" {
		client, err := geth.NewClient(ctx, geth.Config{Name: "default", RPCURL: cfg.RPCURL},
			geth.WithJournal(opts.Journal), geth.WithNotifier(opts.Notifier), geth.WithCache(opts.Cache))
		if err != nil {
			return nil, err
		}
		clients["default"] = client
		if cfg.DefaultChain == "" {
			cfg.DefaultChain = "default"
		}
	}

	if len(clients) == 0 {
		return nil, errors.New("未配置任何链的 RPC 端点")
	}

	defaultChain := cfg.DefaultChain
	if defaultChain == "" {
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, name)
		}
		sort.Strings(names)
		defaultChain = names[0]
	}
	if _, ok := clients[defaultChain]; !ok {
		return nil, fmt.Errorf("默认链 %s 未在配置中找到", defaultChain)
	}

	return &Registry{defaultChain: defaultChain, clients: clients}, nil
}

func buildClient(ctx context.Context, name string, chain evm.ChainDefinition, opts Options) (evm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(chain.Type)) {
	case "", string(evm.TypeGeth):
		return geth.NewClient(ctx, geth.Config{
			Name:            name,
			RPCURL:          chain.RPCURL,
			ContractAddress: chain.ContractAddress,
			ContractABI:     chain.ContractABI,
			PrivateKey:      chain.PrivateKey(),
			Retry:           chain.Retry.Options(),
			Confirmations:   chain.Confirmations,
		}, geth.WithJournal(opts.Journal), geth.WithNotifier(opts.Notifier), geth.WithCache(opts.Cache))
	case string(evm.TypeLibevm), "ava":
		return ava.NewClient(ctx, ava.Config{
			Name:            name,
			RPCURL:          chain.RPCURL,
			ContractAddress: chain.ContractAddress,
			ContractABI:     chain.ContractABI,
			PrivateKey:      chain.PrivateKey(),
			Retry:           chain.Retry.Options(),
			Confirmations:   chain.Confirmations,
		}, ava.WithJournal(opts.Journal), ava.WithNotifier(opts.Notifier), ava.WithCache(opts.Cache))
	default:
		return nil, fmt.Errorf("不支持的链类型: %s", chain.Type)
	}
}

// DefaultClient returns the client configured as default chain.
func (r *Registry) DefaultClient() (evm.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的链客户端注册表")
	}
	client, ok := r.clients[r.defaultChain]
	if !ok {
		return nil, fmt.Errorf("默认链 %s 未在注册表中", r.defaultChain)
	}
	return client, nil
}

// Client returns the chain client identified by name.
func (r *Registry) Client(name string) (evm.Client, bool) {
	if r == nil {
		return nil, false
	}
	client, ok := r.clients[name]
	return client, ok
}

// Chains returns the list of registered chain names.
func (r *Registry) Chains() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}
