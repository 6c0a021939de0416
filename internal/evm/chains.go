package evm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"OmniEVM/internal/rpc"

	"gopkg.in/yaml.v3"
)

// ChainDefinitions models the structure of configs/chains.yaml.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition describes a single chain endpoint definition.
type ChainDefinition struct {
	// Type 选择后端实现，可为 geth 或 libevm，默认 geth。
	Type            string `yaml:"type"`
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	ContractABI     string `yaml:"contract_abi"`
	// ContractABIPath 指向 ABI JSON 文件，相对路径以链配置文件所在目录为基准。
	ContractABIPath string `yaml:"contract_abi_path"`
	// PrivateKeyEnv 是承载签名私钥的环境变量名。配置文件本身不存放私钥。
	PrivateKeyEnv string          `yaml:"private_key_env"`
	Confirmations uint64          `yaml:"confirmations"`
	Description   string          `yaml:"description"`
	Retry         RetryDefinition `yaml:"retry"`
}

// RetryDefinition 描述只读请求的重试策略。
type RetryDefinition struct {
	MaxAttempts uint   `yaml:"max_attempts"`
	DelayMs     int    `yaml:"delay_ms"`
	Policy      string `yaml:"policy"`
}

// Options 转换为 RPC 引擎的重试配置。
func (d RetryDefinition) Options() rpc.RetryOptions {
	opts := rpc.RetryOptions{
		MaxAttempts: d.MaxAttempts,
		Delay:       time.Duration(d.DelayMs) * time.Millisecond,
	}
	if strings.EqualFold(d.Policy, string(rpc.DelayBackoff)) {
		opts.Policy = rpc.DelayBackoff
	}
	return opts
}

// PrivateKey 从环境变量读取签名私钥，未配置时返回空串。
func (d ChainDefinition) PrivateKey() string {
	if strings.TrimSpace(d.PrivateKeyEnv) == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(d.PrivateKeyEnv))
}

// LoadChainDefinitions parses the YAML file containing chain metadata.
// ABI 文件引用在这里展开，调用方拿到的定义是自包含的。
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return ChainDefinitions{Chains: map[string]ChainDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}

	var defs ChainDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}

	baseDir := filepath.Dir(path)
	for name, chain := range defs.Chains {
		if chain.ContractABI == "" && chain.ContractABIPath != "" {
			abiPath := chain.ContractABIPath
			if !filepath.IsAbs(abiPath) {
				abiPath = filepath.Join(baseDir, abiPath)
			}
			raw, err := os.ReadFile(abiPath)
			if err != nil {
				return ChainDefinitions{}, fmt.Errorf("读取链 %s 的 ABI 文件失败: %w", name, err)
			}
			chain.ContractABI = string(raw)
			defs.Chains[name] = chain
		}
	}
	return defs, nil
}
