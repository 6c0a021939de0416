package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"OmniEVM/internal/result"
	"OmniEVM/internal/rpc"
)

// Type 标识客户端由哪个底层链库驱动。构造后只读。
type Type string

const (
	// TypeGeth 表示基于 github.com/ethereum/go-ethereum 的后端。
	TypeGeth Type = "geth"
	// TypeLibevm 表示基于 github.com/ava-labs/libevm 的后端。
	TypeLibevm Type = "libevm"
)

// Output 是所有能力接口操作的统一返回形态。
type Output[T any] = result.Result[T]

// Input 描述一次合约操作：目标函数、按位置排列的参数，以及可选的 ABI。
// ABI 为空时使用客户端构造时配置的合约 ABI。构造后不应再修改。
type Input struct {
	Function string `json:"function"`
	Args     []any  `json:"args"`
	ABI      string `json:"abi,omitempty"`
}

// TxOptions 描述交易信封。所有字段可选，缺省值由后端按链上状态推导。
// GasPrice 与 MaxFeePerGas/MaxPriorityFeePerGas 分属两种互斥的费用模型，
// 同时设置会在任何网络请求之前被拒绝。
type TxOptions struct {
	From                 string
	To                   string
	Value                *big.Int
	GasLimit             uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Nonce                *uint64
	ChainID              *big.Int
	// Confirmations 是返回前需要观察到的确认数，0 表示提交即返回。
	Confirmations uint64
	// PollInterval 控制确认轮询间隔，默认 2 秒。
	PollInterval time.Duration
	// PrivateKey 是十六进制编码的本地签名私钥。该字段绝不写入日志或错误信息。
	PrivateKey string
}

// SendResult 描述一次交易提交的结果。Confirmations 为 0 时仅 TxHash 有效。
type SendResult struct {
	TxHash        string `json:"tx_hash"`
	BlockNumber   uint64 `json:"block_number,omitempty"`
	GasUsed       uint64 `json:"gas_used,omitempty"`
	Status        uint64 `json:"status,omitempty"`
	Confirmations uint64 `json:"confirmations,omitempty"`
}

// Client 是任何后端都必须提供的能力集合。同一组输入在两个后端上
// 必须得到语义等价的输出：相同的解码结果、相同的选择器、相同的单位换算。
type Client interface {
	// Call 执行只读合约调用，返回按统一形态归一化的解码值。
	Call(ctx context.Context, input Input) Output[[]any]
	// Send 本地签名并提交状态变更交易，按 opts.Confirmations 等待确认。
	// 提交后的失败不会被自动重试。
	Send(ctx context.Context, input Input, opts TxOptions) Output[SendResult]
	// Sign 产生签名后的原始交易负载，不广播。
	Sign(ctx context.Context, input Input, opts TxOptions) Output[string]
	// SendSigned 广播一笔已签名交易，确认语义与 Send 相同。
	SendSigned(ctx context.Context, rawTx string, opts TxOptions) Output[SendResult]
	// EncodeInput 将结构化调用参数编码为十六进制 calldata。
	EncodeInput(input Input) Output[string]
	// DecodeTxInput 将 calldata 还原为结构化调用参数。对于已知 ABI，
	// DecodeTxInput(EncodeInput(x)) 与 x 等值。
	DecodeTxInput(calldata string) Output[Input]
	// SelectorByABI 由单个函数的 ABI 片段推导 4 字节选择器。
	SelectorByABI(fragment string) Output[string]
	// SelectorByName 由规范签名文本（如 transfer(address,uint256)）推导选择器。
	SelectorByName(signature string) Output[string]
	// GenerateWei 将人类可读数量精确换算为最小链上单位。
	GenerateWei(amount string, unit Unit) Output[*big.Int]
	// RawRequest 通过 RPC 引擎直接执行 JSON-RPC 调用。
	RawRequest(ctx context.Context, method string, params []any, retryOpts rpc.RetryOptions, rules rpc.ResultRules) Output[json.RawMessage]

	// 以下访问器在客户端尚未初始化时返回零值，绝不 panic。
	Type() Type
	ProviderURL() string
	ContractAddress() string
	ContractABI() string
	// NativeClient 暴露后端原生句柄（*ethclient.Client 或 libevm 对应物），
	// 供需要逃生舱口的调用方使用。
	NativeClient() any

	Close()
}
