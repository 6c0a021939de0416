// Package ava implements the unified chain client on top of
// github.com/ava-labs/libevm.
package ava

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	xerrors "OmniEVM/internal/errors"
	"OmniEVM/internal/evm"
	"OmniEVM/internal/journal"
	"OmniEVM/internal/notify"
	"OmniEVM/internal/result"
	"OmniEVM/internal/rpc"
	"OmniEVM/pkg/logger"

	ethereum "github.com/ava-labs/libevm"
	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"
	coretypes "github.com/ava-labs/libevm/core/types"
	"github.com/ava-labs/libevm/crypto"
	"github.com/ava-labs/libevm/ethclient"
	avarpc "github.com/ava-labs/libevm/rpc"
)

// Config describes how to construct a libevm backed client.
type Config struct {
	Name            string
	RPCURL          string
	ContractAddress string
	ContractABI     string
	// PrivateKey 是十六进制本地签名私钥，可选。绝不写入日志。
	PrivateKey string
	// Retry 作用于只读请求，广播类请求始终单次提交。
	Retry rpc.RetryOptions
	// Confirmations 是 TxOptions 未指定时默认等待的确认数，0 表示提交即返回。
	Confirmations uint64
}

// Option 定义客户端的可选依赖。
type Option func(*Client)

// WithJournal 挂载交易日志存储。
func WithJournal(store journal.Store) Option {
	return func(c *Client) { c.journal = store }
}

// WithNotifier 挂载事件广播器。
func WithNotifier(d *notify.Dispatcher) Option {
	return func(c *Client) { c.notifier = d }
}

// WithLogger 指定日志输出。
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithCache 为 RPC 引擎挂载只读结果缓存。
func WithCache(cache *rpc.Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// Client 基于 libevm 实现统一客户端能力。
type Client struct {
	name        string
	url         string
	rpcClient   *avarpc.Client
	eth         *ethclient.Client
	engine      *rpc.Engine
	contract    common.Address
	hasContract bool
	abiJSON     string
	parsed      *avaABI
	key         *ecdsa.PrivateKey
	retry       rpc.RetryOptions
	confs       uint64
	cache       *rpc.Cache
	journal     journal.Store
	notifier    *notify.Dispatcher
	log         *slog.Logger
	mu          sync.Mutex
}

var _ evm.Client = (*Client)(nil)

// NewClient dials the configured endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		name:  strings.TrimSpace(cfg.Name),
		url:   strings.TrimSpace(cfg.RPCURL),
		retry: cfg.Retry,
		confs: cfg.Confirmations,
	}
	if c.name == "" {
		c.name = string(evm.TypeLibevm)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.log == nil {
		c.log = logger.Named("evm.ava")
	}

	if addr := strings.TrimSpace(cfg.ContractAddress); addr != "" {
		if err := evm.ValidateHexAddress(addr); err != nil {
			return nil, err
		}
		c.contract = common.HexToAddress(addr)
		c.hasContract = true
	}
	if abiJSON := strings.TrimSpace(cfg.ContractABI); abiJSON != "" {
		parsed, err := parseABI(abiJSON)
		if err != nil {
			return nil, err
		}
		c.abiJSON = abiJSON
		c.parsed = parsed
	}
	if keyHex := strings.TrimSpace(cfg.PrivateKey); keyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			return nil, xerrors.New(xerrors.CodeSignerMissing, "签名私钥格式非法")
		}
		c.key = key
	}

	if c.url == "" {
		return nil, xerrors.New(xerrors.CodeConfigInvalid, "未配置以太坊 RPC 地址")
	}
	rpcClient, err := avarpc.DialContext(ctx, c.url)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTransportFailure, err, "连接以太坊节点失败")
	}
	c.rpcClient = rpcClient
	c.eth = ethclient.NewClient(rpcClient)
	c.engine = rpc.NewEngine(rpcClient, rpc.WithCache(c.cache), rpc.WithLogger(c.log))
	return c, nil
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.rpcClient = nil
	c.engine = nil
}

// Type 实现 evm.Client 接口。
func (c *Client) Type() evm.Type { return evm.TypeLibevm }

// ProviderURL 返回配置的节点地址。
func (c *Client) ProviderURL() string {
	if c == nil {
		return ""
	}
	return c.url
}

// ContractAddress 返回配置的合约地址，未配置时为空串。
func (c *Client) ContractAddress() string {
	if c == nil || !c.hasContract {
		return ""
	}
	return c.contract.Hex()
}

// ContractABI 返回配置的合约 ABI 原文。
func (c *Client) ContractABI() string {
	if c == nil {
		return ""
	}
	return c.abiJSON
}

// NativeClient 暴露底层 *ethclient.Client。
func (c *Client) NativeClient() any {
	if c == nil {
		return nil
	}
	return c.eth
}

// Call 执行只读合约调用。
func (c *Client) Call(ctx context.Context, input evm.Input) evm.Output[[]any] {
	return evm.Guard("call", func() *xerrors.Error { return evm.ValidateInput(input) }, func() ([]any, *xerrors.Error) {
		if c == nil || c.engine == nil {
			return nil, xerrors.New(xerrors.CodeConfigInvalid, "客户端未初始化")
		}
		parsed, err := c.abiFor(input.ABI)
		if err != nil {
			return nil, err
		}
		method, ok := parsed.Methods[input.Function]
		if !ok {
			return nil, xerrors.New(xerrors.CodeNotFound, "合约 ABI 中不存在函数: "+input.Function)
		}
		if !c.hasContract {
			return nil, xerrors.New(xerrors.CodeConfigInvalid, "未配置合约地址")
		}
		data, err := c.encodeCall(parsed, input)
		if err != nil {
			return nil, err
		}

		msg := map[string]any{
			"to":   c.contract.Hex(),
			"data": hexutil.Encode(data),
		}
		res := c.engine.Request(ctx, "eth_call", []any{msg, "latest"},
			c.retry, rpc.ResultRules{AllowEmpty: len(method.Outputs) == 0})
		if !res.OK() {
			return nil, evm.RefineRevert(res.Err())
		}

		var hexOut string
		if uerr := json.Unmarshal(res.Data().Result, &hexOut); uerr != nil {
			return nil, xerrors.Wrap(xerrors.CodeEncodingFailure, uerr, "解析 eth_call 返回值失败")
		}
		if len(method.Outputs) == 0 {
			return []any{}, nil
		}
		raw, derr := hexutil.Decode(hexOut)
		if derr != nil {
			return nil, xerrors.Wrap(xerrors.CodeEncodingFailure, derr, "解析 eth_call 返回值失败")
		}
		values, uerr := parsed.Unpack(input.Function, raw)
		if uerr != nil {
			return nil, xerrors.Wrap(xerrors.CodeEncodingFailure, uerr, "解码合约返回值失败")
		}
		return normalizeValues(values), nil
	})
}

// Send 本地签名并提交状态变更交易。
func (c *Client) Send(ctx context.Context, input evm.Input, opts evm.TxOptions) evm.Output[evm.SendResult] {
	return evm.Guard("send", func() *xerrors.Error { return evm.ValidateTxOptions(opts) }, func() (evm.SendResult, *xerrors.Error) {
		if c == nil || c.engine == nil {
			return evm.SendResult{}, xerrors.New(xerrors.CodeConfigInvalid, "客户端未初始化")
		}
		tx, from, err := c.buildSignedTx(ctx, input, opts)
		if err != nil {
			return evm.SendResult{}, err
		}
		return c.broadcast(ctx, tx, from, opts)
	})
}

// Sign 产生签名后的原始交易负载，不广播。
func (c *Client) Sign(ctx context.Context, input evm.Input, opts evm.TxOptions) evm.Output[string] {
	return evm.Guard("sign", func() *xerrors.Error { return evm.ValidateTxOptions(opts) }, func() (string, *xerrors.Error) {
		if c == nil || c.engine == nil {
			return "", xerrors.New(xerrors.CodeConfigInvalid, "客户端未初始化")
		}
		tx, _, err := c.buildSignedTx(ctx, input, opts)
		if err != nil {
			return "", err
		}
		raw, merr := tx.MarshalBinary()
		if merr != nil {
			return "", xerrors.Wrap(xerrors.CodeEncodingFailure, merr, "序列化交易失败")
		}
		return hexutil.Encode(raw), nil
	})
}

// SendSigned 广播一笔已签名交易。
func (c *Client) SendSigned(ctx context.Context, rawTx string, opts evm.TxOptions) evm.Output[evm.SendResult] {
	return evm.Guard("send_signed", func() *xerrors.Error { return evm.ValidateTxOptions(opts) }, func() (evm.SendResult, *xerrors.Error) {
		if c == nil || c.engine == nil {
			return evm.SendResult{}, xerrors.New(xerrors.CodeConfigInvalid, "客户端未初始化")
		}
		rawTx = strings.TrimSpace(rawTx)
		if !strings.HasPrefix(rawTx, "0x") {
			rawTx = "0x" + rawTx
		}
		raw, derr := hexutil.Decode(rawTx)
		if derr != nil {
			return evm.SendResult{}, xerrors.Wrap(xerrors.CodeEncodingFailure, derr, "解析已签名交易失败")
		}
		tx := new(coretypes.Transaction)
		if uerr := tx.UnmarshalBinary(raw); uerr != nil {
			return evm.SendResult{}, xerrors.Wrap(xerrors.CodeEncodingFailure, uerr, "解析已签名交易失败")
		}
		from, serr := coretypes.Sender(coretypes.LatestSignerForChainID(tx.ChainId()), tx)
		if serr != nil {
			return evm.SendResult{}, xerrors.Wrap(xerrors.CodeEncodingFailure, serr, "无法从签名恢复发送方地址")
		}
		return c.broadcast(ctx, tx, from, opts)
	})
}

// EncodeInput 将结构化调用参数编码为十六进制 calldata。
func (c *Client) EncodeInput(input evm.Input) evm.Output[string] {
	return evm.Guard("encode_input", func() *xerrors.Error { return evm.ValidateInput(input) }, func() (string, *xerrors.Error) {
		parsed, err := c.abiFor(input.ABI)
		if err != nil {
			return "", err
		}
		data, err := c.encodeCall(parsed, input)
		if err != nil {
			return "", err
		}
		return hexutil.Encode(data), nil
	})
}

// DecodeTxInput 将 calldata 还原为结构化调用参数。
func (c *Client) DecodeTxInput(calldata string) evm.Output[evm.Input] {
	return evm.Guard[evm.Input]("decode_tx_input", nil, func() (evm.Input, *xerrors.Error) {
		parsed, err := c.abiFor("")
		if err != nil {
			return evm.Input{}, err
		}
		calldata = strings.TrimSpace(calldata)
		if !strings.HasPrefix(calldata, "0x") {
			calldata = "0x" + calldata
		}
		raw, derr := hexutil.Decode(calldata)
		if derr != nil {
			return evm.Input{}, xerrors.Wrap(xerrors.CodeEncodingFailure, derr, "解析 calldata 失败")
		}
		if len(raw) < 4 {
			return evm.Input{}, xerrors.New(xerrors.CodeEncodingFailure, "calldata 长度不足 4 字节")
		}
		method, merr := parsed.MethodById(raw[:4])
		if merr != nil {
			return evm.Input{}, xerrors.Wrap(xerrors.CodeNotFound, merr, "合约 ABI 中不存在该选择器")
		}
		values, uerr := method.Inputs.Unpack(raw[4:])
		if uerr != nil {
			return evm.Input{}, xerrors.Wrap(xerrors.CodeEncodingFailure, uerr, "解码 calldata 参数失败")
		}
		return evm.Input{Function: method.Name, Args: normalizeValues(values)}, nil
	})
}

// SelectorByABI 由单个函数的 ABI 片段推导 4 字节选择器。
func (c *Client) SelectorByABI(fragment string) evm.Output[string] {
	return evm.Guard[string]("selector_by_abi", nil, func() (string, *xerrors.Error) {
		parsed, err := parseABI(fragment)
		if err != nil {
			return "", err
		}
		if len(parsed.Methods) != 1 {
			return "", xerrors.New(xerrors.CodeInvalidArgument, "ABI 片段必须且只能包含一个函数")
		}
		for _, method := range parsed.Methods {
			return hexutil.Encode(method.ID), nil
		}
		return "", xerrors.New(xerrors.CodeUnknown, "无法提取选择器")
	})
}

// SelectorByName 由规范签名文本推导 4 字节选择器。
func (c *Client) SelectorByName(signature string) evm.Output[string] {
	return evm.Guard[string]("selector_by_name", nil, func() (string, *xerrors.Error) {
		signature = strings.TrimSpace(signature)
		if signature == "" || !strings.Contains(signature, "(") || !strings.HasSuffix(signature, ")") {
			return "", xerrors.New(xerrors.CodeInvalidArgument, "函数签名格式非法: "+signature)
		}
		return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4]), nil
	})
}

// GenerateWei 将人类可读数量精确换算为 wei。
func (c *Client) GenerateWei(amount string, unit evm.Unit) evm.Output[*big.Int] {
	wei, err := evm.GenerateWei(amount, unit)
	if err != nil {
		return result.Fail[*big.Int](err)
	}
	return result.OK(wei)
}

// RawRequest 通过 RPC 引擎直接执行 JSON-RPC 调用。
func (c *Client) RawRequest(ctx context.Context, method string, params []any, retryOpts rpc.RetryOptions, rules rpc.ResultRules) evm.Output[json.RawMessage] {
	if c == nil || c.engine == nil {
		return result.FailCode[json.RawMessage](xerrors.CodeConfigInvalid, "客户端未初始化")
	}
	res := c.engine.Request(ctx, method, params, retryOpts, rules)
	if !res.OK() {
		return result.Fail[json.RawMessage](res.Err())
	}
	return result.OK(res.Data().Result)
}

// abiFor 返回本次调用生效的 ABI：参数优先，其次为构造时的配置。
func (c *Client) abiFor(override string) (*avaABI, *xerrors.Error) {
	if strings.TrimSpace(override) != "" {
		return parseABI(override)
	}
	if c == nil || c.parsed == nil {
		return nil, xerrors.New(xerrors.CodeConfigInvalid, "未配置合约 ABI")
	}
	return c.parsed, nil
}

func (c *Client) encodeCall(parsed *avaABI, input evm.Input) ([]byte, *xerrors.Error) {
	method, ok := parsed.Methods[input.Function]
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, "合约 ABI 中不存在函数: "+input.Function)
	}
	args, err := coerceArgs(method.Inputs, input.Args)
	if err != nil {
		return nil, err
	}
	data, perr := parsed.Pack(input.Function, args...)
	if perr != nil {
		return nil, xerrors.Wrap(xerrors.CodeEncodingFailure, perr, "编码调用参数失败")
	}
	return data, nil
}

// buildSignedTx 组装并本地签名交易。缺省字段按链上状态推导。
func (c *Client) buildSignedTx(ctx context.Context, input evm.Input, opts evm.TxOptions) (*coretypes.Transaction, common.Address, *xerrors.Error) {
	key, err := c.signerKey(opts)
	if err != nil {
		return nil, common.Address{}, err
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	var data []byte
	if strings.TrimSpace(input.Function) != "" {
		parsed, aerr := c.abiFor(input.ABI)
		if aerr != nil {
			return nil, common.Address{}, aerr
		}
		data, err = c.encodeCall(parsed, input)
		if err != nil {
			return nil, common.Address{}, err
		}
	}

	to, err := c.resolveTo(opts, data)
	if err != nil {
		return nil, common.Address{}, err
	}

	chainID := opts.ChainID
	if chainID == nil {
		id, cerr := c.eth.ChainID(ctx)
		if cerr != nil {
			return nil, common.Address{}, evm.NormalizeRPCError(cerr)
		}
		chainID = id
	}

	var nonce uint64
	if opts.Nonce != nil {
		nonce = *opts.Nonce
	} else {
		n, nerr := c.eth.PendingNonceAt(ctx, from)
		if nerr != nil {
			return nil, common.Address{}, evm.NormalizeRPCError(nerr)
		}
		nonce = n
	}

	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		estimated, gerr := c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    to,
			Value: value,
			Data:  data,
		})
		if gerr != nil {
			return nil, common.Address{}, evm.RefineRevert(evm.NormalizeRPCError(gerr))
		}
		gasLimit = estimated
	}

	var tx *coretypes.Transaction
	switch {
	case opts.MaxFeePerGas != nil || opts.MaxPriorityFeePerGas != nil:
		tip := opts.MaxPriorityFeePerGas
		if tip == nil {
			suggested, terr := c.eth.SuggestGasTipCap(ctx)
			if terr != nil {
				return nil, common.Address{}, evm.NormalizeRPCError(terr)
			}
			tip = suggested
		}
		feeCap := opts.MaxFeePerGas
		if feeCap == nil {
			head, herr := c.eth.HeaderByNumber(ctx, nil)
			if herr != nil {
				return nil, common.Address{}, evm.NormalizeRPCError(herr)
			}
			// feeCap = tip + 2*baseFee，留出基础费上涨空间
			feeCap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		}
		tx = coretypes.NewTx(&coretypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        to,
			Value:     value,
			Data:      data,
		})
	default:
		gasPrice := opts.GasPrice
		if gasPrice == nil {
			suggested, perr := c.eth.SuggestGasPrice(ctx)
			if perr != nil {
				return nil, common.Address{}, evm.NormalizeRPCError(perr)
			}
			gasPrice = suggested
		}
		tx = coretypes.NewTx(&coretypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       to,
			Value:    value,
			Data:     data,
		})
	}

	signed, serr := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(chainID), key)
	if serr != nil {
		return nil, common.Address{}, xerrors.Wrap(xerrors.CodeSignerMissing, serr, "交易签名失败")
	}
	return signed, from, nil
}

func (c *Client) signerKey(opts evm.TxOptions) (*ecdsa.PrivateKey, *xerrors.Error) {
	if keyHex := strings.TrimSpace(opts.PrivateKey); keyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			// 错误信息不携带私钥内容
			return nil, xerrors.New(xerrors.CodeSignerMissing, "签名私钥格式非法")
		}
		return key, nil
	}
	if c.key != nil {
		return c.key, nil
	}
	return nil, xerrors.New(xerrors.CodeSignerMissing, "未配置签名私钥")
}

func (c *Client) resolveTo(opts evm.TxOptions, data []byte) (*common.Address, *xerrors.Error) {
	if opts.To != "" {
		addr := common.HexToAddress(opts.To)
		return &addr, nil
	}
	if len(data) > 0 {
		if !c.hasContract {
			return nil, xerrors.New(xerrors.CodeConfigInvalid, "未配置合约地址")
		}
		addr := c.contract
		return &addr, nil
	}
	return nil, xerrors.New(xerrors.CodeConfigInvalid, "交易缺少接收方地址")
}

// broadcast 提交交易并按需等待确认。广播请求永不自动重试。
func (c *Client) broadcast(ctx context.Context, tx *coretypes.Transaction, from common.Address, opts evm.TxOptions) (evm.SendResult, *xerrors.Error) {
	raw, merr := tx.MarshalBinary()
	if merr != nil {
		return evm.SendResult{}, xerrors.Wrap(xerrors.CodeEncodingFailure, merr, "序列化交易失败")
	}
	res := c.engine.Request(ctx, "eth_sendRawTransaction", []any{hexutil.Encode(raw)},
		rpc.RetryOptions{}, rpc.ResultRules{})
	if !res.OK() {
		return evm.SendResult{}, evm.RefineRevert(res.Err())
	}

	txHash := tx.Hash()
	var toStr string
	if to := tx.To(); to != nil {
		toStr = to.Hex()
	}
	c.recordSubmitted(ctx, journal.NewEntry(c.name, txHash.Hex(), from.Hex(), toStr, tx.Nonce()))
	c.publish(ctx, notify.Event{
		Kind:   notify.KindSubmitted,
		Chain:  c.name,
		TxHash: txHash.Hex(),
		From:   from.Hex(),
		To:     toStr,
	})

	want := opts.Confirmations
	if want == 0 {
		want = c.confs
	}
	if want == 0 {
		return evm.SendResult{TxHash: txHash.Hex()}, nil
	}

	receipt, confs, werr := c.waitConfirmed(ctx, txHash, want, opts.PollInterval)
	if werr != nil {
		c.markFailed(ctx, txHash.Hex(), werr.Error())
		return evm.SendResult{}, werr
	}
	if receipt.Status != coretypes.ReceiptStatusSuccessful {
		xe := xerrors.New(xerrors.CodeReverted, "交易执行失败",
			xerrors.WithMetadata("tx_hash", txHash.Hex()))
		c.markFailed(ctx, txHash.Hex(), xe.Error())
		return evm.SendResult{}, xe
	}

	if c.journal != nil {
		if jerr := c.journal.UpdateStatus(ctx, txHash.Hex(), journal.StatusConfirmed, ""); jerr != nil {
			c.log.Warn("更新交易日志失败", slog.String("tx_hash", txHash.Hex()), slog.Any("error", jerr))
		}
	}
	c.publish(ctx, notify.Event{
		Kind:        notify.KindConfirmed,
		Chain:       c.name,
		TxHash:      txHash.Hex(),
		From:        from.Hex(),
		To:          toStr,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	})

	return evm.SendResult{
		TxHash:        txHash.Hex(),
		BlockNumber:   receipt.BlockNumber.Uint64(),
		GasUsed:       receipt.GasUsed,
		Status:        receipt.Status,
		Confirmations: confs,
	}, nil
}

// waitConfirmed 轮询回执直到观察到足够的确认数。
func (c *Client) waitConfirmed(ctx context.Context, txHash common.Hash, want uint64, poll time.Duration) (*coretypes.Receipt, uint64, *xerrors.Error) {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err != nil && !stdErrors.Is(err, ethereum.NotFound) {
			return nil, 0, evm.NormalizeRPCError(err)
		}
		if err == nil && receipt != nil {
			head, herr := c.eth.BlockNumber(ctx)
			if herr != nil {
				return nil, 0, evm.NormalizeRPCError(herr)
			}
			mined := receipt.BlockNumber.Uint64()
			if head >= mined {
				confs := head - mined + 1
				if confs >= want {
					return receipt, confs, nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil, 0, evm.NormalizeRPCError(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) recordSubmitted(ctx context.Context, entry *journal.Entry) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, entry); err != nil {
		c.log.Warn("写入交易日志失败", slog.String("tx_hash", entry.TxHash), slog.Any("error", err))
	}
}

func (c *Client) markFailed(ctx context.Context, txHash, reason string) {
	if c.journal != nil {
		if err := c.journal.UpdateStatus(ctx, txHash, journal.StatusFailed, reason); err != nil {
			c.log.Warn("更新交易日志失败", slog.String("tx_hash", txHash), slog.Any("error", err))
		}
	}
	c.publish(ctx, notify.Event{
		Kind:   notify.KindFailed,
		Chain:  c.name,
		TxHash: txHash,
		Reason: reason,
	})
}

func (c *Client) publish(ctx context.Context, event notify.Event) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(ctx, event); err != nil {
		c.log.Warn("广播交易事件失败", slog.String("tx_hash", event.TxHash), slog.Any("error", err))
	}
}
