package rpc

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	xerrors "OmniEVM/internal/errors"
	"OmniEVM/internal/result"
	"OmniEVM/pkg/logger"

	"github.com/avast/retry-go/v4"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Caller 是引擎依赖的最小传输接口。go-ethereum 与 libevm 的 rpc.Client
// 都满足它，测试中也可以注入桩实现。
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// DelayPolicy 描述两次尝试之间的等待策略。
type DelayPolicy string

const (
	DelayFixed   DelayPolicy = "fixed"
	DelayBackoff DelayPolicy = "backoff"
)

// RetryOptions 控制重试行为。零值表示只尝试一次：重试必须由调用方显式开启，
// 避免持久性故障被悄悄掩盖。
type RetryOptions struct {
	// MaxAttempts 是总尝试次数上限，0 或 1 均表示单次请求。
	MaxAttempts uint
	// Delay 是两次尝试之间的基础等待时长。
	Delay time.Duration
	// Policy 选择固定或指数退避等待，默认固定。
	Policy DelayPolicy
	// RetryIf 覆盖默认的可重试判定。广播类方法的失败始终不重试，
	// 该约束优先于此谓词。
	RetryIf func(error) bool
	// RetryOnRejectedResult 为 true 时，被结果规则拒绝的响应也参与重试。
	RetryOnRejectedResult bool
}

func (o RetryOptions) attempts() uint {
	if o.MaxAttempts == 0 {
		return 1
	}
	return o.MaxAttempts
}

func (o RetryOptions) delayType() retry.DelayTypeFunc {
	if o.Policy == DelayBackoff {
		return retry.BackOffDelay
	}
	return retry.FixedDelay
}

// broadcastMethods 列出提交交易的方法。它们失败后的状态是模糊的
// （可能已进入节点内存池），自动重试存在重复提交风险。
var broadcastMethods = map[string]struct{}{
	"eth_sendRawTransaction": {},
	"eth_sendTransaction":    {},
}

func isBroadcastMethod(method string) bool {
	_, ok := broadcastMethods[method]
	return ok
}

func (o RetryOptions) predicate(method string) retry.RetryIfFunc {
	return func(err error) bool {
		if isBroadcastMethod(method) {
			return false
		}
		if o.RetryIf != nil {
			return o.RetryIf(err)
		}
		xe, ok := xerrors.From(err)
		if !ok {
			return false
		}
		if xe.Code() == xerrors.CodeResultRejected {
			return o.RetryOnRejectedResult
		}
		return xe.Retryable()
	}
}

// Engine 对单个 provider 端点执行 JSON-RPC 请求。除可选缓存外不持有状态，
// 可被多个 goroutine 并发使用。
type Engine struct {
	caller Caller
	cache  *Cache
	logger *slog.Logger
}

// EngineOption 定义可选配置。
type EngineOption func(*Engine)

// WithCache 挂载只读结果缓存。
func WithCache(cache *Cache) EngineOption {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithLogger 指定日志输出。
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = log
	}
}

// NewEngine 基于已有传输构造引擎。
func NewEngine(caller Caller, opts ...EngineOption) *Engine {
	e := &Engine{caller: caller}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.logger == nil {
		e.logger = logger.Named("rpc")
	}
	return e
}

// Dial 连接 provider 端点并返回就绪的引擎。
func Dial(ctx context.Context, url string, opts ...EngineOption) (*Engine, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, xerrors.New(xerrors.CodeConfigInvalid, "未配置 RPC 端点地址")
	}
	client, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTransportFailure, err, "连接 RPC 端点失败")
	}
	return NewEngine(client, opts...), nil
}

// Request 执行一次带重试的 JSON-RPC 调用。传输失败按谓词重试；
// 成功到达的负载先经过结果规则，被拒绝的负载按配置参与同一重试预算。
// 预算耗尽后返回携带最后一次错误的失败 Result，不会把被拒绝的负载交还调用方。
func (e *Engine) Request(ctx context.Context, method string, params []any, retryOpts RetryOptions, rules ResultRules) result.Result[Response] {
	if e == nil || e.caller == nil {
		return result.FailCode[Response](xerrors.CodeConfigInvalid, "RPC 引擎未初始化")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return result.FailCode[Response](xerrors.CodeInvalidArgument, "RPC 方法名不能为空")
	}

	req := NewRequest(method, params)

	// 缓存命中的负载同样要通过本次调用的结果规则，被拒绝时按未命中回源。
	if cached, ok := e.cache.Lookup(ctx, method, params); ok {
		if rules.check(cached) == nil {
			return result.OK(Response{ID: req.ID, Result: cached})
		}
	}

	attempts := retryOpts.attempts()
	var (
		payload json.RawMessage
		tried   uint
	)
	attempt := func() error {
		tried++
		var raw json.RawMessage
		if err := e.caller.CallContext(ctx, &raw, method, params...); err != nil {
			return e.classify(err)
		}
		if err := rules.check(raw); err != nil {
			return err
		}
		payload = raw
		return nil
	}

	err := retry.Do(
		attempt,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(retryOpts.Delay),
		retry.DelayType(retryOpts.delayType()),
		retry.RetryIf(retryOpts.predicate(method)),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		// 重试间隔中被取消时，retry 库会原样返回 ctx.Err()，
		// 这里统一重新分类，保证调用方拿到的错误码不退化。
		xe := e.classify(err)
		if tried > 1 {
			xe = xerrors.Wrap(xerrors.CodeRetriesExhausted, xe, "RPC 重试预算已耗尽",
				xerrors.WithMetadata("attempts", strconv.FormatUint(uint64(tried), 10)),
				xerrors.WithMetadata("method", method))
		}
		e.logger.Warn("RPC 请求失败",
			slog.String("request_id", req.ID),
			slog.String("method", method),
			slog.Uint64("attempts", uint64(tried)),
			slog.String("code", string(xe.Code())))
		return result.Fail[Response](xe)
	}

	e.cache.Store(ctx, method, params, payload)
	return result.OK(Response{ID: req.ID, Result: payload})
}

// classify 将底层传输错误归入统一错误分类：携带错误码的 JSON-RPC 错误
// 对象视为协议错误，其余视为传输错误。上下文取消不参与重试。
func (e *Engine) classify(err error) *xerrors.Error {
	if xe, ok := xerrors.From(err); ok {
		return xe
	}
	var coded interface{ ErrorCode() int }
	if stdErrors.As(err, &coded) {
		return xerrors.Wrap(xerrors.CodeProtocolFailure, err, "节点返回 RPC 错误",
			xerrors.WithMetadata("rpc_code", strconv.Itoa(coded.ErrorCode())))
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, "RPC 请求超时")
	}
	if stdErrors.Is(err, context.Canceled) {
		return xerrors.Wrap(xerrors.CodeTransportFailure, err, "RPC 请求被取消",
			xerrors.WithRetryable(false))
	}
	return xerrors.Wrap(xerrors.CodeTransportFailure, err, "RPC 传输失败")
}
