package evm

import (
	"context"
	"encoding/hex"
	stdErrors "errors"
	"fmt"
	"math/big"
	"strings"

	xerrors "OmniEVM/internal/errors"
	"OmniEVM/internal/result"
)

// Guard 是包裹 call/send/sign 形态操作的统一装饰器：先执行参数校验，
// 再调用后端实现，并把任何越过实现边界的 panic 归一化为失败 Result，
// 保证能力接口"不抛出预期外异常"的契约与后端内部实现无关。
func Guard[T any](op string, validate func() *xerrors.Error, fn func() (T, *xerrors.Error)) (out Output[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = result.FailCode[T](xerrors.CodeUnknown, fmt.Sprintf("%s 发生未预期异常: %v", op, r))
		}
	}()

	if validate != nil {
		if err := validate(); err != nil {
			return result.Fail[T](err)
		}
	}
	data, err := fn()
	if err != nil {
		return result.Fail[T](err)
	}
	return result.OK(data)
}

// ValidateInput 校验合约调用参数。
func ValidateInput(input Input) *xerrors.Error {
	if strings.TrimSpace(input.Function) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "合约函数名不能为空")
	}
	return nil
}

// ValidateTxOptions 在任何网络请求之前拒绝自相矛盾的交易配置。
func ValidateTxOptions(opts TxOptions) *xerrors.Error {
	if opts.GasPrice != nil && (opts.MaxFeePerGas != nil || opts.MaxPriorityFeePerGas != nil) {
		return xerrors.New(xerrors.CodeConfigInvalid, "gasPrice 与 EIP-1559 费用字段互斥，不能同时设置")
	}
	if opts.Value != nil && opts.Value.Sign() < 0 {
		return xerrors.New(xerrors.CodeConfigInvalid, "交易金额不能为负数")
	}
	if opts.To != "" {
		if err := ValidateHexAddress(opts.To); err != nil {
			return err
		}
	}
	if opts.From != "" {
		if err := ValidateHexAddress(opts.From); err != nil {
			return err
		}
	}
	return nil
}

// ValidateHexAddress 校验 0x 前缀的 20 字节十六进制地址。
func ValidateHexAddress(addr string) *xerrors.Error {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return xerrors.New(xerrors.CodeInvalidArgument, "地址缺少 0x 前缀: "+addr)
	}
	body := addr[2:]
	if len(body) != 40 {
		return xerrors.New(xerrors.CodeInvalidArgument, "地址长度非法: "+addr)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "地址包含非十六进制字符: "+addr)
	}
	return nil
}

// NormalizeRPCError 将后端网络调用返回的错误归入统一分类。revert 错误
// 的 reason 字符串按原样保留在错误信息中。
func NormalizeRPCError(err error) *xerrors.Error {
	if err == nil {
		return nil
	}
	if xe, ok := xerrors.From(err); ok {
		return xe
	}

	var dataErr interface{ ErrorData() any }
	if stdErrors.As(err, &dataErr) {
		if reason, ok := revertReason(dataErr.ErrorData()); ok {
			return xerrors.Wrap(xerrors.CodeReverted, err, reason)
		}
	}
	if msg := err.Error(); strings.Contains(msg, "execution reverted") {
		reason := strings.TrimSpace(strings.TrimPrefix(msg, "execution reverted:"))
		if reason == "" || reason == "execution reverted" {
			reason = "execution reverted"
		}
		return xerrors.Wrap(xerrors.CodeReverted, err, reason)
	}

	var coded interface{ ErrorCode() int }
	if stdErrors.As(err, &coded) {
		return xerrors.Wrap(xerrors.CodeProtocolFailure, err, "节点返回 RPC 错误",
			xerrors.WithMetadata("rpc_code", fmt.Sprintf("%d", coded.ErrorCode())))
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, "链上请求超时")
	}
	if stdErrors.Is(err, context.Canceled) {
		return xerrors.Wrap(xerrors.CodeTransportFailure, err, "链上请求被取消",
			xerrors.WithRetryable(false))
	}
	return xerrors.Wrap(xerrors.CodeTransportFailure, err, "链上请求失败")
}

// RefineRevert 在已分类错误的错误链上二次识别 revert：RPC 引擎只区分
// 传输与协议错误，合约回滚的 reason 需要在这里从错误数据中还原。
func RefineRevert(xe *xerrors.Error) *xerrors.Error {
	if xe == nil || xe.Code() == xerrors.CodeReverted {
		return xe
	}
	var dataErr interface{ ErrorData() any }
	if stdErrors.As(xe, &dataErr) {
		if reason, ok := revertReason(dataErr.ErrorData()); ok {
			return xerrors.Wrap(xerrors.CodeReverted, xe, reason)
		}
	}
	if strings.Contains(xe.Error(), "execution reverted") {
		return xerrors.Wrap(xerrors.CodeReverted, xe, "execution reverted")
	}
	return xe
}

// revertSelector 是 Error(string) 的 4 字节选择器。
var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// revertReason 解析 eth_call 错误附带的 revert 数据。
func revertReason(data any) (string, bool) {
	hexData, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return "", false
	}
	// selector + offset 字 + 长度字
	if len(raw) < 4+32+32 {
		return "", false
	}
	for i, b := range revertSelector {
		if raw[i] != b {
			return "", false
		}
	}
	strLen := new(big.Int).SetBytes(raw[36:68])
	if !strLen.IsInt64() {
		return "", false
	}
	end := 68 + strLen.Int64()
	if end > int64(len(raw)) {
		return "", false
	}
	return string(raw[68:end]), true
}
