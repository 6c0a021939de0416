package rpc

import (
	"bytes"
	"encoding/json"

	xerrors "OmniEVM/internal/errors"
)

// ResultRules 决定一个语法上合法的响应是否在语义上可接受。
// 传输成功不代表语义成功：空负载、节点返回的占位值等都可能需要按失败处理。
type ResultRules struct {
	// AllowEmpty 为 true 时接受 null、"0x" 等空负载。
	AllowEmpty bool
	// Validate 为调用方自定义的校验器，返回非 nil 即判定拒绝。
	Validate func(json.RawMessage) error
}

// check 依次应用空负载规则与自定义校验器。
func (r ResultRules) check(payload json.RawMessage) error {
	if !r.AllowEmpty && isEmptyPayload(payload) {
		return xerrors.New(xerrors.CodeResultRejected, "RPC 返回了空结果")
	}
	if r.Validate != nil {
		if err := r.Validate(payload); err != nil {
			return xerrors.Wrap(xerrors.CodeResultRejected, err, "RPC 结果未通过校验规则")
		}
	}
	return nil
}

func isEmptyPayload(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, `"0x"`, "[]", "{}":
		return true
	}
	return false
}
