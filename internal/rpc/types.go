package rpc

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Request 表示一次规范化的 JSON-RPC 调用：方法名、按位置排列的参数，
// 以及用于日志关联的请求标识。
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// NewRequest 构造带关联标识的请求。
func NewRequest(method string, params []any) Request {
	return Request{
		ID:     uuid.NewString(),
		Method: method,
		Params: params,
	}
}

// Response 承载一次成功调用的结果负载。协议层错误不会出现在这里，
// 它们通过统一的 Result 失败分支返回。
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
}
