package geth

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	xerrors "OmniEVM/internal/errors"
	"OmniEVM/internal/evm"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type gethABI = abi.ABI

// coerceArgs 将调用方传入的中立参数转换为底层 ABI 编码器期望的 Go 类型。
func coerceArgs(inputs abi.Arguments, args []any) ([]any, *xerrors.Error) {
	if len(args) != len(inputs) {
		return nil, xerrors.New(xerrors.CodeEncodingFailure,
			fmt.Sprintf("参数数量不匹配: 期望 %d 个, 实际 %d 个", len(inputs), len(args)))
	}
	out := make([]any, len(args))
	for i, arg := range inputs {
		coerced, err := coerceArg(arg.Type, args[i])
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeEncodingFailure, err,
				fmt.Sprintf("参数 %d 无法编码为 %s", i, arg.Type.String()))
		}
		out[i] = coerced
	}
	return out, nil
}

func coerceArg(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		switch val := v.(type) {
		case common.Address:
			return val, nil
		case string:
			if err := evm.ValidateHexAddress(val); err != nil {
				return nil, err
			}
			return common.HexToAddress(val), nil
		}
		return nil, fmt.Errorf("地址参数类型非法: %T", v)
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		target := t.GetType()
		if target.Kind() == reflect.Ptr {
			return n, nil
		}
		out := reflect.New(target).Elem()
		switch target.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if !n.IsUint64() || out.OverflowUint(n.Uint64()) {
				return nil, fmt.Errorf("数值超出 %s 范围: %s", t.String(), n.String())
			}
			out.SetUint(n.Uint64())
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if !n.IsInt64() || out.OverflowInt(n.Int64()) {
				return nil, fmt.Errorf("数值超出 %s 范围: %s", t.String(), n.String())
			}
			out.SetInt(n.Int64())
		default:
			return n, nil
		}
		return out.Interface(), nil
	case abi.BoolTy:
		if val, ok := v.(bool); ok {
			return val, nil
		}
		return nil, fmt.Errorf("布尔参数类型非法: %T", v)
	case abi.StringTy:
		if val, ok := v.(string); ok {
			return val, nil
		}
		return nil, fmt.Errorf("字符串参数类型非法: %T", v)
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		raw, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(raw) != t.Size {
			return nil, fmt.Errorf("定长字节参数长度非法: 期望 %d 字节, 实际 %d 字节", t.Size, len(raw))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(raw))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		items := reflect.ValueOf(v)
		if !items.IsValid() || (items.Kind() != reflect.Slice && items.Kind() != reflect.Array) {
			return nil, fmt.Errorf("数组参数类型非法: %T", v)
		}
		if t.T == abi.ArrayTy && items.Len() != t.Size {
			return nil, fmt.Errorf("定长数组长度非法: 期望 %d, 实际 %d", t.Size, items.Len())
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), items.Len(), items.Len())
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i := 0; i < items.Len(); i++ {
			coerced, err := coerceArg(*t.Elem, items.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("数组元素 %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(coerced))
		}
		return out.Interface(), nil
	default:
		return nil, fmt.Errorf("暂不支持的参数类型: %s", t.String())
	}
}

func toBigInt(v any) (*big.Int, error) {
	switch val := v.(type) {
	case *big.Int:
		if val == nil {
			return nil, fmt.Errorf("数值参数不能为 nil")
		}
		return new(big.Int).Set(val), nil
	case big.Int:
		return new(big.Int).Set(&val), nil
	case string:
		s := strings.TrimSpace(val)
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s = s[2:]
			base = 16
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("无法解析数值: %q", val)
		}
		return n, nil
	case float64:
		// JSON 解码出的整数以 float64 出现，只接受无小数部分的值。
		n, acc := big.NewFloat(val).Int(nil)
		if acc != big.Exact {
			return nil, fmt.Errorf("数值存在小数部分: %v", val)
		}
		return n, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("数值参数类型非法: %T", v)
}

func toBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case string:
		raw, err := hexutil.Decode(val)
		if err != nil {
			return nil, fmt.Errorf("无法解析十六进制字节串: %w", err)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("字节参数类型非法: %T", v)
}

// normalizeValues 把 ABI 解码出的库私有类型转换为统一的中立形态：
// 地址转为 EIP-55 十六进制字符串，整数统一为 *big.Int，字节串转为 0x 前缀
// 十六进制。两个后端对同一输入因此产生可直接比较的输出。
func normalizeValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case *big.Int:
		return new(big.Int).Set(val)
	case []byte:
		return hexutil.Encode(val)
	case bool, string:
		return val
	case common.Hash:
		return val.Hex()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint())
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(raw), rv)
			return hexutil.Encode(raw)
		}
		return normalizeSequence(rv)
	case reflect.Slice:
		return normalizeSequence(rv)
	}
	return v
}

func normalizeSequence(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = normalizeValue(rv.Index(i).Interface())
	}
	return out
}

// parseABI 解析完整合约 ABI。片段形式（单个 JSON 对象）也被接受。
func parseABI(raw string) (*abi.ABI, *xerrors.Error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, xerrors.New(xerrors.CodeConfigInvalid, "未配置合约 ABI")
	}
	if strings.HasPrefix(raw, "{") {
		raw = "[" + raw + "]"
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeEncodingFailure, err, "解析合约 ABI 失败")
	}
	return &parsed, nil
}
