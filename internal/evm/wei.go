package evm

import (
	"math/big"
	"strings"

	xerrors "OmniEVM/internal/errors"
)

// Unit 表示人类可读的币值单位。
type Unit string

const (
	UnitWei    Unit = "wei"
	UnitKwei   Unit = "kwei"
	UnitMwei   Unit = "mwei"
	UnitGwei   Unit = "gwei"
	UnitSzabo  Unit = "szabo"
	UnitFinney Unit = "finney"
	UnitEther  Unit = "ether"
)

// unitDecimals 给出每个单位相对 wei 的十进制位数。
var unitDecimals = map[Unit]int{
	UnitWei:    0,
	UnitKwei:   3,
	UnitMwei:   6,
	UnitGwei:   9,
	UnitSzabo:  12,
	UnitFinney: 15,
	UnitEther:  18,
	// 常见别名
	Unit("microether"): 12,
	Unit("milliether"): 15,
	Unit("eth"):        18,
}

// GenerateWei 将十进制数量精确换算为 wei。amount 接受可选小数部分
// （如 "1.5"），换算全程使用整数运算，超出单位精度的小数位直接判错，
// 绝不四舍五入。
func GenerateWei(amount string, unit Unit) (*big.Int, *xerrors.Error) {
	decimals, ok := unitDecimals[Unit(strings.ToLower(strings.TrimSpace(string(unit))))]
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "不支持的单位: "+string(unit))
	}

	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "数量不能为空")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "链上数量不能为负数")
	}

	intPart, fracPart, _ := strings.Cut(amount, ".")
	if intPart == "" {
		intPart = "0"
	}
	if strings.Contains(fracPart, ".") {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "非法的数量格式: "+amount)
	}

	value, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "非法的数量格式: "+amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value.Mul(value, scale)

	if fracPart != "" {
		fracPart = strings.TrimRight(fracPart, "0")
		if len(fracPart) > decimals {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "小数位超出单位精度: "+amount)
		}
		if fracPart != "" {
			frac, ok := new(big.Int).SetString(fracPart, 10)
			if !ok || frac.Sign() < 0 {
				return nil, xerrors.New(xerrors.CodeInvalidArgument, "非法的数量格式: "+amount)
			}
			padding := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-len(fracPart))), nil)
			value.Add(value, frac.Mul(frac, padding))
		}
	}

	return value, nil
}
