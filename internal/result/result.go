package result

import (
	xerrors "OmniEVM/internal/errors"
)

// Result 是所有对外操作的统一返回容器：要么携带数据，要么携带错误，
// 二者不会同时出现。预期内的失败通过 Result 返回，不通过 panic 传播。
type Result[T any] struct {
	data T
	err  *xerrors.Error
}

// OK 构造成功结果。
func OK[T any](data T) Result[T] {
	return Result[T]{data: data}
}

// Fail 构造失败结果。err 为 nil 时按 UNKNOWN 处理，避免出现既无数据
// 也无错误的空壳。
func Fail[T any](err *xerrors.Error) Result[T] {
	if err == nil {
		err = xerrors.New(xerrors.CodeUnknown, "")
	}
	return Result[T]{err: err}
}

// FailCode 以错误码和描述构造失败结果。
func FailCode[T any](code xerrors.Code, message string, opts ...xerrors.Option) Result[T] {
	return Fail[T](xerrors.New(code, message, opts...))
}

// FailWrap 包裹底层错误构造失败结果。
func FailWrap[T any](code xerrors.Code, cause error, message string, opts ...xerrors.Option) Result[T] {
	return Fail[T](xerrors.Wrap(code, cause, message, opts...))
}

// OK 报告结果是否成功。
func (r Result[T]) OK() bool {
	return r.err == nil
}

// Data 返回成功数据。失败时返回零值。
func (r Result[T]) Data() T {
	return r.data
}

// Err 返回失败错误。成功时返回 nil。
func (r Result[T]) Err() *xerrors.Error {
	return r.err
}

// Code 返回失败错误码，成功时返回空串。
func (r Result[T]) Code() xerrors.Code {
	if r.err == nil {
		return ""
	}
	return r.err.Code()
}

// Unwrap 以 (data, error) 形式展开，便于和惯用 Go 代码衔接。
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		return r.data, r.err
	}
	return r.data, nil
}

// Map 在成功时将数据转换为另一种类型，失败时原样传递错误。
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.err != nil {
		return Fail[U](r.err)
	}
	return OK(fn(r.data))
}
