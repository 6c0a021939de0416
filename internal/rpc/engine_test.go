package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	xerrors "OmniEVM/internal/errors"
)

// stubCaller 以脚本化方式模拟传输层。
type stubCaller struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, result any, method string, args []any) error
}

func (s *stubCaller) CallContext(_ context.Context, result any, method string, args ...any) error {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call, result, method, args)
}

func (s *stubCaller) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func setPayload(result any, payload string) {
	raw, ok := result.(*json.RawMessage)
	if !ok {
		panic(fmt.Sprintf("unexpected result target %T", result))
	}
	*raw = json.RawMessage(payload)
}

type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string  { return e.msg }
func (e *codedError) ErrorCode() int { return e.code }

func TestRequestSingleAttemptByDefault(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(int, any, string, []any) error {
		return errors.New("connection refused")
	}}
	engine := NewEngine(caller)

	res := engine.Request(context.Background(), "eth_blockNumber", nil, RetryOptions{}, ResultRules{})
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if got := res.Err().Code(); got != xerrors.CodeTransportFailure {
		t.Fatalf("unexpected code %s", got)
	}
	if caller.callCount() != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", caller.callCount())
	}
}

func TestRequestRetryCeiling(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(int, any, string, []any) error {
		return errors.New("connection reset")
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{MaxAttempts: 4, Delay: time.Millisecond}
	res := engine.Request(context.Background(), "eth_blockNumber", nil, opts, ResultRules{})
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if caller.callCount() != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", caller.callCount())
	}
	if got := res.Err().Code(); got != xerrors.CodeRetriesExhausted {
		t.Fatalf("unexpected code %s", got)
	}
	if res.Err().Metadata()["attempts"] != "4" {
		t.Fatalf("unexpected attempts metadata %v", res.Err().Metadata())
	}
	if !errors.Is(res.Err(), xerrors.New(xerrors.CodeTransportFailure, "")) {
		t.Fatal("expected last transport error to be preserved")
	}
}

func TestRequestRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(call int, result any, _ string, _ []any) error {
		if call < 3 {
			return errors.New("i/o timeout")
		}
		setPayload(result, `"0x10"`)
		return nil
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{MaxAttempts: 5, Delay: time.Millisecond}
	res := engine.Request(context.Background(), "eth_blockNumber", nil, opts, ResultRules{})
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if caller.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", caller.callCount())
	}
	if string(res.Data().Result) != `"0x10"` {
		t.Fatalf("unexpected payload %s", res.Data().Result)
	}
	if res.Data().ID == "" {
		t.Fatal("expected correlation id to be set")
	}
}

func TestRequestProtocolErrorNotRetried(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(int, any, string, []any) error {
		return &codedError{code: -32601, msg: "method not found"}
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{MaxAttempts: 3, Delay: time.Millisecond}
	res := engine.Request(context.Background(), "eth_unknown", nil, opts, ResultRules{})
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if caller.callCount() != 1 {
		t.Fatalf("expected a single attempt, got %d", caller.callCount())
	}
	if got := res.Err().Code(); got != xerrors.CodeProtocolFailure {
		t.Fatalf("unexpected code %s", got)
	}
	if res.Err().Metadata()["rpc_code"] != "-32601" {
		t.Fatalf("unexpected metadata %v", res.Err().Metadata())
	}
}

func TestRequestEmptyResultRejected(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(_ int, result any, _ string, _ []any) error {
		setPayload(result, `"0x"`)
		return nil
	}}
	engine := NewEngine(caller)

	res := engine.Request(context.Background(), "eth_call", nil, RetryOptions{}, ResultRules{})
	if res.OK() {
		t.Fatal("expected rejection")
	}
	if got := res.Err().Code(); got != xerrors.CodeResultRejected {
		t.Fatalf("unexpected code %s", got)
	}
	if caller.callCount() != 1 {
		t.Fatalf("rejection must not retry unless opted in, got %d attempts", caller.callCount())
	}
}

func TestRequestRejectedResultRetriesWhenOptedIn(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(_ int, result any, _ string, _ []any) error {
		setPayload(result, "null")
		return nil
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{MaxAttempts: 3, Delay: time.Millisecond, RetryOnRejectedResult: true}
	res := engine.Request(context.Background(), "eth_call", nil, opts, ResultRules{})
	if res.OK() {
		t.Fatal("expected hard failure after exhaustion")
	}
	if caller.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", caller.callCount())
	}
	if got := res.Err().Code(); got != xerrors.CodeRetriesExhausted {
		t.Fatalf("unexpected code %s", got)
	}
	if !errors.Is(res.Err(), xerrors.New(xerrors.CodeResultRejected, "")) {
		t.Fatal("expected the rejection to be preserved as cause")
	}
}

func TestRequestAllowEmptyAcceptsNull(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(_ int, result any, _ string, _ []any) error {
		setPayload(result, "null")
		return nil
	}}
	engine := NewEngine(caller)

	res := engine.Request(context.Background(), "eth_getTransactionReceipt", nil, RetryOptions{}, ResultRules{AllowEmpty: true})
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err())
	}
	if string(res.Data().Result) != "null" {
		t.Fatalf("unexpected payload %s", res.Data().Result)
	}
}

func TestRequestValidateRule(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(_ int, result any, _ string, _ []any) error {
		setPayload(result, `"0xdeadbeef"`)
		return nil
	}}
	engine := NewEngine(caller)

	rules := ResultRules{Validate: func(payload json.RawMessage) error {
		if string(payload) == `"0xdeadbeef"` {
			return errors.New("sentinel payload")
		}
		return nil
	}}
	res := engine.Request(context.Background(), "eth_call", nil, RetryOptions{}, rules)
	if res.OK() {
		t.Fatal("expected rejection")
	}
	if got := res.Err().Code(); got != xerrors.CodeResultRejected {
		t.Fatalf("unexpected code %s", got)
	}
}

func TestRequestBroadcastNeverRetried(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(int, any, string, []any) error {
		return errors.New("timeout after broadcast")
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		RetryIf:     func(error) bool { return true },
	}
	res := engine.Request(context.Background(), "eth_sendRawTransaction", []any{"0x00"}, opts, ResultRules{})
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if caller.callCount() != 1 {
		t.Fatalf("broadcast failure must never be resubmitted, got %d attempts", caller.callCount())
	}
}

func TestRequestEmptyMethod(t *testing.T) {
	t.Parallel()

	caller := &stubCaller{fn: func(int, any, string, []any) error {
		t.Fatal("caller must not be invoked")
		return nil
	}}
	engine := NewEngine(caller)

	res := engine.Request(context.Background(), "  ", nil, RetryOptions{}, ResultRules{})
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if got := res.Err().Code(); got != xerrors.CodeInvalidArgument {
		t.Fatalf("unexpected code %s", got)
	}
}

func TestRequestContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	caller := &stubCaller{fn: func(int, any, string, []any) error {
		cancel()
		return errors.New("connection reset")
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{MaxAttempts: 10, Delay: 50 * time.Millisecond}
	done := make(chan struct{})
	go func() {
		defer close(done)
		res := engine.Request(ctx, "eth_blockNumber", nil, opts, ResultRules{})
		if res.OK() {
			t.Error("expected failure result")
			return
		}
		// 在重试间隔中被取消，错误码不得退化为 UNKNOWN。
		if got := res.Err().Code(); got != xerrors.CodeTransportFailure {
			t.Errorf("unexpected code %s", got)
		}
		if !errors.Is(res.Err(), context.Canceled) {
			t.Error("expected the cancellation to be preserved as cause")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not honor context cancellation")
	}
}

func TestRequestDeadlineDuringDelayClassifiedAsTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	caller := &stubCaller{fn: func(int, any, string, []any) error {
		return errors.New("connection reset")
	}}
	engine := NewEngine(caller)

	opts := RetryOptions{MaxAttempts: 10, Delay: 500 * time.Millisecond}
	res := engine.Request(ctx, "eth_blockNumber", nil, opts, ResultRules{})
	if res.OK() {
		t.Fatal("expected failure result")
	}
	if got := res.Err().Code(); got != xerrors.CodeTimeout {
		t.Fatalf("unexpected code %s", got)
	}
	if !errors.Is(res.Err(), context.DeadlineExceeded) {
		t.Fatal("expected the deadline error to be preserved as cause")
	}
}
