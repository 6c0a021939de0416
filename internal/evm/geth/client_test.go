package geth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	xerrors "OmniEVM/internal/errors"
	"OmniEVM/internal/evm"
	"OmniEVM/internal/rpc"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

const testABI = `[
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

type stubRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// newRPCServer 启动一个最小 JSON-RPC HTTP 桩服务。
func newRPCServer(t *testing.T, handler func(method string, params []json.RawMessage) (any, *stubRPCError)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		result, rpcErr := handler(req.Method, req.Params)
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), Config{
		Name:            "testnet",
		RPCURL:          url,
		ContractAddress: testContract,
		ContractABI:     testABI,
	}, opts...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestSelectorByName(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	out := c.SelectorByName("transfer(address,uint256)")
	if !out.OK() {
		t.Fatalf("SelectorByName failed: %v", out.Err())
	}
	if out.Data() != "0xa9059cbb" {
		t.Fatalf("selector = %s, want 0xa9059cbb", out.Data())
	}

	if bad := c.SelectorByName("not a signature"); bad.OK() {
		t.Fatal("malformed signature accepted")
	}
}

func TestSelectorByABIMatchesName(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	fragment := `{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}`
	byABI := c.SelectorByABI(fragment)
	if !byABI.OK() {
		t.Fatalf("SelectorByABI failed: %v", byABI.Err())
	}
	byName := c.SelectorByName("transfer(address,uint256)")
	if byABI.Data() != byName.Data() {
		t.Fatalf("selector mismatch: %s vs %s", byABI.Data(), byName.Data())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	recipient := "0x52908400098527886E0F7030069857D2E4169EE7"
	input := evm.Input{
		Function: "transfer",
		Args:     []any{recipient, big.NewInt(12345)},
	}

	encoded := c.EncodeInput(input)
	if !encoded.OK() {
		t.Fatalf("EncodeInput failed: %v", encoded.Err())
	}
	if !strings.HasPrefix(encoded.Data(), "0xa9059cbb") {
		t.Fatalf("calldata missing transfer selector: %s", encoded.Data())
	}

	decoded := c.DecodeTxInput(encoded.Data())
	if !decoded.OK() {
		t.Fatalf("DecodeTxInput failed: %v", decoded.Err())
	}
	if decoded.Data().Function != "transfer" {
		t.Fatalf("function = %s, want transfer", decoded.Data().Function)
	}
	args := decoded.Data().Args
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if addr, ok := args[0].(string); !ok || addr != recipient {
		t.Fatalf("decoded address = %v, want %s", args[0], recipient)
	}
	amount, ok := args[1].(*big.Int)
	if !ok || amount.Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("decoded amount = %v, want 12345", args[1])
	}
}

func TestEncodeInputRejectsBadArgs(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	out := c.EncodeInput(evm.Input{Function: "transfer", Args: []any{"0x52908400098527886E0F7030069857D2E4169EE7"}})
	if out.OK() || out.Code() != xerrors.CodeEncodingFailure {
		t.Fatalf("expected ENCODING_FAILURE for missing arg, got %v", out.Code())
	}

	out = c.EncodeInput(evm.Input{Function: "transfer", Args: []any{"not-an-address", big.NewInt(1)}})
	if out.OK() || out.Code() != xerrors.CodeEncodingFailure {
		t.Fatalf("expected ENCODING_FAILURE for bad address, got %v", out.Code())
	}

	out = c.EncodeInput(evm.Input{Function: "unknown", Args: nil})
	if out.OK() || out.Code() != xerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown function, got %v", out.Code())
	}
}

func TestDecodeTxInputMalformed(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	if out := c.DecodeTxInput("0x01"); out.OK() || out.Code() != xerrors.CodeEncodingFailure {
		t.Fatalf("short calldata: got %v, want ENCODING_FAILURE", out.Code())
	}
	if out := c.DecodeTxInput("0xzzzz"); out.OK() || out.Code() != xerrors.CodeEncodingFailure {
		t.Fatalf("non-hex calldata: got %v, want ENCODING_FAILURE", out.Code())
	}
	if out := c.DecodeTxInput("0xdeadbeef"); out.OK() || out.Code() != xerrors.CodeNotFound {
		t.Fatalf("unknown selector: got %v, want NOT_FOUND", out.Code())
	}
}

func TestCallDecodesResult(t *testing.T) {
	balance := big.NewInt(987654321)
	server := newRPCServer(t, func(method string, params []json.RawMessage) (any, *stubRPCError) {
		if method != "eth_call" {
			return nil, &stubRPCError{Code: -32601, Message: "method not found"}
		}
		return "0x" + hex.EncodeToString(balance.FillBytes(make([]byte, 32))), nil
	})
	c := newTestClient(t, server.URL)

	out := c.Call(context.Background(), evm.Input{
		Function: "balanceOf",
		Args:     []any{"0x52908400098527886E0F7030069857D2E4169EE7"},
	})
	if !out.OK() {
		t.Fatalf("Call failed: %v", out.Err())
	}
	if len(out.Data()) != 1 {
		t.Fatalf("expected 1 output, got %d", len(out.Data()))
	}
	got, ok := out.Data()[0].(*big.Int)
	if !ok || got.Cmp(balance) != 0 {
		t.Fatalf("decoded balance = %v, want %s", out.Data()[0], balance)
	}
}

// revertPayload 构造 Error(string) 形式的 revert 数据。
func revertPayload(reason string) string {
	data := []byte{0x08, 0xc3, 0x79, 0xa0}
	offset := make([]byte, 32)
	offset[31] = 0x20
	data = append(data, offset...)
	data = append(data, new(big.Int).SetInt64(int64(len(reason))).FillBytes(make([]byte, 32))...)
	padded := make([]byte, (len(reason)+31)/32*32)
	copy(padded, reason)
	data = append(data, padded...)
	return "0x" + hex.EncodeToString(data)
}

func TestCallSurfacesRevertReason(t *testing.T) {
	server := newRPCServer(t, func(method string, params []json.RawMessage) (any, *stubRPCError) {
		return nil, &stubRPCError{
			Code:    3,
			Message: "execution reverted",
			Data:    revertPayload("transfer amount exceeds balance"),
		}
	})
	c := newTestClient(t, server.URL)

	out := c.Call(context.Background(), evm.Input{
		Function: "balanceOf",
		Args:     []any{"0x52908400098527886E0F7030069857D2E4169EE7"},
	})
	if out.OK() {
		t.Fatal("expected revert failure")
	}
	if out.Code() != xerrors.CodeReverted {
		t.Fatalf("code = %s, want REVERTED", out.Code())
	}
	if !strings.Contains(out.Err().Error(), "transfer amount exceeds balance") {
		t.Fatalf("revert reason missing: %v", out.Err())
	}
}

func TestRawRequest(t *testing.T) {
	server := newRPCServer(t, func(method string, params []json.RawMessage) (any, *stubRPCError) {
		if method == "eth_chainId" {
			return "0x1", nil
		}
		return nil, &stubRPCError{Code: -32601, Message: "method not found"}
	})
	c := newTestClient(t, server.URL)

	out := c.RawRequest(context.Background(), "eth_chainId", nil, rpc.RetryOptions{}, rpc.ResultRules{})
	if !out.OK() {
		t.Fatalf("RawRequest failed: %v", out.Err())
	}
	if string(out.Data()) != `"0x1"` {
		t.Fatalf("raw result = %s, want \"0x1\"", out.Data())
	}

	bad := c.RawRequest(context.Background(), "eth_unknown", nil, rpc.RetryOptions{}, rpc.ResultRules{})
	if bad.OK() || bad.Code() != xerrors.CodeProtocolFailure {
		t.Fatalf("expected PROTOCOL_FAILURE, got %v", bad.Code())
	}
}

func TestSendRequiresSigner(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	out := c.Send(context.Background(), evm.Input{Function: "transfer",
		Args: []any{"0x52908400098527886E0F7030069857D2E4169EE7", big.NewInt(1)}}, evm.TxOptions{})
	if out.OK() || out.Code() != xerrors.CodeSignerMissing {
		t.Fatalf("expected SIGNER_MISSING, got %v", out.Code())
	}
}

func TestSendRejectsFeeModelConflictBeforeIO(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	out := c.Send(context.Background(), evm.Input{}, evm.TxOptions{
		GasPrice:     big.NewInt(1),
		MaxFeePerGas: big.NewInt(2),
	})
	if out.OK() || out.Code() != xerrors.CodeConfigInvalid {
		t.Fatalf("expected CONFIG_INVALID, got %v", out.Code())
	}
}

func TestUninitializedClientIsInert(t *testing.T) {
	var c *Client

	if c.ProviderURL() != "" || c.ContractAddress() != "" || c.ContractABI() != "" {
		t.Fatal("nil client accessors must return zero values")
	}
	if c.NativeClient() != nil {
		t.Fatal("nil client must not expose a native handle")
	}
	if c.Type() != evm.TypeGeth {
		t.Fatalf("type = %s, want geth", c.Type())
	}
	c.Close()

	out := c.RawRequest(context.Background(), "eth_chainId", nil, rpc.RetryOptions{}, rpc.ResultRules{})
	if out.OK() || out.Code() != xerrors.CodeConfigInvalid {
		t.Fatalf("expected CONFIG_INVALID from nil client, got %v", out.Code())
	}
}

// 公开的 hardhat 测试私钥，仅用于离线签名。
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// newTxFlowServer 模拟一笔交易从组装到确认的完整节点交互。
func newTxFlowServer(t *testing.T, mu *sync.Mutex, seen *[]string) *httptest.Server {
	t.Helper()
	return newRPCServer(t, func(method string, params []json.RawMessage) (any, *stubRPCError) {
		mu.Lock()
		*seen = append(*seen, method)
		mu.Unlock()
		switch method {
		case "eth_chainId":
			return "0x539", nil
		case "eth_getTransactionCount":
			return "0x0", nil
		case "eth_estimateGas":
			return "0x5208", nil
		case "eth_gasPrice":
			return "0x3b9aca00", nil
		case "eth_sendRawTransaction":
			return "0x" + strings.Repeat("22", 32), nil
		case "eth_blockNumber":
			return "0x10", nil
		case "eth_getTransactionReceipt":
			var hash string
			_ = json.Unmarshal(params[0], &hash)
			return map[string]any{
				"status":            "0x1",
				"cumulativeGasUsed": "0x5208",
				"logsBloom":         "0x" + strings.Repeat("0", 512),
				"logs":              []any{},
				"transactionHash":   hash,
				"gasUsed":           "0x5208",
				"blockHash":         "0x" + strings.Repeat("11", 32),
				"blockNumber":       "0x10",
				"transactionIndex":  "0x0",
			}, nil
		default:
			return nil, &stubRPCError{Code: -32601, Message: "method not found"}
		}
	})
}

func sawMethod(mu *sync.Mutex, seen *[]string, method string) bool {
	mu.Lock()
	defer mu.Unlock()
	for _, m := range *seen {
		if m == method {
			return true
		}
	}
	return false
}

func TestSendHonorsConfiguredDefaultConfirmations(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := newTxFlowServer(t, &mu, &seen)

	client, err := NewClient(context.Background(), Config{
		Name:            "testnet",
		RPCURL:          server.URL,
		ContractAddress: testContract,
		ContractABI:     testABI,
		PrivateKey:      testKey,
		Confirmations:   1,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Close)

	out := client.Send(context.Background(), evm.Input{
		Function: "transfer",
		Args:     []any{"0x52908400098527886E0F7030069857D2E4169EE7", big.NewInt(1)},
	}, evm.TxOptions{})
	if !out.OK() {
		t.Fatalf("Send failed: %v", out.Err())
	}
	if out.Data().TxHash == "" {
		t.Fatal("expected a transaction hash")
	}
	if out.Data().BlockNumber != 16 {
		t.Fatalf("block number = %d, want 16", out.Data().BlockNumber)
	}
	if out.Data().Confirmations != 1 {
		t.Fatalf("confirmations = %d, want 1", out.Data().Confirmations)
	}
	if !sawMethod(&mu, &seen, "eth_getTransactionReceipt") {
		t.Fatal("configured default confirmations must trigger receipt polling")
	}
}

func TestSendWithoutConfirmationsReturnsAfterBroadcast(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := newTxFlowServer(t, &mu, &seen)

	client, err := NewClient(context.Background(), Config{
		Name:            "testnet",
		RPCURL:          server.URL,
		ContractAddress: testContract,
		ContractABI:     testABI,
		PrivateKey:      testKey,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Close)

	out := client.Send(context.Background(), evm.Input{
		Function: "transfer",
		Args:     []any{"0x52908400098527886E0F7030069857D2E4169EE7", big.NewInt(1)},
	}, evm.TxOptions{})
	if !out.OK() {
		t.Fatalf("Send failed: %v", out.Err())
	}
	if out.Data().TxHash == "" {
		t.Fatal("expected a transaction hash")
	}
	if out.Data().BlockNumber != 0 {
		t.Fatalf("expected no confirmation wait, got block %d", out.Data().BlockNumber)
	}
	if sawMethod(&mu, &seen, "eth_getTransactionReceipt") {
		t.Fatal("receipt must not be polled when no confirmations are requested")
	}
}

func TestGenerateWeiDelegation(t *testing.T) {
	c := newTestClient(t, "http://localhost:8545")

	out := c.GenerateWei("2", evm.UnitGwei)
	if !out.OK() {
		t.Fatalf("GenerateWei failed: %v", out.Err())
	}
	if out.Data().Cmp(big.NewInt(2000000000)) != 0 {
		t.Fatalf("wei = %s, want 2000000000", out.Data())
	}
}
