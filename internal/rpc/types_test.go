package rpc

import (
	"testing"
)

func TestNewRequestAssignsCorrelationID(t *testing.T) {
	t.Parallel()

	a := NewRequest("eth_call", []any{"0x1"})
	b := NewRequest("eth_call", []any{"0x1"})
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty correlation ids")
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct correlation ids")
	}
}
