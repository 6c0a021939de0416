// Package notify broadcasts transaction lifecycle events to external
// consumers, for example a message queue feeding downstream bookkeeping.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind 表示事件类型。
type Kind string

const (
	KindSubmitted Kind = "tx.submitted"
	KindConfirmed Kind = "tx.confirmed"
	KindFailed    Kind = "tx.failed"
)

// Event 描述一次交易生命周期事件。不包含任何签名材料。
type Event struct {
	Kind        Kind              `json:"kind"`
	Chain       string            `json:"chain"`
	TxHash      string            `json:"tx_hash"`
	From        string            `json:"from,omitempty"`
	To          string            `json:"to,omitempty"`
	BlockNumber uint64            `json:"block_number,omitempty"`
	GasUsed     uint64            `json:"gas_used,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Publisher 负责将事件发送到某一个目的地。
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Dispatcher 将事件广播给多个 Publisher。
type Dispatcher struct {
	publishers []Publisher
}

// NewDispatcher 创建 Dispatcher，nil publisher 会被忽略。
func NewDispatcher(publishers ...Publisher) *Dispatcher {
	set := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p == nil {
			continue
		}
		set = append(set, p)
	}
	return &Dispatcher{publishers: set}
}

// Publish 将事件广播至所有目的地，逐个收集错误。
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	var errs []error
	for _, p := range d.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publisher %s: %w", p.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Close 关闭所有目的地。
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
