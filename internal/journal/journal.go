package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status 表示交易在日志中的生命周期状态。
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// 预定义错误，便于调用方用 errors.Is 判断。
var (
	ErrNotFound = errors.New("journal: entry not found")
	ErrConflict = errors.New("journal: entry already exists")
)

// Entry 记录一笔已提交交易的关键信息，用于事后审计与对账。
// 不保存任何签名材料。
type Entry struct {
	ID        string
	Chain     string
	TxHash    string
	From      string
	To        string
	Nonce     uint64
	Status    Status
	LastError string
	CreatedAt int64
	UpdatedAt int64
}

// NewEntry 以提交状态构造日志条目。
func NewEntry(chain, txHash, from, to string, nonce uint64) *Entry {
	now := time.Now().Unix()
	return &Entry{
		ID:        uuid.NewString(),
		Chain:     chain,
		TxHash:    txHash,
		From:      from,
		To:        to,
		Nonce:     nonce,
		Status:    StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store 抽象交易日志的持久化能力。实现必须可被并发使用。
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	UpdateStatus(ctx context.Context, txHash string, status Status, lastError string) error
	FindByHash(ctx context.Context, txHash string) (*Entry, error)
	ListLatest(ctx context.Context, limit int) ([]*Entry, error)
	Close() error
}
