package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "OmniEVM/internal/errors"
)

// MemoryStore 以内存方式保存交易日志，用于测试与本地开发。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Record 实现 Store 接口。
func (m *MemoryStore) Record(_ context.Context, entry *Entry) error {
	if entry == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "entry 不能为空")
	}
	if entry.TxHash == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "交易哈希不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.TxHash]; ok {
		return ErrConflict
	}
	now := time.Now().Unix()
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	clone := *entry
	m.entries[entry.TxHash] = &clone
	return nil
}

// UpdateStatus 更新指定交易的状态。
func (m *MemoryStore) UpdateStatus(_ context.Context, txHash string, status Status, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[txHash]
	if !ok {
		return ErrNotFound
	}
	entry.Status = status
	entry.LastError = lastError
	entry.UpdatedAt = time.Now().Unix()
	return nil
}

// FindByHash 返回指定交易的日志条目。
func (m *MemoryStore) FindByHash(_ context.Context, txHash string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[txHash]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

// ListLatest 按更新时间倒序返回最近的日志条目。
func (m *MemoryStore) ListLatest(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		clone := *entry
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt == out[j].UpdatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Close 实现 Store 接口。
func (m *MemoryStore) Close() error {
	return nil
}
