package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLConfig 描述 MySQL 日志存储的连接参数。
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SQLStore 将交易日志持久化到 MySQL。
type SQLStore struct {
	db *sql.DB
}

const createJournalTable = `
CREATE TABLE IF NOT EXISTS tx_journal (
    id         VARCHAR(36)  NOT NULL PRIMARY KEY,
    chain      VARCHAR(64)  NOT NULL,
    tx_hash    VARCHAR(66)  NOT NULL,
    from_addr  VARCHAR(42)  NOT NULL,
    to_addr    VARCHAR(42)  NOT NULL,
    nonce      BIGINT UNSIGNED NOT NULL,
    status     VARCHAR(16)  NOT NULL,
    last_error TEXT         NULL,
    created_at BIGINT       NOT NULL,
    updated_at BIGINT       NOT NULL,
    UNIQUE KEY uk_tx_hash (tx_hash),
    KEY idx_updated_at (updated_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// NewSQLStore 建立连接池并确保表结构就绪。
func NewSQLStore(ctx context.Context, cfg MySQLConfig) (*SQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}
	if _, err := db.ExecContext(ctx, createJournalTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化交易日志表失败: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Record 实现 Store 接口。
func (s *SQLStore) Record(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.TxHash == "" {
		return fmt.Errorf("非法的日志条目")
	}
	now := time.Now().Unix()
	if entry.CreatedAt == 0 {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const insert = `INSERT INTO tx_journal
        (id, chain, tx_hash, from_addr, to_addr, nonce, status, last_error, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, insert,
		entry.ID, entry.Chain, entry.TxHash, entry.From, entry.To,
		entry.Nonce, string(entry.Status), entry.LastError, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return ErrConflict
		}
		return fmt.Errorf("写入交易日志失败: %w", err)
	}
	return nil
}

// UpdateStatus 更新指定交易的状态。
func (s *SQLStore) UpdateStatus(ctx context.Context, txHash string, status Status, lastError string) error {
	const update = `UPDATE tx_journal SET status = ?, last_error = ?, updated_at = ? WHERE tx_hash = ?`
	res, err := s.db.ExecContext(ctx, update, string(status), lastError, time.Now().Unix(), txHash)
	if err != nil {
		return fmt.Errorf("更新交易日志失败: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取更新结果失败: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByHash 返回指定交易的日志条目。
func (s *SQLStore) FindByHash(ctx context.Context, txHash string) (*Entry, error) {
	const query = `SELECT id, chain, tx_hash, from_addr, to_addr, nonce, status, last_error, created_at, updated_at
        FROM tx_journal WHERE tx_hash = ?`
	row := s.db.QueryRowContext(ctx, query, txHash)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询交易日志失败: %w", err)
	}
	return entry, nil
}

// ListLatest 按更新时间倒序返回最近的日志条目。
func (s *SQLStore) ListLatest(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, chain, tx_hash, from_addr, to_addr, nonce, status, last_error, created_at, updated_at
        FROM tx_journal ORDER BY updated_at DESC, created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("查询交易日志失败: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("读取交易日志失败: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历交易日志失败: %w", err)
	}
	return out, nil
}

// Close 释放连接池。
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry     Entry
		status    string
		lastError sql.NullString
	)
	if err := row.Scan(&entry.ID, &entry.Chain, &entry.TxHash, &entry.From, &entry.To,
		&entry.Nonce, &status, &lastError, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	entry.Status = Status(status)
	entry.LastError = lastError.String
	return &entry, nil
}
