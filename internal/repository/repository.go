package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/config"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
	loc    *time.Location
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}

	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
		loc:    loc,
	}
}

// 每一次查询都有独立的超时时间，调用方的 ctx 取消也会中断查询
func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.QueryTimeout())
}

func (r *Repository) transactionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.TransactionTimeout())
}

// wrapError 将 sql.ErrNoRows 转换为 domain.ErrNotFound，其余错误统一包装为 PersistenceError
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var vErr *domain.ValidationError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConcurrencyConflict), errors.As(err, &vErr):
		return err
	default:
		return &domain.PersistenceError{Op: op, Err: err}
	}
}

const dateLayout = "2006-01-02"

// 日期以字符串形式传给数据库，避免驱动按 UTC 转换导致日期偏移
func (r *Repository) dateParam(t time.Time) string {
	return t.Format(dateLayout)
}

type scanner interface {
	Scan(dest ...any) error
}
