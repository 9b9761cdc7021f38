package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
)

func (r *Repository) GetRequestByID(ctx context.Context, id int64) (*domain.Request, error) {
	query := `
		SELECT title, type, priority, estimated_hours, status, created_at
		FROM requests WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	req := &domain.Request{
		ID: id,
	}

	dst := []any{&req.Title, &req.Type, &req.Priority, &req.EstimatedHours, &req.Status, &req.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("需求 %d: %w", id, domain.ErrNotFound)
		}
		return nil, wrapError("repository.GetRequestByID", err)
	}

	return req, nil
}

func (r *Repository) CreateRequest(ctx context.Context, req *domain.Request) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO requests (title, type, priority, estimated_hours, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	args := []any{req.Title, req.Type, req.Priority, req.EstimatedHours, req.Status}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&req.ID, &req.CreatedAt); err != nil {
		return wrapError("repository.CreateRequest", err)
	}

	return nil
}

// GetUnassignedRequests 返回可排期且已分配工时小于预估工时的需求，用于重建待分配队列
func (r *Repository) GetUnassignedRequests(ctx context.Context) ([]*domain.Request, error) {
	query := `
		SELECT r.id, r.title, r.type, r.priority, r.estimated_hours, r.status, r.created_at
		FROM requests r
		LEFT JOIN assignments a ON a.request_id = r.id
		WHERE r.status IN ('backlog', 'planned', 'in_progress')
		GROUP BY r.id
		HAVING COALESCE(SUM(a.allocated_hours), 0) < r.estimated_hours
		ORDER BY r.created_at
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapError("repository.GetUnassignedRequests", err)
	}
	defer rows.Close()

	requests := make([]*domain.Request, 0)
	for rows.Next() {
		req := &domain.Request{}
		dst := []any{&req.ID, &req.Title, &req.Type, &req.Priority, &req.EstimatedHours, &req.Status, &req.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, wrapError("repository.GetUnassignedRequests", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError("repository.GetUnassignedRequests", err)
	}

	return requests, nil
}
