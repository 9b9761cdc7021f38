package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/utils"
	"github.com/shopspring/decimal"
)

const assignmentColumns = `
	id,
	request_id,
	user_id,
	assigned_date,
	allocated_hours,
	notes,
	status,
	created_by,
	created_at,
	version
`

func (r *Repository) scanAssignment(row scanner) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	dst := []any{
		&a.ID,
		&a.RequestID,
		&a.UserID,
		&a.AssignedDate,
		&a.AllocatedHours,
		&a.Notes,
		&a.Status,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	// DATE 类型读出来是 UTC 零点，统一到配置时区的中午
	a.AssignedDate = calendar.InLocation(a.AssignedDate, r.loc)

	return a, nil
}

func (r *Repository) queryAssignments(ctx context.Context, op string, query string, args ...any) ([]*domain.Assignment, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, wrapError(op, err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError(op, err)
	}

	return assignments, nil
}

// CreateAssignments 在同一个事务中锁定需求、重新读取已分配工时并批量插入
// 任意一条插入失败都会回滚整个批次
func (r *Repository) CreateAssignments(ctx context.Context, requestID int64, assignments []*domain.Assignment) error {
	const op = "repository.CreateAssignments"

	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return wrapError(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 先锁住需求这一行，保证同一需求的并发确认串行执行
	var estimated decimal.Decimal
	query := `SELECT estimated_hours FROM requests WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, query, requestID).Scan(&estimated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("需求 %d: %w", requestID, domain.ErrNotFound)
		}
		return wrapError(op, err)
	}

	var existing decimal.Decimal
	query = `SELECT COALESCE(SUM(allocated_hours), 0) FROM assignments WHERE request_id = $1`
	if err := tx.QueryRowContext(ctx, query, requestID).Scan(&existing); err != nil {
		return wrapError(op, err)
	}

	total := existing
	for _, a := range assignments {
		total = total.Add(a.AllocatedHours)
	}
	if err := utils.ValidateEstimateCeiling(total, estimated); err != nil {
		return err
	}

	query = `
		INSERT INTO assignments (
			request_id,
			user_id,
			assigned_date,
			allocated_hours,
			notes,
			status,
			created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	for i, a := range assignments {
		params := []any{
			requestID,
			a.UserID,
			r.dateParam(a.AssignedDate),
			a.AllocatedHours,
			a.Notes,
			a.Status,
			a.CreatedBy,
		}
		dst := []any{&a.ID, &a.CreatedAt, &a.Version}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
			return wrapError(fmt.Sprintf("%s[%d]", op, i), err)
		}
		a.RequestID = requestID
	}

	if err := tx.Commit(); err != nil {
		return wrapError(op, err)
	}

	return nil
}

func (r *Repository) GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	a, err := r.scanAssignment(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("分配 %d: %w", id, domain.ErrNotFound)
		}
		return nil, wrapError("repository.GetAssignmentByID", err)
	}

	return a, nil
}

func (r *Repository) GetAssignmentsByRequestID(ctx context.Context, requestID int64) ([]*domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE request_id = $1
		ORDER BY assigned_date, id
	`

	return r.queryAssignments(ctx, "repository.GetAssignmentsByRequestID", query, requestID)
}

func (r *Repository) GetAssignmentsByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE user_id = $1 AND assigned_date = $2
		ORDER BY id
	`

	return r.queryAssignments(ctx, "repository.GetAssignmentsByUserAndDate", query, userID, r.dateParam(date))
}

func (r *Repository) GetAssignmentsByUserAndDateRange(ctx context.Context, userID int64, start, end time.Time) ([]*domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE user_id = $1 AND assigned_date BETWEEN $2 AND $3
		ORDER BY assigned_date, id
	`

	return r.queryAssignments(ctx, "repository.GetAssignmentsByUserAndDateRange", query, userID, r.dateParam(start), r.dateParam(end))
}

func (r *Repository) GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE assigned_date BETWEEN $1 AND $2
		ORDER BY assigned_date, user_id, id
	`

	return r.queryAssignments(ctx, "repository.GetAssignmentsByDateRange", query, r.dateParam(start), r.dateParam(end))
}

// UpdateAssignment 使用 version 做乐观锁，版本不一致时返回 ErrConcurrencyConflict
func (r *Repository) UpdateAssignment(ctx context.Context, a *domain.Assignment) error {
	query := `
		UPDATE assignments
		SET
			allocated_hours = $1,
			notes = $2,
			status = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	params := []any{
		a.AllocatedHours,
		a.Notes,
		a.Status,
		a.ID,
		a.Version,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&a.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("分配 %d: %w", a.ID, domain.ErrConcurrencyConflict)
		}
		return wrapError("repository.UpdateAssignment", err)
	}

	return nil
}

func (r *Repository) DeleteAssignment(ctx context.Context, id int64) error {
	query := `
		DELETE FROM assignments WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return wrapError("repository.DeleteAssignment", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapError("repository.DeleteAssignment", err)
	}
	if affected == 0 {
		return fmt.Errorf("分配 %d: %w", id, domain.ErrNotFound)
	}

	return nil
}
