package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
)

func (r *Repository) GetTeamMemberByID(ctx context.Context, id int64) (*domain.TeamMember, error) {
	query := `
		SELECT full_name, email, weekly_capacity, is_active, created_at
		FROM team_members WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	member := &domain.TeamMember{
		ID: id,
	}

	dst := []any{&member.FullName, &member.Email, &member.WeeklyCapacity, &member.IsActive, &member.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("成员 %d: %w", id, domain.ErrNotFound)
		}
		return nil, wrapError("repository.GetTeamMemberByID", err)
	}

	return member, nil
}

func (r *Repository) GetAllTeamMembers(ctx context.Context) ([]*domain.TeamMember, error) {
	query := `
		SELECT id, full_name, email, weekly_capacity, is_active, created_at FROM team_members ORDER BY id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapError("repository.GetAllTeamMembers", err)
	}
	defer rows.Close()

	members := make([]*domain.TeamMember, 0)
	for rows.Next() {
		member := &domain.TeamMember{}
		dst := []any{&member.ID, &member.FullName, &member.Email, &member.WeeklyCapacity, &member.IsActive, &member.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, wrapError("repository.GetAllTeamMembers", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError("repository.GetAllTeamMembers", err)
	}

	return members, nil
}

func (r *Repository) CreateTeamMember(ctx context.Context, member *domain.TeamMember) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO team_members (full_name, email, weekly_capacity, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	args := []any{member.FullName, member.Email, member.WeeklyCapacity, member.IsActive}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&member.ID, &member.CreatedAt); err != nil {
		return wrapError("repository.CreateTeamMember", err)
	}

	return nil
}
