package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/shopspring/decimal"
)

// Store 是账本依赖的只读查询
type Store interface {
	GetAssignmentsByRequestID(ctx context.Context, requestID int64) ([]*domain.Assignment, error)
	GetAssignmentsByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*domain.Assignment, error)
	GetAssignmentsByUserAndDateRange(ctx context.Context, userID int64, start, end time.Time) ([]*domain.Assignment, error)
	GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Assignment, error)
}

// Ledger 对分配记录的查询视图，碎片化等派生属性每次读取时重新计算
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

func SumHours(assignments []*domain.Assignment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range assignments {
		total = total.Add(a.AllocatedHours)
	}
	return total
}

// IsFragmented 同一个需求有多于一条分配时即为碎片化
func IsFragmented(assignments []*domain.Assignment) bool {
	return len(assignments) > 1
}

func (l *Ledger) FindByRequest(ctx context.Context, requestID int64) ([]*domain.Assignment, error) {
	return l.store.GetAssignmentsByRequestID(ctx, requestID)
}

func (l *Ledger) IsFragmented(ctx context.Context, requestID int64) (bool, error) {
	assignments, err := l.FindByRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	return IsFragmented(assignments), nil
}

// Summarize 重新读取需求的全部分配，计算总工时、数量、碎片化和分配状态
func (l *Ledger) Summarize(ctx context.Context, req *domain.Request) (*domain.RequestAssignmentSummary, error) {
	assignments, err := l.FindByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	total := SumHours(assignments)
	remaining := req.EstimatedHours.Sub(total)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &domain.RequestAssignmentSummary{
		RequestID:      req.ID,
		Assignments:    assignments,
		TotalHours:     total,
		Count:          len(assignments),
		Fragmented:     IsFragmented(assignments),
		EstimatedHours: req.EstimatedHours,
		RemainingHours: remaining,
		State:          domain.ClassifyAssignment(total, req.EstimatedHours),
	}, nil
}

func (l *Ledger) FindByMemberAndDate(ctx context.Context, userID int64, date time.Time) ([]*domain.Assignment, error) {
	return l.store.GetAssignmentsByUserAndDate(ctx, userID, calendar.NormalizeDay(date))
}

func (l *Ledger) FindByMemberAndDateRange(ctx context.Context, userID int64, start, end time.Time) ([]*domain.Assignment, error) {
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return nil, err
	}
	return l.store.GetAssignmentsByUserAndDateRange(ctx, userID, start, end)
}

func (l *Ledger) FindByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Assignment, error) {
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return nil, err
	}
	return l.store.GetAssignmentsByDateRange(ctx, start, end)
}

func normalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	start = calendar.NormalizeDay(start)
	end = calendar.NormalizeDay(end)
	if end.Before(start) {
		return start, end, domain.NewValidationError("结束日期不能早于开始日期")
	}
	return start, end, nil
}

type MemberDay struct {
	Date        time.Time            `json:"date"`
	TotalHours  decimal.Decimal      `json:"totalHours"`
	Assignments []*domain.Assignment `json:"assignments"`
}

type MemberWeek struct {
	UserID int64        `json:"userID"`
	Days   []*MemberDay `json:"days"`
}

// WeeklyView 按成员、按天聚合区间内的分配
func (l *Ledger) WeeklyView(ctx context.Context, start, end time.Time) ([]*MemberWeek, error) {
	assignments, err := l.FindByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byMember := make(map[int64]map[string]*MemberDay)
	for _, a := range assignments {
		if _, exists := byMember[a.UserID]; !exists {
			byMember[a.UserID] = make(map[string]*MemberDay)
		}

		key := a.AssignedDate.Format(time.DateOnly)
		day, exists := byMember[a.UserID][key]
		if !exists {
			day = &MemberDay{
				Date:        calendar.NormalizeDay(a.AssignedDate),
				TotalHours:  decimal.Zero,
				Assignments: make([]*domain.Assignment, 0),
			}
			byMember[a.UserID][key] = day
		}

		day.Assignments = append(day.Assignments, a)
		day.TotalHours = day.TotalHours.Add(a.AllocatedHours)
	}

	weeks := make([]*MemberWeek, 0, len(byMember))
	for userID, days := range byMember {
		week := &MemberWeek{
			UserID: userID,
			Days:   make([]*MemberDay, 0, len(days)),
		}
		for _, day := range days {
			week.Days = append(week.Days, day)
		}
		sort.Slice(week.Days, func(i, j int) bool {
			return week.Days[i].Date.Before(week.Days[j].Date)
		})
		weeks = append(weeks, week)
	}

	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].UserID < weeks[j].UserID
	})

	return weeks, nil
}
