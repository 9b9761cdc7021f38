package capacity

import (
	"context"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/ledger"
	"github.com/shopspring/decimal"
)

type Band string

const (
	BandAvailable       Band = "available"
	BandNearCapacity    Band = "near_capacity"
	BandHighUtilization Band = "high_utilization"
	BandOverloaded      Band = "overloaded"
)

// 全系统统一使用的阈值：<60 空闲，60-79 接近饱和，80-99 高负载，>=100 超负荷
const (
	NearCapacityThreshold    = 60
	HighUtilizationThreshold = 80
	OverloadedThreshold      = 100
)

func Classify(percent int) Band {
	switch {
	case percent >= OverloadedThreshold:
		return BandOverloaded
	case percent >= HighUtilizationThreshold:
		return BandHighUtilization
	case percent >= NearCapacityThreshold:
		return BandNearCapacity
	default:
		return BandAvailable
	}
}

// Percent = round(hours / capacity * 100)
func Percent(hours, capacity decimal.Decimal) (int, error) {
	if !capacity.IsPositive() {
		return 0, domain.NewValidationError("成员的容量必须大于 0")
	}
	return int(hours.Div(capacity).Mul(decimal.NewFromInt(100)).Round(0).IntPart()), nil
}

type Utilization struct {
	MemberID int64           `json:"memberID"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Hours    decimal.Decimal `json:"hours"`
	Capacity decimal.Decimal `json:"capacity"`
	Percent  int             `json:"percent"`
	Band     Band            `json:"band"`
}

type Evaluator struct {
	ledger *ledger.Ledger
}

func NewEvaluator(l *ledger.Ledger) *Evaluator {
	return &Evaluator{ledger: l}
}

// DayUtilization 成员某一天的利用率，容量为每周容量 / 5
func (e *Evaluator) DayUtilization(ctx context.Context, member *domain.TeamMember, date time.Time) (*Utilization, error) {
	day := calendar.NormalizeDay(date)

	assignments, err := e.ledger.FindByMemberAndDate(ctx, member.ID, day)
	if err != nil {
		return nil, err
	}

	return build(member.ID, day, day, ledger.SumHours(assignments), member.DailyCapacity())
}

// WeekUtilization 成员在 date 所在周（周一到周五）的利用率，容量为每周容量
func (e *Evaluator) WeekUtilization(ctx context.Context, member *domain.TeamMember, date time.Time) (*Utilization, error) {
	week := calendar.WeekOf(date)
	start, end := week[0], week[len(week)-1]

	assignments, err := e.ledger.FindByMemberAndDateRange(ctx, member.ID, start, end)
	if err != nil {
		return nil, err
	}

	return build(member.ID, start, end, ledger.SumHours(assignments), member.WeeklyCapacity)
}

func build(memberID int64, start, end time.Time, hours, capacity decimal.Decimal) (*Utilization, error) {
	percent, err := Percent(hours, capacity)
	if err != nil {
		return nil, err
	}

	return &Utilization{
		MemberID: memberID,
		Start:    start,
		End:      end,
		Hours:    hours,
		Capacity: capacity,
		Percent:  percent,
		Band:     Classify(percent),
	}, nil
}
