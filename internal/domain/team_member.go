package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TeamMember struct {
	ID             int64           `json:"id"`
	FullName       string          `json:"fullName"`
	Email          string          `json:"email"`
	WeeklyCapacity decimal.Decimal `json:"weeklyCapacity"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// DailyCapacity = 每周容量 / 5
func (m *TeamMember) DailyCapacity() decimal.Decimal {
	return m.WeeklyCapacity.Div(decimal.NewFromInt(5))
}
