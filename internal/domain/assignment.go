package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxHoursPerDay 单个分配在一天内的工时上限
var MaxHoursPerDay = decimal.NewFromInt(8)

type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusInProgress, AssignmentStatusCompleted, AssignmentStatusCancelled:
		return true
	}
	return false
}

// Assignment 某个成员在某一天为某个需求分配的工时
type Assignment struct {
	ID             int64            `json:"id"`
	RequestID      int64            `json:"requestID"`
	UserID         int64            `json:"userID"`
	AssignedDate   time.Time        `json:"assignedDate"` // 统一为当天中午
	AllocatedHours decimal.Decimal  `json:"allocatedHours"`
	Notes          string           `json:"notes"`
	Status         AssignmentStatus `json:"status"`
	CreatedBy      int64            `json:"createdBy"`
	CreatedAt      time.Time        `json:"createdAt"`
	Version        int32            `json:"-"`
}

// AssignmentPatch 对单个分配的原地修改，nil 表示不修改
type AssignmentPatch struct {
	AllocatedHours *decimal.Decimal  `json:"allocatedHours"`
	Notes          *string           `json:"notes"`
	Status         *AssignmentStatus `json:"status"`
}

func (p AssignmentPatch) IsEmpty() bool {
	return p.AllocatedHours == nil && p.Notes == nil && p.Status == nil
}

// Merge 用 other 中的非空字段覆盖 p
func (p AssignmentPatch) Merge(other AssignmentPatch) AssignmentPatch {
	if other.AllocatedHours != nil {
		p.AllocatedHours = other.AllocatedHours
	}
	if other.Notes != nil {
		p.Notes = other.Notes
	}
	if other.Status != nil {
		p.Status = other.Status
	}
	return p
}

// Apply 将修改应用到分配上
func (p AssignmentPatch) Apply(a *Assignment) {
	if p.AllocatedHours != nil {
		a.AllocatedHours = *p.AllocatedHours
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

// RequestAssignmentSummary 每次读取时重新计算，不做缓存
type RequestAssignmentSummary struct {
	RequestID      int64           `json:"requestID"`
	Assignments    []*Assignment   `json:"assignments"`
	TotalHours     decimal.Decimal `json:"totalHours"`
	Count          int             `json:"count"`
	Fragmented     bool            `json:"fragmented"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	RemainingHours decimal.Decimal `json:"remainingHours"`
	State          AssignmentState `json:"state"`
}
