package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestStatusBacklog    RequestStatus = "backlog"
	RequestStatusPlanned    RequestStatus = "planned"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusReview     RequestStatus = "review"
	RequestStatusDone       RequestStatus = "done"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// 只有这些状态下的需求允许继续分配工时
var plannableStatuses = []RequestStatus{
	RequestStatusBacklog,
	RequestStatusPlanned,
	RequestStatusInProgress,
}

func (s RequestStatus) Plannable() bool {
	return slices.Contains(plannableStatuses, s)
}

type RequestPriority string

const (
	RequestPriorityLow      RequestPriority = "low"
	RequestPriorityMedium   RequestPriority = "medium"
	RequestPriorityHigh     RequestPriority = "high"
	RequestPriorityCritical RequestPriority = "critical"
)

// Request 由外部维护，这里只读取 ID、预估工时和状态
type Request struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Type           string          `json:"type"`
	Priority       RequestPriority `json:"priority"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	Status         RequestStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// AssignmentState 表示需求相对于分配的状态
type AssignmentState string

const (
	Unassigned        AssignmentState = "unassigned"
	PartiallyAssigned AssignmentState = "partially_assigned"
	FullyAssigned     AssignmentState = "fully_assigned"
)

// ClassifyAssignment 根据已分配总工时和预估工时推导需求的分配状态
func ClassifyAssignment(total, estimated decimal.Decimal) AssignmentState {
	switch {
	case !total.IsPositive():
		return Unassigned
	case total.GreaterThanOrEqual(estimated):
		return FullyAssigned
	default:
		return PartiallyAssigned
	}
}
