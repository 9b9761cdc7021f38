package domain

import "time"

const (
	EventAssignmentCreated = "assignment:created"
	EventAssignmentUpdated = "assignment:updated"
	EventAssignmentDeleted = "assignment:deleted"
)

// AssignmentEvent 通过消息队列广播给其他查看者和通知服务
type AssignmentEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Assignment *Assignment     `json:"assignment"`
	Request    *Request        `json:"request,omitempty"`
	Member     *TeamMember     `json:"member,omitempty"`
	State      AssignmentState `json:"state"`
	ActorID    int64           `json:"actorID"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type AssignmentMailData struct {
	FullName     string `json:"fullName"`
	RequestTitle string `json:"requestTitle"`
	Date         string `json:"date"`
	Hours        string `json:"hours"`
}
