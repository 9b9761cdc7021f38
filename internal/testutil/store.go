package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/calendar"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/utils"
	"github.com/shopspring/decimal"
)

// Store 内存版的存储，行为与 repository.Repository 一致：
// 批量写入在同一把锁内重新检查预估工时上限，修改使用 version 乐观锁
type Store struct {
	mu          sync.Mutex
	requests    map[int64]*domain.Request
	members     map[int64]*domain.TeamMember
	assignments map[int64]*domain.Assignment
	nextID      int64

	// 非空时对应的操作直接返回该错误
	FailCreate error
	FailDelete error
	FailRead   error
	// FailInsertAt >= 0 时批量写入的第 n 条失败，整个批次回滚
	FailInsertAt int
}

func NewStore() *Store {
	return &Store{
		requests:     make(map[int64]*domain.Request),
		members:      make(map[int64]*domain.TeamMember),
		assignments:  make(map[int64]*domain.Assignment),
		FailInsertAt: -1,
	}
}

func (s *Store) AddRequest(id int64, estimated string, status domain.RequestStatus) *domain.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &domain.Request{
		ID:             id,
		Title:          fmt.Sprintf("request %d", id),
		EstimatedHours: decimal.RequireFromString(estimated),
		Status:         status,
		CreatedAt:      time.Now(),
	}
	s.requests[id] = req
	copied := *req
	return &copied
}

func (s *Store) AddMember(id int64, weekly string) *domain.TeamMember {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &domain.TeamMember{
		ID:             id,
		FullName:       fmt.Sprintf("member %d", id),
		Email:          fmt.Sprintf("member%d@example.com", id),
		WeeklyCapacity: decimal.RequireFromString(weekly),
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	s.members[id] = m
	copied := *m
	return &copied
}

// Seed 直接写入一条分配，不做任何校验
func (s *Store) Seed(a domain.Assignment) *domain.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	a.ID = s.nextID
	a.AssignedDate = calendar.NormalizeDay(a.AssignedDate)
	if a.Status == "" {
		a.Status = domain.AssignmentStatusPending
	}
	a.Version = 1
	s.assignments[a.ID] = &a
	copied := a
	return &copied
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignments)
}

func (s *Store) CreateAssignments(_ context.Context, requestID int64, assignments []*domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreate != nil {
		return &domain.PersistenceError{Op: "testutil.CreateAssignments", Err: s.FailCreate}
	}

	req, ok := s.requests[requestID]
	if !ok {
		return fmt.Errorf("需求 %d: %w", requestID, domain.ErrNotFound)
	}

	total := decimal.Zero
	for _, a := range s.assignments {
		if a.RequestID == requestID {
			total = total.Add(a.AllocatedHours)
		}
	}
	for _, a := range assignments {
		total = total.Add(a.AllocatedHours)
	}
	if err := utils.ValidateEstimateCeiling(total, req.EstimatedHours); err != nil {
		return err
	}

	staged := make([]*domain.Assignment, 0, len(assignments))
	nextID := s.nextID
	for i, a := range assignments {
		if i == s.FailInsertAt {
			return &domain.PersistenceError{Op: fmt.Sprintf("testutil.CreateAssignments[%d]", i), Err: fmt.Errorf("insert failed")}
		}
		nextID++
		row := *a
		row.ID = nextID
		row.RequestID = requestID
		row.AssignedDate = calendar.NormalizeDay(a.AssignedDate)
		row.CreatedAt = time.Now()
		row.Version = 1
		staged = append(staged, &row)
	}

	s.nextID = nextID
	for i, row := range staged {
		s.assignments[row.ID] = row
		assignments[i].ID = row.ID
		assignments[i].RequestID = requestID
		assignments[i].CreatedAt = row.CreatedAt
		assignments[i].Version = row.Version
	}

	return nil
}

func (s *Store) GetAssignmentByID(_ context.Context, id int64) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailRead != nil {
		return nil, &domain.PersistenceError{Op: "testutil.GetAssignmentByID", Err: s.FailRead}
	}

	a, ok := s.assignments[id]
	if !ok {
		return nil, fmt.Errorf("分配 %d: %w", id, domain.ErrNotFound)
	}
	copied := *a
	return &copied, nil
}

func (s *Store) UpdateAssignment(_ context.Context, a *domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assignments[a.ID]
	if !ok || current.Version != a.Version {
		return fmt.Errorf("分配 %d: %w", a.ID, domain.ErrConcurrencyConflict)
	}

	current.AllocatedHours = a.AllocatedHours
	current.Notes = a.Notes
	current.Status = a.Status
	current.Version++
	a.Version = current.Version

	return nil
}

func (s *Store) DeleteAssignment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete != nil {
		return &domain.PersistenceError{Op: "testutil.DeleteAssignment", Err: s.FailDelete}
	}

	if _, ok := s.assignments[id]; !ok {
		return fmt.Errorf("分配 %d: %w", id, domain.ErrNotFound)
	}
	delete(s.assignments, id)
	return nil
}

func (s *Store) GetRequestByID(_ context.Context, id int64) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("需求 %d: %w", id, domain.ErrNotFound)
	}
	copied := *req
	return &copied, nil
}

func (s *Store) GetTeamMemberByID(_ context.Context, id int64) (*domain.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("成员 %d: %w", id, domain.ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

func (s *Store) filter(keep func(a *domain.Assignment) bool) ([]*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailRead != nil {
		return nil, &domain.PersistenceError{Op: "testutil.query", Err: s.FailRead}
	}

	result := make([]*domain.Assignment, 0)
	for _, a := range s.assignments {
		if keep(a) {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AssignedDate.Equal(result[j].AssignedDate) {
			return result[i].AssignedDate.Before(result[j].AssignedDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) GetAssignmentsByRequestID(_ context.Context, requestID int64) ([]*domain.Assignment, error) {
	return s.filter(func(a *domain.Assignment) bool { return a.RequestID == requestID })
}

func (s *Store) GetAssignmentsByUserAndDate(_ context.Context, userID int64, date time.Time) ([]*domain.Assignment, error) {
	return s.filter(func(a *domain.Assignment) bool {
		return a.UserID == userID && calendar.SameDay(a.AssignedDate, date)
	})
}

func (s *Store) GetAssignmentsByUserAndDateRange(_ context.Context, userID int64, start, end time.Time) ([]*domain.Assignment, error) {
	return s.filter(func(a *domain.Assignment) bool {
		return a.UserID == userID && inRange(a.AssignedDate, start, end)
	})
}

func (s *Store) GetAssignmentsByDateRange(_ context.Context, start, end time.Time) ([]*domain.Assignment, error) {
	return s.filter(func(a *domain.Assignment) bool { return inRange(a.AssignedDate, start, end) })
}

func inRange(day, start, end time.Time) bool {
	day = calendar.NormalizeDay(day)
	return !day.Before(calendar.NormalizeDay(start)) && !day.After(calendar.NormalizeDay(end))
}
