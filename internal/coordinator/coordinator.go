package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/ledger"
	"github.com/ludwigramirez-source/nexus-sub002/internal/metrics"
	"github.com/ludwigramirez-source/nexus-sub002/internal/scheduler"
	"github.com/ludwigramirez-source/nexus-sub002/internal/utils"
)

type Store interface {
	ledger.Store
	// CreateAssignments 必须原子地写入整批分配，并在同一事务内重新检查预估工时上限
	CreateAssignments(ctx context.Context, requestID int64, assignments []*domain.Assignment) error
	GetAssignmentByID(ctx context.Context, id int64) (*domain.Assignment, error)
	UpdateAssignment(ctx context.Context, a *domain.Assignment) error
	DeleteAssignment(ctx context.Context, id int64) error
	GetRequestByID(ctx context.Context, id int64) (*domain.Request, error)
	GetTeamMemberByID(ctx context.Context, id int64) (*domain.TeamMember, error)
}

// Publisher 尽力而为地广播事件，失败不会回滚已经完成的修改
type Publisher interface {
	Publish(ctx context.Context, eventName string, payload any) error
}

// RequestPool 维护待分配需求队列
type RequestPool interface {
	MarkAssigned(ctx context.Context, requestID int64) error
	MarkUnassigned(ctx context.Context, requestID int64, snapshot *domain.Request) error
}

type Coordinator struct {
	store     Store
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
	publisher Publisher
	pool      RequestPool
	locker    Locker
	metrics   metrics.Recorder
	log       *slog.Logger
	now       func() time.Time
}

func New(store Store, sched *scheduler.Scheduler, publisher Publisher, pool RequestPool, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		ledger:    ledger.New(store),
		scheduler: sched,
		publisher: publisher,
		pool:      pool,
		locker:    NewLocalLocker(),
		metrics:   metrics.Nop{},
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Ledger() *ledger.Ledger {
	return c.ledger
}

type ConfirmInput struct {
	Config  domain.DistributionConfig
	Request *domain.Request
	Member  *domain.TeamMember
	ActorID int64
	Notes   string
}

type ConfirmResult struct {
	Plan        *domain.DistributionPlan         `json:"plan"`
	Assignments []*domain.Assignment             `json:"assignments"`
	Summary     *domain.RequestAssignmentSummary `json:"summary"`
}

// Preview 只计算分配计划，不做任何写入
func (c *Coordinator) Preview(req *domain.Request, cfg domain.DistributionConfig) (*domain.DistributionPlan, error) {
	if req == nil {
		return nil, domain.NewValidationError("需求不能为空")
	}
	return c.scheduler.Plan(cfg, req.EstimatedHours)
}

// ConfirmPlan 校验计划并将每一项写成一条分配，随后重新计算需求的分配状态
// 校验失败时不会写入任何数据
func (c *Coordinator) ConfirmPlan(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	if in.Request == nil || in.Member == nil || in.Config == nil {
		return nil, domain.NewValidationError("需求、成员和分配配置都不能为空")
	}
	if !in.Request.Status.Plannable() {
		c.metrics.ValidationFailed("confirm")
		return nil, domain.NewValidationError("需求当前状态 %s 不允许分配工时", in.Request.Status)
	}
	if !in.Member.IsActive {
		c.metrics.ValidationFailed("confirm")
		return nil, domain.NewValidationError("成员 %d 已停用", in.Member.ID)
	}

	plan, err := c.scheduler.Plan(in.Config, in.Request.EstimatedHours)
	if err != nil {
		c.metrics.ValidationFailed("confirm")
		return nil, err
	}

	unlock, err := c.locker.Lock(ctx, requestLockKey(in.Request.ID))
	if err != nil {
		return nil, err
	}
	defer c.unlock(unlock, in.Request.ID)

	// 加上已有的分配后也不能超过预估工时
	existing, err := c.ledger.FindByRequest(ctx, in.Request.ID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateEstimateCeiling(ledger.SumHours(existing).Add(plan.TotalHours()), in.Request.EstimatedHours); err != nil {
		c.metrics.ValidationFailed("confirm")
		return nil, err
	}

	assignments := make([]*domain.Assignment, len(plan.Entries))
	for i, entry := range plan.Entries {
		assignments[i] = &domain.Assignment{
			RequestID:      in.Request.ID,
			UserID:         in.Member.ID,
			AssignedDate:   entry.Date,
			AllocatedHours: entry.Hours,
			Notes:          in.Notes,
			Status:         domain.AssignmentStatusPending,
			CreatedBy:      in.ActorID,
		}
	}

	if err := c.store.CreateAssignments(ctx, in.Request.ID, assignments); err != nil {
		if domain.IsValidationError(err) {
			c.metrics.ValidationFailed("confirm")
		}
		return nil, err
	}

	summary, err := c.ledger.Summarize(ctx, in.Request)
	if err != nil {
		return nil, fmt.Errorf("分配已写入但重新计算失败: %w", err)
	}

	c.reclassify(ctx, in.Request, summary.State)

	for _, a := range assignments {
		c.publish(ctx, domain.EventAssignmentCreated, a, in.Request, in.Member, summary.State, in.ActorID)
	}

	c.metrics.PlanConfirmed(string(plan.Mode))
	c.metrics.AssignmentsCreated(len(assignments))

	return &ConfirmResult{
		Plan:        plan,
		Assignments: assignments,
		Summary:     summary,
	}, nil
}

type MutationResult struct {
	Assignment *domain.Assignment               `json:"assignment"`
	Summary    *domain.RequestAssignmentSummary `json:"summary"`
	// 修改或删除前该需求是否处于碎片化状态
	WasFragmented bool `json:"wasFragmented"`
}

// ValidatePatch 检查单条分配的修改是否合法，缓冲写入前也需要先调用
func (c *Coordinator) ValidatePatch(patch domain.AssignmentPatch) error {
	if err := utils.ValidateAssignmentPatch(patch, c.scheduler.MaxHoursPerDay()); err != nil {
		c.metrics.ValidationFailed("update")
		return err
	}
	return nil
}

// UpdateAssignment 原地修改单条分配的工时、备注或状态
// 不会和同一需求的其他分配一起重新校验预估工时上限
func (c *Coordinator) UpdateAssignment(ctx context.Context, id int64, patch domain.AssignmentPatch, actorID int64) (*MutationResult, error) {
	if err := c.ValidatePatch(patch); err != nil {
		return nil, err
	}

	current, err := c.store.GetAssignmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := c.locker.Lock(ctx, requestLockKey(current.RequestID))
	if err != nil {
		return nil, err
	}
	defer c.unlock(unlock, current.RequestID)

	// 拿到锁之后重新读取，保证 version 是最新的
	a, err := c.store.GetAssignmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasFragmented, err := c.ledger.IsFragmented(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}

	patch.Apply(a)
	if err := c.store.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}

	req, err := c.store.GetRequestByID(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}

	summary, err := c.ledger.Summarize(ctx, req)
	if err != nil {
		return nil, err
	}

	c.reclassify(ctx, req, summary.State)
	c.publish(ctx, domain.EventAssignmentUpdated, a, req, c.member(ctx, a.UserID), summary.State, actorID)
	c.metrics.AssignmentUpdated()

	return &MutationResult{
		Assignment:    a,
		Summary:       summary,
		WasFragmented: wasFragmented,
	}, nil
}

// DeleteAssignment 删除单条分配，不会级联删除同一需求的其他分配
// 删除后重新计算需求的分配状态，总工时不足预估工时时需求回到待分配队列
func (c *Coordinator) DeleteAssignment(ctx context.Context, id int64, actorID int64) (*MutationResult, error) {
	a, err := c.store.GetAssignmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := c.locker.Lock(ctx, requestLockKey(a.RequestID))
	if err != nil {
		return nil, err
	}
	defer c.unlock(unlock, a.RequestID)

	req, err := c.store.GetRequestByID(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}

	wasFragmented, err := c.ledger.IsFragmented(ctx, a.RequestID)
	if err != nil {
		return nil, err
	}

	if err := c.store.DeleteAssignment(ctx, id); err != nil {
		return nil, err
	}

	summary, err := c.ledger.Summarize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("分配已删除但重新计算失败: %w", err)
	}

	c.reclassify(ctx, req, summary.State)
	c.publish(ctx, domain.EventAssignmentDeleted, a, req, c.member(ctx, a.UserID), summary.State, actorID)
	c.metrics.AssignmentDeleted()

	return &MutationResult{
		Assignment:    a,
		Summary:       summary,
		WasFragmented: wasFragmented,
	}, nil
}

// Summary 读取需求当前的分配汇总
func (c *Coordinator) Summary(ctx context.Context, requestID int64) (*domain.RequestAssignmentSummary, error) {
	req, err := c.store.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return c.ledger.Summarize(ctx, req)
}

// 只有完全分配的需求才会从待分配队列中移除
func (c *Coordinator) reclassify(ctx context.Context, req *domain.Request, state domain.AssignmentState) {
	var err error
	if state == domain.FullyAssigned {
		err = c.pool.MarkAssigned(ctx, req.ID)
	} else {
		err = c.pool.MarkUnassigned(ctx, req.ID, req)
	}
	if err != nil {
		c.log.Error("coordinator.reclassify: 无法更新待分配队列", slog.Int64("request_id", req.ID), slog.String("state", string(state)), slog.Any("error", err))
	}
}

func (c *Coordinator) publish(ctx context.Context, name string, a *domain.Assignment, req *domain.Request, member *domain.TeamMember, state domain.AssignmentState, actorID int64) {
	event := &domain.AssignmentEvent{
		ID:         uuid.NewString(),
		Type:       name,
		Assignment: a,
		Request:    req,
		Member:     member,
		State:      state,
		ActorID:    actorID,
		OccurredAt: c.now(),
	}

	if err := c.publisher.Publish(ctx, name, event); err != nil {
		c.metrics.PublishFailed(name)
		c.log.Error("coordinator.publish: 事件发布失败", slog.String("event", name), slog.Int64("assignment_id", a.ID), slog.Any("error", err))
	}
}

// 成员信息只用于事件内容，读取失败不影响修改本身
func (c *Coordinator) member(ctx context.Context, userID int64) *domain.TeamMember {
	m, err := c.store.GetTeamMemberByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.log.Warn("coordinator.member: 无法读取成员信息", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil
	}
	return m
}

func (c *Coordinator) unlock(unlock func(context.Context) error, requestID int64) {
	// 调用方的 ctx 可能已经取消，释放锁时不受其影响
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := unlock(ctx); err != nil {
		c.log.Error("coordinator.unlock: 释放锁失败", slog.Int64("request_id", requestID), slog.Any("error", err))
	}
}
