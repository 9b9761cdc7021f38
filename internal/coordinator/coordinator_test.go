package coordinator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/coordinator"
	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/ledger"
	"github.com/ludwigramirez-source/nexus-sub002/internal/pool"
	"github.com/ludwigramirez-source/nexus-sub002/internal/scheduler"
	"github.com/ludwigramirez-source/nexus-sub002/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *testutil.Store
	pub   *testutil.Publisher
	pool  *pool.MemoryPool
	c     *coordinator.Coordinator
}

func newFixture(opts ...coordinator.Option) *fixture {
	f := &fixture{
		store: testutil.NewStore(),
		pub:   &testutil.Publisher{},
		pool:  pool.NewMemoryPool(),
	}
	f.c = coordinator.New(f.store, scheduler.New(nil), f.pub, f.pool, opts...)
	return f
}

func (f *fixture) inPool(t *testing.T, requestID int64) bool {
	t.Helper()
	ok, err := f.pool.Contains(context.Background(), requestID)
	require.NoError(t, err)
	return ok
}

func monday() time.Time {
	return time.Date(2024, 6, 3, 12, 0, 0, 0, time.Local)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quick(perDay, total string) domain.QuickConfig {
	return domain.QuickConfig{Anchor: monday(), HoursPerDay: dec(perDay), TotalHours: dec(total)}
}

func TestConfirmPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{
		Config:  quick("2", "10"),
		Request: req,
		Member:  member,
		ActorID: 99,
	})
	require.NoError(t, err)

	assignments, err := ledger.New(f.store).FindByRequest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, assignments, 5)
	assert.True(t, ledger.SumHours(assignments).Equal(res.Plan.TotalHours()))

	for _, a := range res.Assignments {
		assert.NotZero(t, a.ID)
		assert.Equal(t, int64(99), a.CreatedBy)
		assert.Equal(t, domain.AssignmentStatusPending, a.Status)
	}

	assert.Equal(t, domain.FullyAssigned, res.Summary.State)
	assert.True(t, res.Summary.Fragmented)
	assert.False(t, f.inPool(t, 1))

	names := f.pub.Names()
	require.Len(t, names, 5)
	for _, n := range names {
		assert.Equal(t, domain.EventAssignmentCreated, n)
	}
}

func TestConfirmPartialKeepsRequestInPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusPlanned)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("4", "4"), Request: req, Member: member})
	require.NoError(t, err)

	assert.Equal(t, domain.PartiallyAssigned, res.Summary.State)
	assert.False(t, res.Summary.Fragmented)
	assert.True(t, f.inPool(t, 1))
}

func TestConfirmCountsExistingAssignments(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")
	f.store.Seed(domain.Assignment{RequestID: 1, UserID: 7, AssignedDate: monday(), AllocatedHours: dec("6")})

	_, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("3", "6"), Request: req, Member: member})

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.True(t, vErr.Excess.Equal(dec("2")))
	assert.Equal(t, 1, f.store.Count())
	assert.Empty(t, f.pub.Events())
}

func TestConfirmValidationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	cfg := domain.AdvancedConfig{Anchor: monday()}
	for i := range cfg.Days {
		cfg.Days[i] = domain.DaySelection{Enabled: true, Hours: dec("3")}
	}

	_, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: cfg, Request: req, Member: member})

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.True(t, vErr.Excess.Equal(dec("5")))
	assert.Zero(t, f.store.Count())
}

func TestConfirmRejectsNonPlannableRequestAndInactiveMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	done := f.store.AddRequest(1, "10", domain.RequestStatusDone)
	open := f.store.AddRequest(2, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	_, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("2", "2"), Request: done, Member: member})
	assert.True(t, domain.IsValidationError(err))

	member.IsActive = false
	_, err = f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("2", "2"), Request: open, Member: member})
	assert.True(t, domain.IsValidationError(err))

	assert.Zero(t, f.store.Count())
}

func TestConfirmIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")
	f.store.FailInsertAt = 2

	_, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("2", "10"), Request: req, Member: member})

	var pErr *domain.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.Zero(t, f.store.Count())
	assert.Empty(t, f.pub.Events())
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.pub.Err = errors.New("broker down")
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("5", "5"), Request: req, Member: member})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Count())

	_, err = f.c.DeleteAssignment(ctx, res.Assignments[0].ID, 1)
	require.NoError(t, err)
	assert.Zero(t, f.store.Count())
}

func TestDeleteSoleAssignmentReturnsRequestToPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "8", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("8", "8"), Request: req, Member: member})
	require.NoError(t, err)
	require.False(t, f.inPool(t, 1))

	out, err := f.c.DeleteAssignment(ctx, res.Assignments[0].ID, 1)
	require.NoError(t, err)

	assert.Equal(t, domain.Unassigned, out.Summary.State)
	assert.False(t, out.WasFragmented)
	assert.True(t, f.inPool(t, 1))
	assert.Equal(t, []string{domain.EventAssignmentCreated, domain.EventAssignmentDeleted}, f.pub.Names())
}

func TestDeleteOneOfSeveralSiblings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("2", "10"), Request: req, Member: member})
	require.NoError(t, err)

	out, err := f.c.DeleteAssignment(ctx, res.Assignments[1].ID, 1)
	require.NoError(t, err)

	assert.True(t, out.WasFragmented)
	assert.Equal(t, 4, out.Summary.Count)
	assert.True(t, out.Summary.TotalHours.Equal(dec("8")))
	assert.Equal(t, domain.PartiallyAssigned, out.Summary.State)
	assert.True(t, f.inPool(t, 1))

	// 只删除一条，其他分配保持不变
	for i, a := range res.Assignments {
		_, err := f.store.GetAssignmentByID(ctx, a.ID)
		if i == 1 {
			assert.ErrorIs(t, err, domain.ErrNotFound)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestDeleteUnknownAssignment(t *testing.T) {
	f := newFixture()
	_, err := f.c.DeleteAssignment(context.Background(), 404, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeletePersistenceErrorPropagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	a := f.store.Seed(domain.Assignment{RequestID: 1, UserID: 7, AssignedDate: monday(), AllocatedHours: dec("2")})
	f.store.FailDelete = errors.New("disk full")

	_, err := f.c.DeleteAssignment(ctx, a.ID, 1)
	var pErr *domain.PersistenceError
	assert.True(t, errors.As(err, &pErr))
	assert.Equal(t, 1, f.store.Count())
}

func TestUpdateAssignmentReclassifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("5", "10"), Request: req, Member: member})
	require.NoError(t, err)
	require.False(t, f.inPool(t, 1))

	three := dec("3")
	notes := "half day off"
	out, err := f.c.UpdateAssignment(ctx, res.Assignments[0].ID, domain.AssignmentPatch{AllocatedHours: &three, Notes: &notes}, 5)
	require.NoError(t, err)

	assert.True(t, out.Assignment.AllocatedHours.Equal(three))
	assert.Equal(t, "half day off", out.Assignment.Notes)
	assert.Equal(t, int32(2), out.Assignment.Version)
	assert.Equal(t, domain.PartiallyAssigned, out.Summary.State)
	assert.True(t, f.inPool(t, 1))
	assert.Equal(t, domain.EventAssignmentUpdated, f.pub.Names()[2])
	assert.True(t, out.WasFragmented)
}

func TestUpdateReportsFragmentationBeforeWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	a := f.store.Seed(domain.Assignment{RequestID: 1, UserID: 7, AssignedDate: monday(), AllocatedHours: dec("4")})

	six := dec("6")
	out, err := f.c.UpdateAssignment(ctx, a.ID, domain.AssignmentPatch{AllocatedHours: &six}, 5)
	require.NoError(t, err)
	assert.False(t, out.WasFragmented)
	assert.False(t, out.Summary.Fragmented)
}

func TestValidatePatch(t *testing.T) {
	f := newFixture()

	twelve := dec("12")
	assert.True(t, domain.IsValidationError(f.c.ValidatePatch(domain.AssignmentPatch{AllocatedHours: &twelve})))

	status := domain.AssignmentStatusCompleted
	assert.NoError(t, f.c.ValidatePatch(domain.AssignmentPatch{Status: &status}))
}

func TestUpdateDoesNotRecheckCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	res, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("5", "10"), Request: req, Member: member})
	require.NoError(t, err)

	eight := dec("8")
	out, err := f.c.UpdateAssignment(ctx, res.Assignments[0].ID, domain.AssignmentPatch{AllocatedHours: &eight}, 5)
	require.NoError(t, err)
	assert.True(t, out.Summary.TotalHours.Equal(dec("13")))
	assert.Equal(t, domain.FullyAssigned, out.Summary.State)
}

func TestUpdateValidatesPatch(t *testing.T) {
	f := newFixture()
	nine := dec("9")

	_, err := f.c.UpdateAssignment(context.Background(), 1, domain.AssignmentPatch{AllocatedHours: &nine}, 1)
	assert.True(t, domain.IsValidationError(err))

	_, err = f.c.UpdateAssignment(context.Background(), 1, domain.AssignmentPatch{}, 1)
	assert.True(t, domain.IsValidationError(err))
}

func TestConcurrentConfirmsRespectCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)
	member := f.store.AddMember(7, "40")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.c.ConfirmPlan(ctx, coordinator.ConfirmInput{Config: quick("3", "3"), Request: req, Member: member})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, domain.IsValidationError(err), "%v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	summary, err := f.c.Summary(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.TotalHours.Equal(dec("9")))
}

func TestPreview(t *testing.T) {
	f := newFixture()
	req := f.store.AddRequest(1, "10", domain.RequestStatusBacklog)

	plan, err := f.c.Preview(req, quick("4", "10"))
	require.NoError(t, err)
	assert.Len(t, plan.Entries, 3)
	assert.Zero(t, f.store.Count())

	_, err = f.c.Preview(nil, quick("4", "10"))
	assert.True(t, domain.IsValidationError(err))
}

func TestLocalLockerSerializesPerKey(t *testing.T) {
	l := coordinator.NewLocalLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a")
	require.NoError(t, err)

	// 不同的 key 互不影响
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "a")
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	require.NoError(t, unlock(ctx))
	// 重复释放是安全的
	require.NoError(t, unlock(ctx))

	unlock, err = l.Lock(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}
