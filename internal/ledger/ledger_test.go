package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/ludwigramirez-source/nexus-sub002/internal/ledger"
	"github.com/ludwigramirez-source/nexus-sub002/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, _ := time.ParseInLocation(time.DateOnly, s, time.Local)
	return t.Add(12 * time.Hour)
}

func seed(store *testutil.Store, requestID, userID int64, day, hours string) *domain.Assignment {
	return store.Seed(domain.Assignment{
		RequestID:      requestID,
		UserID:         userID,
		AssignedDate:   date(day),
		AllocatedHours: decimal.RequireFromString(hours),
	})
}

func TestFragmentation(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	l := ledger.New(store)

	fragmented, err := l.IsFragmented(ctx, 1)
	require.NoError(t, err)
	assert.False(t, fragmented)

	first := seed(store, 1, 10, "2024-06-03", "2")
	fragmented, err = l.IsFragmented(ctx, 1)
	require.NoError(t, err)
	assert.False(t, fragmented)

	seed(store, 1, 10, "2024-06-04", "2")
	fragmented, err = l.IsFragmented(ctx, 1)
	require.NoError(t, err)
	assert.True(t, fragmented)

	// 每次都重新计算，删除后立即反映
	require.NoError(t, store.DeleteAssignment(ctx, first.ID))
	fragmented, err = l.IsFragmented(ctx, 1)
	require.NoError(t, err)
	assert.False(t, fragmented)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	req := store.AddRequest(1, "10", domain.RequestStatusBacklog)
	l := ledger.New(store)

	summary, err := l.Summarize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.Unassigned, summary.State)
	assert.True(t, summary.RemainingHours.Equal(decimal.NewFromInt(10)))

	seed(store, 1, 10, "2024-06-03", "4")
	seed(store, 1, 11, "2024-06-04", "3.5")
	seed(store, 2, 10, "2024-06-04", "8")

	summary, err = l.Summarize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.Fragmented)
	assert.True(t, summary.TotalHours.Equal(decimal.RequireFromString("7.5")))
	assert.True(t, summary.RemainingHours.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, domain.PartiallyAssigned, summary.State)

	seed(store, 1, 10, "2024-06-05", "4")
	summary, err = l.Summarize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.FullyAssigned, summary.State)
	assert.True(t, summary.RemainingHours.IsZero())
}

func TestFindByMemberAndDate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	l := ledger.New(store)

	seed(store, 1, 10, "2024-06-03", "2")
	seed(store, 2, 10, "2024-06-03", "3")
	seed(store, 3, 11, "2024-06-03", "1")
	seed(store, 4, 10, "2024-06-04", "5")

	// 时间部分不影响查询
	got, err := l.FindByMemberAndDate(ctx, 10, date("2024-06-03").Add(10*time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, ledger.SumHours(got).Equal(decimal.NewFromInt(5)))
}

func TestFindByDateRange(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	l := ledger.New(store)

	seed(store, 1, 10, "2024-06-02", "2")
	seed(store, 1, 10, "2024-06-03", "2")
	seed(store, 1, 10, "2024-06-07", "2")
	seed(store, 1, 10, "2024-06-10", "2")

	got, err := l.FindByDateRange(ctx, date("2024-06-03"), date("2024-06-07"))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = l.FindByDateRange(ctx, date("2024-06-07"), date("2024-06-03"))
	assert.True(t, domain.IsValidationError(err))
}

func TestWeeklyView(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	l := ledger.New(store)

	seed(store, 1, 11, "2024-06-04", "2")
	seed(store, 2, 11, "2024-06-04", "3")
	seed(store, 1, 10, "2024-06-05", "4")
	seed(store, 1, 10, "2024-06-03", "1")

	weeks, err := l.WeeklyView(ctx, date("2024-06-03"), date("2024-06-07"))
	require.NoError(t, err)
	require.Len(t, weeks, 2)

	assert.Equal(t, int64(10), weeks[0].UserID)
	require.Len(t, weeks[0].Days, 2)
	assert.Equal(t, "2024-06-03", weeks[0].Days[0].Date.Format(time.DateOnly))

	assert.Equal(t, int64(11), weeks[1].UserID)
	require.Len(t, weeks[1].Days, 1)
	assert.True(t, weeks[1].Days[0].TotalHours.Equal(decimal.NewFromInt(5)))
	assert.Len(t, weeks[1].Days[0].Assignments, 2)
}

func TestStoreErrorsPropagate(t *testing.T) {
	store := testutil.NewStore()
	store.FailRead = errors.New("timeout")
	l := ledger.New(store)

	_, err := l.FindByRequest(context.Background(), 1)
	var pErr *domain.PersistenceError
	assert.True(t, errors.As(err, &pErr))
}
