package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ludwigramirez-source/nexus-sub002/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	members  []*domain.TeamMember
	requests []*domain.Request
	fail     bool
}

func (f *fakeRepository) CreateTeamMember(_ context.Context, m *domain.TeamMember) error {
	if f.fail {
		return errors.New("insert failed")
	}
	f.members = append(f.members, m)
	return nil
}

func (f *fakeRepository) CreateRequest(_ context.Context, r *domain.Request) error {
	if f.fail {
		return errors.New("insert failed")
	}
	f.requests = append(f.requests, r)
	return nil
}

func TestRandomSeeding(t *testing.T) {
	repo := &fakeRepository{}

	assert.Equal(t, 3, Members(context.Background(), repo, 3, "example.com"))
	assert.Equal(t, 4, Requests(context.Background(), repo, 4))
	assert.Len(t, repo.members, 3)
	assert.Len(t, repo.requests, 4)

	failing := &fakeRepository{fail: true}
	assert.Zero(t, Members(context.Background(), failing, 2, "example.com"))
}

func TestCSVImport(t *testing.T) {
	src := `Kind,Name,Email,Hours,Type,Priority,Status
member,Ana Torres,ana@example.com,40,,,
request,Billing export,,12.5,feature,high,planned
request,Fix login,,3,bug,,
request,Broken,,zero,bug,,
unknown,Something,,4,,,
request,Odd status,,4,bug,,archived
`
	repo := &fakeRepository{}

	result, err := CSV(context.Background(), repo, strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Members)
	assert.Equal(t, 2, result.Requests)
	assert.Equal(t, 3, result.Skipped)

	assert.Equal(t, "Ana Torres", repo.members[0].FullName)
	assert.Equal(t, domain.RequestStatusPlanned, repo.requests[0].Status)
	assert.Equal(t, domain.RequestStatusBacklog, repo.requests[1].Status)
	assert.Equal(t, domain.RequestPriorityMedium, repo.requests[1].Priority)
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := CSV(context.Background(), &fakeRepository{}, strings.NewReader("name,hours\nx,1\n"))
	assert.Error(t, err)
}
