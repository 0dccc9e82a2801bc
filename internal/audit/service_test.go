package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

type actorTable map[string]rbac.Actor

func (t actorTable) FindActor(ctx context.Context, id string) (rbac.Actor, error) {
	a, ok := t[id]
	if !ok {
		return rbac.Actor{}, shared.ErrUserNotFound
	}
	return a, nil
}

type stubLogRepo struct {
	entries     []Entry
	lastFilters Filters
	lastMax     int
}

func (s *stubLogRepo) ListEntries(ctx context.Context, filters Filters) ([]Entry, int, error) {
	s.lastFilters = filters
	return s.entries, len(s.entries), nil
}

func (s *stubLogRepo) ExportEntries(ctx context.Context, filters Filters, max int) ([]Entry, error) {
	s.lastFilters = filters
	s.lastMax = max
	return s.entries, nil
}

var (
	root  = rbac.Actor{ID: "root", Role: rbac.RoleSuperAdmin, Status: rbac.StatusActive}
	staff = rbac.Actor{ID: "staff", Role: rbac.RoleAdmin, Status: rbac.StatusActive}
	buyer = rbac.Actor{ID: "buyer", Role: rbac.RoleUser, Status: rbac.StatusActive}
)

func newService(repo *stubLogRepo) *Service {
	return NewService(repo, actorTable{root.ID: root, staff.ID: staff, buyer.ID: buyer})
}

func TestListScopesAdminsToOwnEntries(t *testing.T) {
	repo := &stubLogRepo{}
	svc := newService(repo)

	_, err := svc.List(context.Background(), staff, Filters{ActorID: "root"})
	require.NoError(t, err)
	assert.Equal(t, "staff", repo.lastFilters.ActorID)

	_, err = svc.List(context.Background(), root, Filters{ActorID: "staff"})
	require.NoError(t, err)
	assert.Equal(t, "staff", repo.lastFilters.ActorID)

	_, err = svc.List(context.Background(), root, Filters{})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilters.ActorID)
}

func TestListPaging(t *testing.T) {
	repo := &stubLogRepo{entries: make([]Entry, 120)}
	svc := newService(repo)

	res, err := svc.List(context.Background(), root, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastFilters.Limit)
	assert.Equal(t, 1, repo.lastFilters.Page)
	assert.Equal(t, 3, res.Pagination.TotalPages)

	_, err = svc.List(context.Background(), root, Filters{Limit: 500, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastFilters.Limit)
	assert.Equal(t, 2, repo.lastFilters.Page)
}

func TestListDenials(t *testing.T) {
	svc := newService(&stubLogRepo{})

	_, err := svc.List(context.Background(), buyer, Filters{})
	assert.ErrorIs(t, err, shared.ErrInsufficientPermissions)

	_, err = svc.List(context.Background(), rbac.Actor{}, Filters{})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.List(context.Background(), root, Filters{From: from, To: from.AddDate(0, 0, -1)})
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestExportUsesCap(t *testing.T) {
	repo := &stubLogRepo{}
	svc := newService(repo)

	_, err := svc.Export(context.Background(), staff, Filters{})
	require.NoError(t, err)
	assert.Equal(t, maxExport, repo.lastMax)
	assert.Equal(t, "staff", repo.lastFilters.ActorID)
}

func TestWriteCSV(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	out, err := WriteCSV([]Entry{{
		ActorID:    "root",
		ActorEmail: "root@example.com",
		ActorRole:  "SUPER_ADMIN",
		Action:     shared.AuditUserBanned,
		TargetType: "User",
		TargetID:   "u1",
		Meta:       map[string]any{"reason": "fraud, repeated"},
		At:         at,
	}})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2026-03-10T09:30:00Z,root,root@example.com,SUPER_ADMIN,user.banned,User,u1,"))
	assert.Contains(t, lines[1], `"{""reason"":""fraud, repeated""}"`)
}
