package accounts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

type memoryAccounts struct {
	rows    map[string]*Account
	failOn  string
	updates int
}

func newMemoryAccounts(accounts ...Account) *memoryAccounts {
	m := &memoryAccounts{rows: map[string]*Account{}}
	for i := range accounts {
		a := accounts[i]
		m.rows[a.ID] = &a
	}
	return m
}

func (m *memoryAccounts) fail(op string) error {
	if m.failOn == op {
		return errors.New("store unavailable")
	}
	return nil
}

func (m *memoryAccounts) FindAccountByID(ctx context.Context, id string) (*Account, error) {
	if err := m.fail("find"); err != nil {
		return nil, err
	}
	a, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	for _, a := range m.rows {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (m *memoryAccounts) FindActor(ctx context.Context, id string) (rbac.Actor, error) {
	a, ok := m.rows[id]
	if !ok {
		return rbac.Actor{}, shared.ErrUserNotFound
	}
	return a.Actor(), nil
}

func (m *memoryAccounts) CreateAccount(ctx context.Context, in NewAccount) (*Account, error) {
	if _, err := m.FindAccountByEmail(ctx, in.Email); err == nil {
		return nil, shared.ErrEmailTaken
	}
	a := &Account{ID: "usr_" + in.Email, Email: in.Email, Name: in.Name, PasswordHash: in.PasswordHash, Role: rbac.RoleUser, Status: rbac.StatusActive}
	m.rows[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *memoryAccounts) UpdateAccountStatus(ctx context.Context, id string, change StatusChange) error {
	if err := m.fail("update"); err != nil {
		return err
	}
	m.updates++
	a := m.rows[id]
	a.Status, a.SuspendedReason, a.SuspendedUntil = change.Status, change.Reason, change.Until
	return nil
}

func (m *memoryAccounts) UpdateAccountRole(ctx context.Context, id string, role rbac.Role) error {
	m.updates++
	m.rows[id].Role = role
	return nil
}

func (m *memoryAccounts) UpdateName(ctx context.Context, id, name string) error {
	m.updates++
	m.rows[id].Name = name
	return nil
}

func (m *memoryAccounts) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	m.updates++
	m.rows[id].PasswordHash = hash
	return nil
}

func (m *memoryAccounts) ListAccounts(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	var out []Account
	for _, a := range m.rows {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(a.Email, filter.Search) {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *memoryAccounts) ExportAccounts(ctx context.Context) ([]Account, error) {
	rows, _, err := m.ListAccounts(ctx, ListFilter{})
	return rows, err
}

func (m *memoryAccounts) ListExpiredSuspensions(ctx context.Context, now time.Time) ([]Account, error) {
	var out []Account
	for _, a := range m.rows {
		if a.Status == rbac.StatusSuspended && a.SuspendedUntil != nil && !a.SuspendedUntil.After(now) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryAccounts) CountByRoleStatus(ctx context.Context) (Stats, error) {
	stats := Stats{ByRole: map[rbac.Role]int{}, ByStatus: map[rbac.AccountStatus]int{}}
	for _, a := range m.rows {
		stats.Total++
		stats.ByRole[a.Role]++
		stats.ByStatus[a.Status]++
	}
	return stats, nil
}

type auditRecorder struct{ entries []shared.AuditLog }

func (r *auditRecorder) Record(ctx context.Context, log shared.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

type invalidation struct{ subject, reason string }

type invalidationRecorder struct{ entries []invalidation }

func (r *invalidationRecorder) Record(ctx context.Context, subjectID, reason string) error {
	r.entries = append(r.entries, invalidation{subjectID, reason})
	return nil
}

type listingHider struct{ sellers []string }

func (h *listingHider) HideActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	h.sellers = append(h.sellers, sellerID)
	return 2, nil
}

type notices struct{ sent []Notice }

func (n *notices) Notify(ctx context.Context, notice Notice) error {
	n.sent = append(n.sent, notice)
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Verify(hash, password string) bool    { return hash == "hashed:"+password }

type fixture struct {
	repo          *memoryAccounts
	audit         *auditRecorder
	invalidations *invalidationRecorder
	listings      *listingHider
	notices       *notices
	svc           *Service
}

func account(id string, role rbac.Role, status rbac.AccountStatus) Account {
	return Account{ID: id, Email: id + "@example.com", Name: id, Role: role, Status: status, PasswordHash: "hashed:password123"}
}

func newFixture(accounts ...Account) *fixture {
	f := &fixture{
		repo:          newMemoryAccounts(accounts...),
		audit:         &auditRecorder{},
		invalidations: &invalidationRecorder{},
		listings:      &listingHider{},
		notices:       &notices{},
	}
	f.svc = NewService(f.repo, f.audit, f.invalidations, f.listings, f.notices, plainHasher{}, nil)
	return f
}

func (f *fixture) assertNothingWritten(t *testing.T) {
	t.Helper()
	assert.Zero(t, f.repo.updates)
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.invalidations.entries)
}

func standardAccounts() []Account {
	return []Account{
		account("super", rbac.RoleSuperAdmin, rbac.StatusActive),
		account("super2", rbac.RoleSuperAdmin, rbac.StatusActive),
		account("admin", rbac.RoleAdmin, rbac.StatusActive),
		account("admin2", rbac.RoleAdmin, rbac.StatusActive),
		account("seller", rbac.RoleSeller, rbac.StatusActive),
		account("buyer", rbac.RoleUser, rbac.StatusActive),
		account("benched", rbac.RoleAdmin, rbac.StatusSuspended),
	}
}

func caller(id string) rbac.Actor { return rbac.Actor{ID: id} }

func TestSuspendPeerRules(t *testing.T) {
	cases := []struct {
		actor, target string
		want          error
	}{
		{"admin", "admin2", shared.ErrCannotSuspendAdmin},
		{"admin", "super", shared.ErrCannotSuspendAdmin},
		{"super", "super2", shared.ErrCannotSuspendSuperAdmin},
		{"seller", "buyer", shared.ErrInsufficientPermissions},
		{"benched", "buyer", shared.ErrAccountSuspended},
		{"admin", "ghost", shared.ErrUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.actor+"->"+tc.target, func(t *testing.T) {
			f := newFixture(standardAccounts()...)
			err := f.svc.Suspend(context.Background(), caller(tc.actor), SuspendInput{UserID: tc.target, Reason: "spamming listings"})
			require.ErrorIs(t, err, tc.want)
			f.assertNothingWritten(t)
		})
	}
}

func TestSuspendUser(t *testing.T) {
	f := newFixture(standardAccounts()...)
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	err := f.svc.Suspend(context.Background(), caller("admin"), SuspendInput{UserID: "buyer", Reason: "chargeback abuse", ExpiresAt: &until})
	require.NoError(t, err)

	got := f.repo.rows["buyer"]
	assert.Equal(t, rbac.StatusSuspended, got.Status)
	assert.Equal(t, "chargeback abuse", got.SuspendedReason)
	assert.Equal(t, &until, got.SuspendedUntil)
	assert.Equal(t, []invalidation{{"buyer", shared.InvalidationSuspended}}, f.invalidations.entries)
	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, "admin", entry.ActorID)
	assert.Equal(t, "ADMIN", entry.ActorRole)
	assert.Equal(t, shared.AuditUserSuspended, entry.Action)
	assert.Equal(t, "User", entry.TargetType)
	assert.Equal(t, "2030-01-01T00:00:00Z", entry.Meta["expiresAt"])
	require.Len(t, f.notices.sent, 1)
	assert.Equal(t, "buyer@example.com", f.notices.sent[0].To)
}

func TestSuspendUsesStoredActorNotClaims(t *testing.T) {
	f := newFixture(standardAccounts()...)
	stale := rbac.Actor{ID: "benched", Role: rbac.RoleAdmin, Status: rbac.StatusActive}

	err := f.svc.Suspend(context.Background(), stale, SuspendInput{UserID: "buyer", Reason: "spamming listings"})
	require.ErrorIs(t, err, shared.ErrAccountSuspended)

	err = f.svc.Suspend(context.Background(), rbac.Actor{ID: "deleted"}, SuspendInput{UserID: "buyer", Reason: "spamming listings"})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
	f.assertNothingWritten(t)
}

func TestSuspendValidation(t *testing.T) {
	f := newFixture(standardAccounts()...)
	err := f.svc.Suspend(context.Background(), caller("admin"), SuspendInput{UserID: "buyer", Reason: "no"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "reason")
	f.assertNothingWritten(t)
}

func TestSuspendStoreFailurePropagates(t *testing.T) {
	f := newFixture(standardAccounts()...)
	f.repo.failOn = "update"
	err := f.svc.Suspend(context.Background(), caller("admin"), SuspendInput{UserID: "buyer", Reason: "spamming listings"})
	require.Error(t, err)
	_, isDenial := shared.AsDenial(err)
	assert.False(t, isDenial)
	assert.Empty(t, f.audit.entries)
}

func TestBanHidesListings(t *testing.T) {
	f := newFixture(standardAccounts()...)
	require.NoError(t, f.svc.Ban(context.Background(), caller("super"), BanInput{UserID: "seller", Reason: "counterfeit goods"}))

	assert.Equal(t, rbac.StatusBanned, f.repo.rows["seller"].Status)
	assert.Equal(t, []string{"seller"}, f.listings.sellers)
	assert.Equal(t, []invalidation{{"seller", shared.InvalidationBanned}}, f.invalidations.entries)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, shared.AuditUserBanned, f.audit.entries[0].Action)
	assert.Equal(t, 2, f.audit.entries[0].Meta["listingsHidden"])
}

func TestBanPeerRules(t *testing.T) {
	f := newFixture(standardAccounts()...)
	require.ErrorIs(t, f.svc.Ban(context.Background(), caller("admin"), BanInput{UserID: "admin2", Reason: "counterfeit goods"}), shared.ErrCannotBanAdmin)
	require.ErrorIs(t, f.svc.Ban(context.Background(), caller("super"), BanInput{UserID: "super2", Reason: "counterfeit goods"}), shared.ErrCannotBanSuperAdmin)
	assert.Empty(t, f.listings.sellers)
	f.assertNothingWritten(t)
}

func TestReactivate(t *testing.T) {
	f := newFixture(standardAccounts()...)
	require.ErrorIs(t, f.svc.Reactivate(context.Background(), caller("admin"), "ghost"), shared.ErrUserNotFound)

	require.NoError(t, f.svc.Reactivate(context.Background(), caller("super"), "benched"))
	got := f.repo.rows["benched"]
	assert.Equal(t, rbac.StatusActive, got.Status)
	assert.Empty(t, got.SuspendedReason)
	assert.Nil(t, got.SuspendedUntil)
	assert.Equal(t, []invalidation{{"benched", shared.InvalidationReactivated}}, f.invalidations.entries)
	assert.Equal(t, shared.AuditUserReactivated, f.audit.entries[0].Action)
}

func TestChangeRole(t *testing.T) {
	f := newFixture(standardAccounts()...)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.ChangeRole(ctx, caller("admin"), ChangeRoleInput{UserID: "buyer", Role: "SELLER"}), shared.ErrInsufficientPermissions)
	require.ErrorIs(t, f.svc.ChangeRole(ctx, caller("super"), ChangeRoleInput{UserID: "super", Role: "USER"}), shared.ErrCannotChangeOwnRole)
	require.ErrorIs(t, f.svc.ChangeRole(ctx, caller("super"), ChangeRoleInput{UserID: "ghost", Role: "USER"}), shared.ErrUserNotFound)

	var verr *shared.ValidationError
	require.ErrorAs(t, f.svc.ChangeRole(ctx, caller("super"), ChangeRoleInput{UserID: "buyer", Role: "OWNER"}), &verr)
	f.assertNothingWritten(t)

	require.NoError(t, f.svc.ChangeRole(ctx, caller("super"), ChangeRoleInput{UserID: "buyer", Role: "ADMIN"}))
	assert.Equal(t, rbac.RoleAdmin, f.repo.rows["buyer"].Role)
	assert.Equal(t, []invalidation{{"buyer", "role_changed_to_ADMIN"}}, f.invalidations.entries)
	assert.Equal(t, map[string]any{"previousRole": "USER", "newRole": "ADMIN"}, f.audit.entries[0].Meta)
}

func TestListUsers(t *testing.T) {
	f := newFixture(standardAccounts()...)
	ctx := context.Background()

	_, err := f.svc.ListUsers(ctx, caller("seller"), ListFilter{})
	require.ErrorIs(t, err, shared.ErrInsufficientPermissions)

	res, err := f.svc.ListUsers(ctx, caller("admin"), ListFilter{Role: rbac.RoleSuperAdmin, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, res.Accounts, 2)
	assert.Equal(t, maxListLimit, res.Pagination.PerPage)
	assert.Equal(t, 1, res.Pagination.Page)

	_, err = f.svc.ListUsers(ctx, caller("admin"), ListFilter{Status: "DORMANT"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExportUsersAudited(t *testing.T) {
	f := newFixture(standardAccounts()...)
	_, err := f.svc.ExportUsers(context.Background(), caller("admin"))
	require.ErrorIs(t, err, shared.ErrInsufficientPermissions)
	assert.Empty(t, f.audit.entries)

	rows, err := f.svc.ExportUsers(context.Background(), caller("super"))
	require.NoError(t, err)
	assert.Len(t, rows, len(standardAccounts()))
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, shared.AuditDataExported, f.audit.entries[0].Action)
	assert.Equal(t, "all", f.audit.entries[0].TargetID)
	assert.Equal(t, len(rows), f.audit.entries[0].Meta["exportedCount"])
}

func TestStats(t *testing.T) {
	f := newFixture(standardAccounts()...)
	stats, err := f.svc.Stats(context.Background(), caller("admin"))
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 3, stats.ByRole[rbac.RoleAdmin])
	assert.Equal(t, 1, stats.ByStatus[rbac.StatusSuspended])
}

func TestProfileFlows(t *testing.T) {
	oauth := account("oauth", rbac.RoleUser, rbac.StatusActive)
	oauth.PasswordHash = ""
	f := newFixture(append(standardAccounts(), oauth)...)
	ctx := context.Background()

	profile, err := f.svc.GetProfile(ctx, caller("buyer"))
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", profile.Email)

	updated, err := f.svc.UpdateProfile(ctx, caller("buyer"), ProfileInput{Name: "  Bea Buyer "})
	require.NoError(t, err)
	assert.Equal(t, "Bea Buyer", updated.Name)

	err = f.svc.ChangePassword(ctx, caller("buyer"), ChangePasswordInput{CurrentPassword: "wrong-pass", NewPassword: "newpassword1"})
	require.ErrorIs(t, err, shared.ErrInvalidCurrentPassword)
	err = f.svc.ChangePassword(ctx, caller("oauth"), ChangePasswordInput{CurrentPassword: "whatever", NewPassword: "newpassword1"})
	require.ErrorIs(t, err, shared.ErrNoPasswordSet)
	require.NoError(t, f.svc.ChangePassword(ctx, caller("buyer"), ChangePasswordInput{CurrentPassword: "password123", NewPassword: "newpassword1"}))
	assert.Equal(t, "hashed:newpassword1", f.repo.rows["buyer"].PasswordHash)

	_, err = f.svc.GetProfile(ctx, caller("benched"))
	require.ErrorIs(t, err, shared.ErrAccountSuspended)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(standardAccounts()...)
	require.NoError(t, f.svc.DeleteAccount(context.Background(), caller("buyer")))
	got := f.repo.rows["buyer"]
	assert.Equal(t, rbac.StatusBanned, got.Status)
	assert.Equal(t, deletedByUserReason, got.SuspendedReason)
	assert.Equal(t, []invalidation{{"buyer", shared.InvalidationDeleted}}, f.invalidations.entries)
	assert.Equal(t, shared.AuditAccountDeleted, f.audit.entries[0].Action)
}

func TestListExpiredSuspensions(t *testing.T) {
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := account("expired", rbac.RoleUser, rbac.StatusSuspended)
	expired.SuspendedUntil = &past
	f := newFixture(append(standardAccounts(), expired)...)

	rows, err := f.svc.ListExpiredSuspensions(context.Background(), past.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "expired", rows[0].ID)
	assert.Equal(t, rbac.StatusSuspended, f.repo.rows["expired"].Status)
}

func TestHandlerSuspend(t *testing.T) {
	f := newFixture(standardAccounts()...)
	actorID := "admin"
	h := NewHandler(nil, f.svc, func(r *http.Request) (rbac.Actor, bool) {
		if actorID == "" {
			return rbac.Actor{}, false
		}
		return rbac.Actor{ID: actorID}, true
	})
	r := chi.NewRouter()
	h.MountAdminRoutes(r)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/users/admin2/suspend", strings.NewReader(`{"reason":"spamming listings"}`)))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.JSONEq(t, `{"error":"CANNOT_SUSPEND_ADMIN","message":"Admins cannot suspend other admins"}`, res.Body.String())

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/users/buyer/suspend", strings.NewReader(`{"reason":"x"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/users/buyer/suspend", strings.NewReader(`{"reason":"spamming listings"}`)))
	assert.Equal(t, http.StatusOK, res.Code)

	actorID = ""
	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
