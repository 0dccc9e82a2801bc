package sellers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const (
	pendingApp  = "6f1d2c3b-4a59-4e8d-9c7b-0a1b2c3d4e5f"
	reviewedApp = "7a2e3d4c-5b6a-4f9e-8d8c-1b2c3d4e5f60"
	missingApp  = "8b3f4e5d-6c7b-4a0f-9e9d-2c3d4e5f6071"
)

type actorTable map[string]rbac.Actor

func (t actorTable) FindActor(ctx context.Context, id string) (rbac.Actor, error) {
	a, ok := t[id]
	if !ok {
		return rbac.Actor{}, shared.ErrUserNotFound
	}
	return a, nil
}

type memorySellers struct {
	apps     map[string]*Application
	profiles map[string]*Profile
	approved []string
	rejected []string
	created  int
}

func (m *memorySellers) HasPendingApplication(ctx context.Context, userID string) (bool, error) {
	for _, a := range m.apps {
		if a.UserID == userID && a.Status == ApplicationPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memorySellers) CreateApplication(ctx context.Context, userID string, in SubmitInput) (string, error) {
	m.created++
	id := "app_new"
	m.apps[id] = &Application{ID: id, UserID: userID, BusinessName: in.BusinessName, BusinessDescription: in.BusinessDescription, Status: ApplicationPending}
	return id, nil
}

func (m *memorySellers) FindApplication(ctx context.Context, id string) (*Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, shared.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memorySellers) LatestApplication(ctx context.Context, userID string) (*Application, error) {
	for _, a := range m.apps {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrApplicationNotFound
}

func (m *memorySellers) ListApplications(ctx context.Context, filter ListFilter) ([]Application, int, error) {
	var out []Application
	for _, a := range m.apps {
		if a.Status == filter.Status {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (m *memorySellers) Approve(ctx context.Context, app Application, reviewerID string) error {
	m.approved = append(m.approved, app.ID)
	m.apps[app.ID].Status = ApplicationApproved
	m.profiles[app.UserID] = &Profile{UserID: app.UserID, BusinessName: app.BusinessName, VerifiedBy: reviewerID}
	return nil
}

func (m *memorySellers) Reject(ctx context.Context, applicationID, reviewerID, reason string) error {
	m.rejected = append(m.rejected, applicationID)
	m.apps[applicationID].Status = ApplicationRejected
	m.apps[applicationID].RejectionReason = reason
	return nil
}

func (m *memorySellers) FindProfile(ctx context.Context, userID string) (*Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, shared.ErrSellerProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memorySellers) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, shared.ErrSellerProfileNotFound
	}
	if in.BusinessName != nil {
		p.BusinessName = *in.BusinessName
	}
	if in.ReturnPolicy != nil {
		p.ReturnPolicy = *in.ReturnPolicy
	}
	cp := *p
	return &cp, nil
}

type auditRecorder struct{ entries []shared.AuditLog }

func (a *auditRecorder) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type invalidationRecorder struct{ reasons map[string]string }

func (i *invalidationRecorder) Record(ctx context.Context, subjectID, reason string) error {
	i.reasons[subjectID] = reason
	return nil
}

type noticeRecorder struct{ notices []accounts.Notice }

func (n *noticeRecorder) Notify(ctx context.Context, notice accounts.Notice) error {
	n.notices = append(n.notices, notice)
	return nil
}

var (
	applicant = rbac.Actor{ID: "applicant", Role: rbac.RoleUser, Status: rbac.StatusActive}
	waiting   = rbac.Actor{ID: "waiting", Role: rbac.RoleUser, Status: rbac.StatusActive}
	merchant  = rbac.Actor{ID: "merchant", Role: rbac.RoleSeller, Status: rbac.StatusActive}
	frozen    = rbac.Actor{ID: "frozen", Role: rbac.RoleUser, Status: rbac.StatusSuspended}
	shuttered = rbac.Actor{ID: "shuttered", Role: rbac.RoleSeller, Status: rbac.StatusSuspended}
	expelled  = rbac.Actor{ID: "expelled", Role: rbac.RoleSeller, Status: rbac.StatusBanned}
	reviewer  = rbac.Actor{ID: "reviewer", Role: rbac.RoleAdmin, Status: rbac.StatusActive}
)

type harness struct {
	svc     *Service
	repo    *memorySellers
	audit   *auditRecorder
	invalid *invalidationRecorder
	notices *noticeRecorder
}

func fixture() harness {
	repo := &memorySellers{
		apps: map[string]*Application{
			pendingApp:  {ID: pendingApp, UserID: "waiting", ApplicantEmail: "waiting@example.com", BusinessName: "Phone Corner", Status: ApplicationPending},
			reviewedApp: {ID: reviewedApp, UserID: "merchant", ApplicantEmail: "merchant@example.com", BusinessName: "Tab World", Status: ApplicationApproved},
		},
		profiles: map[string]*Profile{
			"merchant": {UserID: "merchant", BusinessName: "Tab World"},
		},
	}
	actors := actorTable{}
	for _, a := range []rbac.Actor{applicant, waiting, merchant, frozen, shuttered, expelled, reviewer} {
		actors[a.ID] = a
	}
	h := harness{
		repo:    repo,
		audit:   &auditRecorder{},
		invalid: &invalidationRecorder{reasons: map[string]string{}},
		notices: &noticeRecorder{},
	}
	h.svc = NewService(repo, actors, h.audit, h.invalid, h.notices, nil)
	return h
}

func TestSubmitApplication(t *testing.T) {
	tests := []struct {
		name    string
		caller  rbac.Actor
		wantErr error
	}{
		{name: "plain user", caller: applicant},
		{name: "already a seller", caller: merchant, wantErr: shared.ErrOnlyUsersCanApply},
		{name: "suspended user", caller: frozen, wantErr: shared.ErrAccountSuspended},
		{name: "suspended seller", caller: shuttered, wantErr: shared.ErrAccountSuspended},
		{name: "banned seller", caller: expelled, wantErr: shared.ErrAccountBanned},
		{name: "pending application", caller: waiting, wantErr: shared.ErrApplicationAlreadyPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := fixture()
			app, err := h.svc.Submit(context.Background(), tt.caller, SubmitInput{BusinessName: "  Gadget Hub  "})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, h.repo.created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Gadget Hub", app.BusinessName)
			assert.Equal(t, ApplicationPending, app.Status)
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	h := fixture()
	_, err := h.svc.Submit(context.Background(), applicant, SubmitInput{BusinessName: "x"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "businessName")
}

func TestApproveApplication(t *testing.T) {
	h := fixture()
	require.NoError(t, h.svc.Review(context.Background(), reviewer, ReviewInput{ApplicationID: pendingApp, Action: ActionApprove}))

	assert.Equal(t, []string{pendingApp}, h.repo.approved)
	assert.Equal(t, shared.InvalidationSellerApproved, h.invalid.reasons["waiting"])
	require.Len(t, h.audit.entries, 1)
	entry := h.audit.entries[0]
	assert.Equal(t, shared.AuditSellerApproved, entry.Action)
	assert.Equal(t, "SellerApplication", entry.TargetType)
	assert.Equal(t, pendingApp, entry.TargetID)
	assert.Equal(t, "waiting", entry.Meta["userId"])
	require.Len(t, h.notices.notices, 1)
	assert.Equal(t, "waiting@example.com", h.notices.notices[0].To)
}

func TestRejectApplication(t *testing.T) {
	h := fixture()
	input := ReviewInput{ApplicationID: pendingApp, Action: ActionReject, RejectionReason: "Incomplete details"}
	require.NoError(t, h.svc.Review(context.Background(), reviewer, input))

	assert.Equal(t, []string{pendingApp}, h.repo.rejected)
	assert.Empty(t, h.invalid.reasons)
	require.Len(t, h.audit.entries, 1)
	assert.Equal(t, shared.AuditSellerRejected, h.audit.entries[0].Action)
	assert.Equal(t, "Incomplete details", h.audit.entries[0].Meta["reason"])
}

func TestReviewDenials(t *testing.T) {
	tests := []struct {
		name    string
		caller  rbac.Actor
		id      string
		wantErr error
	}{
		{name: "not staff", caller: applicant, id: pendingApp, wantErr: shared.ErrInsufficientPermissions},
		{name: "missing", caller: reviewer, id: missingApp, wantErr: shared.ErrApplicationNotFound},
		{name: "already reviewed", caller: reviewer, id: reviewedApp, wantErr: shared.ErrApplicationAlreadyReviewed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := fixture()
			err := h.svc.Review(context.Background(), tt.caller, ReviewInput{ApplicationID: tt.id, Action: ActionApprove})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, h.repo.approved)
			assert.Empty(t, h.audit.entries)
			assert.Empty(t, h.invalid.reasons)
		})
	}
}

func TestListDefaultsToPending(t *testing.T) {
	h := fixture()
	res, err := h.svc.List(context.Background(), reviewer, ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Applications, 1)
	assert.Equal(t, pendingApp, res.Applications[0].ID)
	assert.Equal(t, defaultListLimit, res.Pagination.PerPage)

	_, err = h.svc.List(context.Background(), reviewer, ListFilter{Status: "LOST"})
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApplicationStatus(t *testing.T) {
	h := fixture()
	app, err := h.svc.ApplicationStatus(context.Background(), applicant)
	require.NoError(t, err)
	assert.Nil(t, app)

	app, err = h.svc.ApplicationStatus(context.Background(), waiting)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, ApplicationPending, app.Status)
}

func TestUpdateProfile(t *testing.T) {
	h := fixture()
	name := "Tab World Plus"

	_, err := h.svc.UpdateProfile(context.Background(), applicant, ProfileInput{BusinessName: &name})
	assert.ErrorIs(t, err, shared.ErrSellerOnly)

	p, err := h.svc.UpdateProfile(context.Background(), merchant, ProfileInput{BusinessName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, p.BusinessName)

	_, err = h.svc.Profile(context.Background(), applicant)
	assert.ErrorIs(t, err, shared.ErrSellerProfileNotFound)
}

func TestHandlerReviewRequiresStaff(t *testing.T) {
	h := fixture()
	handler := NewHandler(nil, h.svc, func(r *http.Request) (rbac.Actor, bool) { return applicant, true })
	r := chi.NewRouter()
	r.Route("/api/admin", handler.MountAdminRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/admin/sellers/"+pendingApp+"/review", strings.NewReader(`{"action":"APPROVE"}`)))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "INSUFFICIENT_PERMISSIONS")
}

func TestHandlerSubmit(t *testing.T) {
	h := fixture()
	handler := NewHandler(nil, h.svc, func(r *http.Request) (rbac.Actor, bool) { return applicant, true })
	r := chi.NewRouter()
	r.Route("/api/user", handler.MountUserRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/user/seller-application", strings.NewReader(`{"businessName":"Gadget Hub"}`)))

	assert.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body.String(), `"status":"PENDING"`)
}
