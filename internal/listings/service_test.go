package listings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
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

type memoryListings struct {
	rows    map[string]*Listing
	failOn  string
	updates int
}

func newMemoryListings(rows ...Listing) *memoryListings {
	m := &memoryListings{rows: map[string]*Listing{}}
	for i := range rows {
		l := rows[i]
		m.rows[l.ID] = &l
	}
	return m
}

func (m *memoryListings) FindListing(ctx context.Context, id string) (*Listing, error) {
	if m.failOn == "find" {
		return nil, errors.New("store unavailable")
	}
	l, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memoryListings) CreateListing(ctx context.Context, sellerID string, in CreateInput) (*Listing, error) {
	l := &Listing{
		ID:          "lst_new",
		SellerID:    sellerID,
		Title:       in.Title,
		Description: in.Description,
		Condition:   Condition(in.Condition),
		PriceCents:  in.PriceCents,
		Images:      in.Images,
		Status:      StatusActive,
	}
	m.rows[l.ID] = l
	cp := *l
	return &cp, nil
}

func (m *memoryListings) UpdateListing(ctx context.Context, id string, in UpdateInput) (*Listing, error) {
	m.updates++
	l := m.rows[id]
	if in.Title != nil {
		l.Title = *in.Title
	}
	if in.PriceCents != nil {
		l.PriceCents = *in.PriceCents
	}
	cp := *l
	return &cp, nil
}

func (m *memoryListings) UpdateListingStatus(ctx context.Context, id string, status Status) error {
	m.updates++
	m.rows[id].Status = status
	return nil
}

func (m *memoryListings) HideActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	n := 0
	for _, l := range m.rows {
		if l.SellerID == sellerID && l.Status == StatusActive {
			l.Status = StatusHidden
			n++
		}
	}
	return n, nil
}

func (m *memoryListings) BrowseListings(ctx context.Context, filter BrowseFilter) ([]Listing, int, error) {
	var out []Listing
	for _, l := range m.rows {
		if l.Status != StatusActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(l.Title, filter.Search) {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

var (
	seller      = rbac.Actor{ID: "seller", Role: rbac.RoleSeller, Status: rbac.StatusActive}
	otherSeller = rbac.Actor{ID: "seller2", Role: rbac.RoleSeller, Status: rbac.StatusActive}
	buyer       = rbac.Actor{ID: "buyer", Role: rbac.RoleUser, Status: rbac.StatusActive}
	admin       = rbac.Actor{ID: "admin", Role: rbac.RoleAdmin, Status: rbac.StatusActive}
	benched     = rbac.Actor{ID: "benched", Role: rbac.RoleSeller, Status: rbac.StatusSuspended}
)

func fixture() (*Service, *memoryListings) {
	repo := newMemoryListings(
		Listing{ID: "lst_1", SellerID: "seller", Title: "Pixel 8 Pro", Status: StatusActive, PriceCents: 59900},
		Listing{ID: "lst_2", SellerID: "seller", Title: "Galaxy Tab", Status: StatusPaused},
		Listing{ID: "lst_gone", SellerID: "seller", Title: "Old phone", Status: StatusDeleted},
		Listing{ID: "lst_benched", SellerID: "benched", Title: "Kindle", Status: StatusActive},
	)
	actors := actorTable{}
	for _, a := range []rbac.Actor{seller, otherSeller, buyer, admin, benched} {
		actors[a.ID] = a
	}
	return NewService(repo, actors), repo
}

func validCreate() CreateInput {
	return CreateInput{
		Title:       "iPhone 15 128GB",
		Description: "Barely used, battery health 98 percent, original box.",
		Condition:   string(ConditionLikeNew),
		PriceCents:  69900,
		Images:      []string{"https://cdn.example.com/a.jpg"},
	}
}

func TestCreateListing(t *testing.T) {
	svc, _ := fixture()

	l, err := svc.Create(context.Background(), seller, validCreate())
	require.NoError(t, err)
	assert.Equal(t, "seller", l.SellerID)
	assert.Equal(t, StatusActive, l.Status)

	_, err = svc.Create(context.Background(), buyer, validCreate())
	assert.ErrorIs(t, err, shared.ErrInsufficientPermissions)

	_, err = svc.Create(context.Background(), benched, validCreate())
	assert.ErrorIs(t, err, shared.ErrAccountSuspended)

	bad := validCreate()
	bad.Images = nil
	bad.PriceCents = 0
	_, err = svc.Create(context.Background(), seller, bad)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "images")
	assert.Contains(t, verr.Fields, "priceCents")
}

func TestUpdateListingOwnership(t *testing.T) {
	title := "Pixel 8 Pro 256GB"
	tests := []struct {
		name    string
		caller  rbac.Actor
		id      string
		wantErr error
	}{
		{name: "owner edits own", caller: seller, id: "lst_1"},
		{name: "staff edits any", caller: admin, id: "lst_1"},
		{name: "other seller refused", caller: otherSeller, id: "lst_1", wantErr: shared.ErrInsufficientPermissions},
		{name: "buyer refused", caller: buyer, id: "lst_1", wantErr: shared.ErrInsufficientPermissions},
		{name: "missing before ownership", caller: otherSeller, id: "lst_none", wantErr: shared.ErrListingNotFound},
		{name: "deleted is missing", caller: seller, id: "lst_gone", wantErr: shared.ErrListingNotFound},
		{name: "suspended owner refused", caller: benched, id: "lst_benched", wantErr: shared.ErrAccountSuspended},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := fixture()
			_, err := svc.Update(context.Background(), tt.caller, tt.id, UpdateInput{Title: &title})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, repo.updates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, title, repo.rows[tt.id].Title)
		})
	}
}

func TestUpdateListingStatus(t *testing.T) {
	svc, repo := fixture()

	require.NoError(t, svc.UpdateStatus(context.Background(), seller, "lst_2", StatusInput{Status: "ACTIVE"}))
	assert.Equal(t, StatusActive, repo.rows["lst_2"].Status)

	err := svc.UpdateStatus(context.Background(), seller, "lst_2", StatusInput{Status: "DELETED"})
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteListing(t *testing.T) {
	svc, repo := fixture()

	err := svc.Delete(context.Background(), otherSeller, "lst_1")
	assert.ErrorIs(t, err, shared.ErrInsufficientPermissions)

	require.NoError(t, svc.Delete(context.Background(), seller, "lst_1"))
	assert.Equal(t, StatusDeleted, repo.rows["lst_1"].Status)

	_, err = svc.Get(context.Background(), "lst_1")
	assert.ErrorIs(t, err, shared.ErrListingNotFound)
}

func TestUnknownCallerIsUnauthenticated(t *testing.T) {
	svc, _ := fixture()
	ghost := rbac.Actor{ID: "ghost", Role: rbac.RoleSeller, Status: rbac.StatusActive}
	err := svc.Delete(context.Background(), ghost, "lst_1")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestStoreFailurePropagates(t *testing.T) {
	svc, repo := fixture()
	repo.failOn = "find"
	err := svc.Delete(context.Background(), seller, "lst_1")
	require.Error(t, err)
	_, isDenial := shared.AsDenial(err)
	assert.False(t, isDenial)
}

func TestBrowseAndAvailability(t *testing.T) {
	svc, _ := fixture()

	page, err := svc.Browse(context.Background(), BrowseFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, maxBrowseLimit, page.Pagination.PerPage)
	assert.Len(t, page.Listings, 2)

	_, err = svc.Browse(context.Background(), BrowseFilter{Condition: "BROKEN"})
	var verr *shared.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Available(context.Background(), "lst_2")
	assert.ErrorIs(t, err, shared.ErrListingNotAvailable)
	_, err = svc.Available(context.Background(), "lst_none")
	assert.ErrorIs(t, err, shared.ErrListingNotAvailable)
	l, err := svc.Available(context.Background(), "lst_1")
	require.NoError(t, err)
	assert.Equal(t, "seller", l.SellerID)
}

func TestHideActiveBySeller(t *testing.T) {
	svc, repo := fixture()
	n, err := svc.HideActiveBySeller(context.Background(), "seller")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StatusHidden, repo.rows["lst_1"].Status)
	assert.Equal(t, StatusPaused, repo.rows["lst_2"].Status)

	_, err = svc.Get(context.Background(), "lst_1")
	assert.ErrorIs(t, err, shared.ErrListingNotFound)
}

func TestHandlerDeleteForeignListing(t *testing.T) {
	svc, _ := fixture()
	h := NewHandler(nil, svc, func(r *http.Request) (rbac.Actor, bool) { return otherSeller, true })
	r := chi.NewRouter()
	r.Route("/api/seller", h.MountSellerRoutes)

	req := httptest.NewRequest(http.MethodDelete, "/api/seller/listings/lst_1", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "INSUFFICIENT_PERMISSIONS")
}

func TestHandlerPublicGet(t *testing.T) {
	svc, _ := fixture()
	h := NewHandler(nil, svc, nil)
	r := chi.NewRouter()
	r.Route("/api/listings", h.MountPublicRoutes)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/listings/lst_1", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"title":"Pixel 8 Pro"`)

	res = httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/listings/lst_gone", nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Contains(t, res.Body.String(), "LISTING_NOT_FOUND")
}
