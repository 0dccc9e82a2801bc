package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const (
	defaultLimit = 50
	maxLimit     = 100
	maxExport    = 10000
)

// Service reads the audit trail. ADMIN callers see only entries they authored.
type Service struct {
	repo   Repository
	actors rbac.ActorSource
}

// NewService creates the audit reader.
func NewService(repo Repository, actors rbac.ActorSource) *Service {
	return &Service{repo: repo, actors: actors}
}

// List returns one page of entries, newest first.
func (s *Service) List(ctx context.Context, caller rbac.Actor, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	filters, err := s.scope(ctx, caller, filters)
	if err != nil {
		return Result{}, err
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 {
		filters.Limit = defaultLimit
	}
	if filters.Limit > maxLimit {
		filters.Limit = maxLimit
	}
	entries, total, err := s.repo.ListEntries(ctx, filters)
	if err != nil {
		return Result{}, fmt.Errorf("audit: list: %w", err)
	}
	p := shared.NewPagination(filters.Page, filters.Limit, total)
	return Result{
		Entries:    entries,
		Pagination: Pagination{Page: p.Page, Limit: p.PerPage, Total: p.Total, TotalPages: p.TotalPages},
	}, nil
}

// Export returns every matching entry up to a fixed cap, for CSV download.
func (s *Service) Export(ctx context.Context, caller rbac.Actor, filters Filters) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	filters, err := s.scope(ctx, caller, filters)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ExportEntries(ctx, filters, maxExport)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return entries, nil
}

func (s *Service) scope(ctx context.Context, caller rbac.Actor, filters Filters) (Filters, error) {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermModerationViewAuditLogs)
	if err != nil {
		return Filters{}, err
	}
	filters.Action = strings.TrimSpace(filters.Action)
	filters.TargetType = strings.TrimSpace(filters.TargetType)
	filters.ActorID = strings.TrimSpace(filters.ActorID)
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.From.After(filters.To) {
		return Filters{}, &shared.ValidationError{Fields: map[string]string{"from": "must not be after to"}}
	}
	if actor.Role != rbac.RoleSuperAdmin {
		filters.ActorID = actor.ID
	}
	return filters, nil
}
