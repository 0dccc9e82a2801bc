package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gadgetbay/gadgetbay/internal/audit"
	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// LogService defines the business contract for audit log reads.
type LogService interface {
	List(ctx context.Context, caller rbac.Actor, filters audit.Filters) (audit.Result, error)
	Export(ctx context.Context, caller rbac.Actor, filters audit.Filters) ([]audit.Entry, error)
}

// Handler serves the audit log endpoints.
type Handler struct {
	logger  *slog.Logger
	service LogService
	actor   rbac.ActorFunc
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service LogService, actor rbac.ActorFunc) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, actor: actor}
}

type entryView struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actorId"`
	ActorEmail string         `json:"actorEmail,omitempty"`
	ActorRole  string         `json:"actorRole"`
	Action     string         `json:"action"`
	TargetType string         `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Meta       map[string]any `json:"meta,omitempty"`
	At         time.Time      `json:"createdAt"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.List(r.Context(), actor, filters)
	if err != nil {
		httpx.Fail(w, h.logger, "list audit logs", err)
		return
	}
	out := make([]entryView, 0, len(result.Entries))
	for _, e := range result.Entries {
		out = append(out, entryView(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"pagination": map[string]int{
			"page":       result.Pagination.Page,
			"limit":      result.Pagination.Limit,
			"total":      result.Pagination.Total,
			"totalPages": result.Pagination.TotalPages,
		},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.Export(r.Context(), actor, filters)
	if err != nil {
		httpx.Fail(w, h.logger, "export audit logs", err)
		return
	}
	csvBytes, err := audit.WriteCSV(entries)
	if err != nil {
		httpx.Fail(w, h.logger, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-logs.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		Action:     strings.TrimSpace(q.Get("action")),
		TargetType: strings.TrimSpace(q.Get("targetType")),
		ActorID:    strings.TrimSpace(q.Get("actorId")),
		Page:       httpx.QueryInt(r, "page", 1),
		Limit:      httpx.QueryInt(r, "limit", 0),
	}
	fields := map[string]string{}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			fields["from"] = "must be a YYYY-MM-DD date"
		}
		filters.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			fields["to"] = "must be a YYYY-MM-DD date"
		}
		filters.To = t.AddDate(0, 0, 1)
	}
	if len(fields) > 0 {
		return audit.Filters{}, &shared.ValidationError{Fields: fields}
	}
	return filters, nil
}
