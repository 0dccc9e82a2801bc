package audit

import "time"

// Filters narrows an audit log query. ActorID is forced for callers that may
// only read their own entries.
type Filters struct {
	Action     string
	TargetType string
	ActorID    string
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

// Entry is one row of audit_logs.
type Entry struct {
	ID         string
	ActorID    string
	ActorEmail string
	ActorRole  string
	Action     string
	TargetType string
	TargetID   string
	Meta       map[string]any
	At         time.Time
}

// Result is one page of entries.
type Result struct {
	Entries    []Entry
	Pagination Pagination
}

// Pagination mirrors shared.Pagination for the audit response.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}
