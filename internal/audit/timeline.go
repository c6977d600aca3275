// Package audit serves the tenant audit timeline recorded in audit_logs.
package audit

import (
	"encoding/json"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Filters narrows the timeline. Zero values are ignored.
type Filters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

func (f Filters) normalized() Filters {
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}

func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// Entry is one audit record.
type Entry struct {
	Ref      string          `json:"ref"`
	At       time.Time       `json:"at"`
	ActorID  int64           `json:"actor_id"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entity_id"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

// Paging describes the window returned by Timeline.
type Paging struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Entries []Entry `json:"data"`
	Paging  Paging  `json:"paging"`
}
