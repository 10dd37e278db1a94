package audit

import (
	"context"
	"fmt"
	"time"
)

// Entry is one immutable audit record.
type Entry struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenantId"`
	ActorUserID   string         `json:"actorUserId"`
	Action        string         `json:"action"`
	ResourceType  string         `json:"resourceType"`
	ResourceID    string         `json:"resourceId,omitempty"`
	ResourceName  string         `json:"resourceName,omitempty"`
	PreviousState any            `json:"previousState,omitempty"`
	NewState      any            `json:"newState,omitempty"`
	Metadata      map[string]any `json:"metadata"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Filter narrows a tenant's audit trail. Zero values mean "any".
type Filter struct {
	ResourceType string
	ActorUserID  string
	Action       string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// Page is one slice of a query result. Total counts all matches.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Store persists entries. Query must only return entries of tenantID.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, tenantID string, filter Filter) (Page, error)
}

// Event is the caller's description of a completed action.
type Event struct {
	Action        string
	ResourceType  string
	ResourceID    string
	ResourceName  string
	PreviousState any
	NewState      any
	Metadata      map[string]any
}

// EventOption configures an Event.
type EventOption func(*Event)

func NewEvent(action, resourceType string, opts ...EventOption) Event {
	ev := Event{Action: action, ResourceType: resourceType}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

// WithResource sets the affected resource's id and display name.
func WithResource(id, name string) EventOption {
	return func(e *Event) {
		e.ResourceID = id
		e.ResourceName = name
	}
}

// WithMetadata adds a caller metadata key.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

func WithPreviousState(v any) EventOption {
	return func(e *Event) { e.PreviousState = v }
}

func WithNewState(v any) EventOption {
	return func(e *Event) { e.NewState = v }
}

// Validate checks required fields.
func (e Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	if e.ResourceType == "" {
		return fmt.Errorf("%w: resource type is required", ErrEventValidation)
	}
	return nil
}
