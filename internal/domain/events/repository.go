package events

import (
	"context"
	"time"
)

// Repository persiste events. Admit es atómico igual que en groups.
type Repository interface {
	Create(ctx context.Context, e Event) error
	GetByID(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, filter ListFilter) ([]Event, error)
	Delete(ctx context.Context, id string) error

	Admit(ctx context.Context, id, userID string) error
	Evict(ctx context.Context, id, userID string) error
}

type ListFilter struct {
	GroupID  string
	Attendee string
	Query    string     // substring case-insensitive sobre Name
	ActiveAt *time.Time // si está, solo events con End > ActiveAt
	Limit    int
	// Unbounded ignora Limit. Solo para cascadas que tienen que ver todo.
	Unbounded bool
}
