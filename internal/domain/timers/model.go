package timers

import "time"

type Kind string

const (
	KindRequest Kind = "request"
	KindEvent   Kind = "event"
)

// TimedResource liga un deadline a cualquier entidad del ledger o del registry.
// Hay a lo sumo uno activo por ResourceRef.
type TimedResource struct {
	ID          string
	ResourceRef string
	Kind        Kind
	Expiry      time.Time
	CreatedAt   time.Time
}

func (t TimedResource) DueAt(now time.Time) bool {
	return !now.Before(t.Expiry)
}
