package timers

import (
	"context"
	"time"
)

// Repository persiste los timers activos.
//   - Create devuelve apperr.ErrConflict si ResourceRef ya tiene timer.
//   - DeleteByRef es el "claim" atómico: solo un caller recibe el registro,
//     el resto ve apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, t TimedResource) error
	GetByRef(ctx context.Context, resourceRef string) (TimedResource, error)
	DeleteByRef(ctx context.Context, resourceRef string) (TimedResource, error)

	// ListDue devuelve timers con Expiry <= now, ordenados por Expiry. limit <= 0 = sin límite.
	ListDue(ctx context.Context, now time.Time, limit int) ([]TimedResource, error)
	// ListBefore devuelve timers con Expiry < until (para precargar el heap).
	ListBefore(ctx context.Context, until time.Time, limit int) ([]TimedResource, error)
}
