package locations

import "context"

// Checker valida que una ubicación exista antes de crear un group o event.
type Checker interface {
	Exists(ctx context.Context, locationID string) (bool, error)
}

// AllowAll acepta cualquier location no vacía (modo dev).
type AllowAll struct{}

func (AllowAll) Exists(ctx context.Context, locationID string) (bool, error) {
	return locationID != "", nil
}
