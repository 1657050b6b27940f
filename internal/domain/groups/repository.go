package groups

import "context"

// Repository persiste groups. Admit/Evict son las únicas mutaciones de Members y
// Admit es atómico: chequeo de capacidad + append en la misma operación.
//   - Create devuelve apperr.ErrConflict si el nombre ya existe (case-insensitive).
//   - Admit devuelve apperr.ErrConflict si está lleno o el usuario ya es miembro.
type Repository interface {
	Create(ctx context.Context, g Group) error
	GetByID(ctx context.Context, id string) (Group, error)
	GetByName(ctx context.Context, name string) (Group, error)
	List(ctx context.Context) ([]Group, error)
	ListByMember(ctx context.Context, userID string) ([]Group, error)
	Delete(ctx context.Context, id string) error

	Admit(ctx context.Context, id, userID string) error
	Evict(ctx context.Context, id, userID string) error
}
