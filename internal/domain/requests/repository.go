package requests

import (
	"context"
	"time"
)

// Repository es el contrato de persistencia del ledger.
// Las operaciones de escritura son condicionales y atómicas por registro:
//   - Create devuelve apperr.ErrConflict si ya hay un pending para (sender, recipient, kind).
//   - Transition y DeletePending devuelven apperr.ErrNotFound si el id no existe
//     y apperr.ErrConflict si el status actual no es pending.
type Repository interface {
	Create(ctx context.Context, r Request) error
	GetByID(ctx context.Context, id string) (Request, error)

	Transition(ctx context.Context, id string, to Status, at time.Time) (Request, error)
	DeletePending(ctx context.Context, id string) (Request, error)

	ListBySender(ctx context.Context, senderID string) ([]Request, error)
	ListByRecipient(ctx context.Context, recipientID string) ([]Request, error)

	DeleteByActor(ctx context.Context, actorID string) ([]Request, error)
	DeleteByResource(ctx context.Context, kind Kind, resourceID string) ([]Request, error)
}
