// Package registry abstrae cualquier entidad con capacidad y membresía (groups, events).
// Es la única fuente de verdad de la ocupación: nadie más muta los sets de miembros.
package registry

import (
	"context"
	"strings"

	"social-coordination/internal/domain/apperr"
)

type Kind string

const (
	KindGroup Kind = "group"
	KindEvent Kind = "event"
)

// Ref identifica un recurso dentro del registry.
type Ref struct {
	Kind Kind
	ID   string
}

func (r Ref) String() string { return string(r.Kind) + "/" + r.ID }

// Occupancy es la vista de solo lectura de un recurso. Members no incluye al
// dueño: el dueño es miembro implícito y no consume capacidad.
type Occupancy struct {
	Ref      Ref
	OwnerID  string
	Members  []string
	Capacity int
}

func (o Occupancy) AtCapacity() bool { return len(o.Members) >= o.Capacity }

func (o Occupancy) Has(actorID string) bool {
	if o.OwnerID == actorID {
		return true
	}
	for _, m := range o.Members {
		if m == actorID {
			return true
		}
	}
	return false
}

// Store es lo que cada tipo de recurso debe implementar.
// Admit debe ser atómico por recurso: chequeo de capacidad + append en la misma sección crítica.
//   - apperr.ErrNotFound si el recurso no existe
//   - apperr.ErrConflict si está lleno o el actor ya es miembro
type Store interface {
	Occupancy(ctx context.Context, id string) (Occupancy, error)
	Admit(ctx context.Context, id, actorID string) error
	Evict(ctx context.Context, id, actorID string) error
}

type Registry struct {
	stores map[Kind]Store
}

func New(stores map[Kind]Store) *Registry {
	cp := make(map[Kind]Store, len(stores))
	for k, v := range stores {
		cp[k] = v
	}
	return &Registry{stores: cp}
}

func (r *Registry) store(ref Ref) (Store, error) {
	if strings.TrimSpace(ref.ID) == "" {
		return nil, apperr.ErrInvalidInput
	}
	s, ok := r.stores[ref.Kind]
	if !ok {
		return nil, apperr.New(apperr.ErrInvalidInput, "unknown resource kind %q", ref.Kind)
	}
	return s, nil
}

func (r *Registry) Occupancy(ctx context.Context, ref Ref) (Occupancy, error) {
	s, err := r.store(ref)
	if err != nil {
		return Occupancy{}, err
	}
	o, err := s.Occupancy(ctx, ref.ID)
	if err != nil {
		return Occupancy{}, apperr.Storage("registry: "+ref.String(), err)
	}
	o.Ref = ref
	return o, nil
}

func (r *Registry) OwnerOf(ctx context.Context, ref Ref) (string, error) {
	o, err := r.Occupancy(ctx, ref)
	if err != nil {
		return "", err
	}
	return o.OwnerID, nil
}

func (r *Registry) IsMember(ctx context.Context, ref Ref, actorID string) (bool, error) {
	o, err := r.Occupancy(ctx, ref)
	if err != nil {
		return false, err
	}
	return o.Has(actorID), nil
}

// AssertNotAtCapacity es el fail-fast previo a abrir un request. La capacidad
// se vuelve a chequear en Admit.
func (r *Registry) AssertNotAtCapacity(ctx context.Context, ref Ref) error {
	o, err := r.Occupancy(ctx, ref)
	if err != nil {
		return err
	}
	if o.AtCapacity() {
		return apperr.New(apperr.ErrConflict, "%s %s is at capacity (%d/%d)", ref.Kind, ref.ID, len(o.Members), o.Capacity)
	}
	return nil
}

func (r *Registry) Admit(ctx context.Context, ref Ref, actorID string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperr.ErrInvalidInput
	}
	s, err := r.store(ref)
	if err != nil {
		return err
	}
	if err := s.Admit(ctx, ref.ID, actorID); err != nil {
		return apperr.Storage("registry: "+ref.String(), err)
	}
	return nil
}

// Evict saca al actor. No-op si no era miembro. El dueño no puede salir de su propio recurso.
func (r *Registry) Evict(ctx context.Context, ref Ref, actorID string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return apperr.ErrInvalidInput
	}
	o, err := r.Occupancy(ctx, ref)
	if err != nil {
		return err
	}
	if o.OwnerID == actorID {
		return apperr.New(apperr.ErrConflict, "the owner cannot leave %s %s", ref.Kind, ref.ID)
	}
	if !o.Has(actorID) {
		return nil
	}
	s, _ := r.store(ref)
	if err := s.Evict(ctx, ref.ID, actorID); err != nil {
		return apperr.Storage("registry: "+ref.String(), err)
	}
	return nil
}
