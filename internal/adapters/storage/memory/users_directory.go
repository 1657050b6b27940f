package memory

import (
	"context"
	"strings"
	"sync"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/ports/identity"
)

// UserDirectory implementa identity.Directory en memoria.
// Con passthrough, un username desconocido se resuelve a sí mismo como ID
// (modo dev con X-Debug-User-ID, donde el ID ya es el username).
type UserDirectory struct {
	mu          sync.RWMutex
	byID        map[string]identity.User
	byName      map[string]identity.User
	passthrough bool
}

func NewUserDirectory(passthrough bool) *UserDirectory {
	return &UserDirectory{
		byID:        make(map[string]identity.User),
		byName:      make(map[string]identity.User),
		passthrough: passthrough,
	}
}

func (d *UserDirectory) Register(ctx context.Context, u identity.User) error {
	u.ID = strings.TrimSpace(u.ID)
	u.Username = strings.TrimSpace(u.Username)
	if u.ID == "" || u.Username == "" {
		return apperr.New(apperr.ErrInvalidInput, "id and username are required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(u.Username)
	if cur, ok := d.byName[key]; ok && cur.ID != u.ID {
		return apperr.New(apperr.ErrConflict, "username %q is taken", u.Username)
	}
	d.byID[u.ID] = u
	d.byName[key] = u
	return nil
}

func (d *UserDirectory) ByUsername(ctx context.Context, username string) (identity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return identity.User{}, apperr.ErrInvalidInput
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if u, ok := d.byName[strings.ToLower(username)]; ok {
		return u, nil
	}
	if d.passthrough {
		return identity.User{ID: username, Username: username}, nil
	}
	return identity.User{}, apperr.New(apperr.ErrNotFound, "user %q not found", username)
}

func (d *UserDirectory) ByID(ctx context.Context, id string) (identity.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if u, ok := d.byID[id]; ok {
		return u, nil
	}
	if d.passthrough && id != "" {
		return identity.User{ID: id, Username: id}, nil
	}
	return identity.User{}, apperr.New(apperr.ErrNotFound, "user %s not found", id)
}

func (d *UserDirectory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return nil
	}
	delete(d.byID, id)
	delete(d.byName, strings.ToLower(u.Username))
	return nil
}
