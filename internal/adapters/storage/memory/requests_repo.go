package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-coordination/internal/domain/apperr"
	"social-coordination/internal/domain/requests"
)

type requestRepo struct {
	mu   sync.RWMutex
	byID map[string]requests.Request
}

func NewRequestRepo() requests.Repository {
	return &requestRepo{
		byID: make(map[string]requests.Request),
	}
}

func (r *requestRepo) Create(ctx context.Context, req requests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		return apperr.New(apperr.ErrInvalidInput, "request id required")
	}
	if _, exists := r.byID[req.ID]; exists {
		return apperr.New(apperr.ErrConflict, "request %s already exists", req.ID)
	}
	// Un solo pending por (sender, recipient, kind).
	for _, cur := range r.byID {
		if cur.IsPending() && cur.SenderID == req.SenderID && cur.RecipientID == req.RecipientID && cur.Kind() == req.Kind() {
			return apperr.New(apperr.ErrConflict, "a pending %s request already exists", req.Kind())
		}
	}
	r.byID[req.ID] = req
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (requests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return requests.Request{}, apperr.New(apperr.ErrNotFound, "request %s not found", id)
	}
	return req, nil
}

func (r *requestRepo) Transition(ctx context.Context, id string, to requests.Status, at time.Time) (requests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return requests.Request{}, apperr.New(apperr.ErrNotFound, "request %s not found", id)
	}
	if !req.IsPending() {
		return requests.Request{}, apperr.New(apperr.ErrConflict, "request %s is already %s", id, req.Status)
	}
	req.Status = to
	req.UpdatedAt = at
	req.RespondedAt = &at
	r.byID[id] = req
	return req, nil
}

func (r *requestRepo) DeletePending(ctx context.Context, id string) (requests.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return requests.Request{}, apperr.New(apperr.ErrNotFound, "request %s not found", id)
	}
	if !req.IsPending() {
		return requests.Request{}, apperr.New(apperr.ErrConflict, "request %s is already %s", id, req.Status)
	}
	delete(r.byID, id)
	return req, nil
}

func (r *requestRepo) ListBySender(ctx context.Context, senderID string) ([]requests.Request, error) {
	return r.list(func(req requests.Request) bool { return req.SenderID == senderID }), nil
}

func (r *requestRepo) ListByRecipient(ctx context.Context, recipientID string) ([]requests.Request, error) {
	return r.list(func(req requests.Request) bool { return req.RecipientID == recipientID }), nil
}

func (r *requestRepo) DeleteByActor(ctx context.Context, actorID string) ([]requests.Request, error) {
	return r.deleteWhere(func(req requests.Request) bool { return req.Involves(actorID) }), nil
}

func (r *requestRepo) DeleteByResource(ctx context.Context, kind requests.Kind, resourceID string) ([]requests.Request, error) {
	return r.deleteWhere(func(req requests.Request) bool {
		return req.Kind() == kind && req.ResourceID() == resourceID
	}), nil
}

func (r *requestRepo) list(keep func(requests.Request) bool) []requests.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]requests.Request, 0)
	for _, req := range r.byID {
		if keep(req) {
			out = append(out, req)
		}
	}
	// Más reciente primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *requestRepo) deleteWhere(match func(requests.Request) bool) []requests.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]requests.Request, 0)
	for id, req := range r.byID {
		if match(req) {
			out = append(out, req)
			delete(r.byID, id)
		}
	}
	return out
}
