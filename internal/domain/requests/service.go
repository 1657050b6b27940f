package requests

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"social-coordination/internal/domain/apperr"

	"github.com/google/uuid"
)

const MaxMessageLen = 500

// Service es el RequestLedger: único dueño del status de los requests.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type OpenInput struct {
	SenderID    string
	RecipientID string
	Target      Target
	Message     string
	ExpiresAt   *time.Time
}

func (s *Service) Open(ctx context.Context, in OpenInput) (Request, error) {
	senderID := strings.TrimSpace(in.SenderID)
	recipientID := strings.TrimSpace(in.RecipientID)

	if senderID == "" || recipientID == "" || in.Target == nil {
		return Request{}, apperr.ErrInvalidInput
	}
	if senderID == recipientID {
		return Request{}, apperr.New(apperr.ErrInvalidInput, "cannot open a request to yourself")
	}
	// Revalida la variante (un GroupTarget{} vacío no es válido).
	target, err := NewTarget(in.Target.Kind(), in.Target.ResourceID())
	if err != nil {
		return Request{}, err
	}
	msg := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(msg) > MaxMessageLen {
		return Request{}, apperr.New(apperr.ErrInvalidInput, "message must be at most %d characters", MaxMessageLen)
	}

	now := s.now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return Request{}, apperr.New(apperr.ErrInvalidInput, "expires_at must be in the future")
	}

	r := Request{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Target:      target,
		Status:      StatusPending,
		Message:     msg,
		ExpiresAt:   in.ExpiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return Request{}, apperr.Storage("requests: create", err)
	}
	return r, nil
}

// Respond transiciona pending -> accepted/declined exactamente una vez.
// Un segundo responder concurrente ve apperr.ErrConflict.
func (s *Service) Respond(ctx context.Context, requestID, actorID string, accept bool) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	actorID = strings.TrimSpace(actorID)
	if requestID == "" || actorID == "" {
		return Request{}, apperr.ErrInvalidInput
	}

	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, apperr.Storage("requests: get", err)
	}
	if r.RecipientID != actorID {
		return Request{}, apperr.New(apperr.ErrForbidden, "%s is not the recipient of request %s", actorID, requestID)
	}
	if !r.IsPending() {
		return Request{}, apperr.New(apperr.ErrConflict, "request %s is already %s", requestID, r.Status)
	}

	to := StatusDeclined
	if accept {
		to = StatusAccepted
	}

	updated, err := s.repo.Transition(ctx, requestID, to, s.now())
	if err != nil {
		return Request{}, apperr.Storage("requests: transition", err)
	}
	return updated, nil
}

// Withdraw borra un request pending; solo el sender puede hacerlo.
func (s *Service) Withdraw(ctx context.Context, requestID, actorID string) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	actorID = strings.TrimSpace(actorID)
	if requestID == "" || actorID == "" {
		return Request{}, apperr.ErrInvalidInput
	}

	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, apperr.Storage("requests: get", err)
	}
	if r.SenderID != actorID {
		return Request{}, apperr.New(apperr.ErrForbidden, "%s is not the sender of request %s", actorID, requestID)
	}

	deleted, err := s.repo.DeletePending(ctx, requestID)
	if err != nil {
		return Request{}, apperr.Storage("requests: delete", err)
	}
	return deleted, nil
}

// Expire invalida un request pending cuando vence su deadline.
// Si ya fue resuelto o borrado devuelve NotFound/Conflict y el caller lo trata como no-op.
func (s *Service) Expire(ctx context.Context, requestID string) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return Request{}, apperr.ErrInvalidInput
	}
	r, err := s.repo.DeletePending(ctx, requestID)
	if err != nil {
		return Request{}, apperr.Storage("requests: expire", err)
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, requestID string) (Request, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return Request{}, apperr.ErrInvalidInput
	}
	r, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return Request{}, apperr.Storage("requests: get", err)
	}
	return r, nil
}

func (s *Service) ListSentBy(ctx context.Context, senderID string, filter ListFilter) ([]Request, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return nil, apperr.ErrInvalidInput
	}
	items, err := s.repo.ListBySender(ctx, senderID)
	if err != nil {
		return nil, apperr.Storage("requests: list sent", err)
	}
	return filter.apply(items), nil
}

func (s *Service) ListReceivedBy(ctx context.Context, recipientID string, filter ListFilter) ([]Request, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, apperr.ErrInvalidInput
	}
	items, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, apperr.Storage("requests: list received", err)
	}
	return filter.apply(items), nil
}

// PurgeByActor borra todo request donde actorID es sender o recipient.
func (s *Service) PurgeByActor(ctx context.Context, actorID string) ([]Request, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, apperr.ErrInvalidInput
	}
	deleted, err := s.repo.DeleteByActor(ctx, actorID)
	if err != nil {
		return nil, apperr.Storage("requests: purge actor", err)
	}
	return deleted, nil
}

// PurgeByResource borra todo request que referencia un group/event destruido.
func (s *Service) PurgeByResource(ctx context.Context, kind Kind, resourceID string) ([]Request, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" || kind == KindFriend {
		return nil, apperr.ErrInvalidInput
	}
	deleted, err := s.repo.DeleteByResource(ctx, kind, resourceID)
	if err != nil {
		return nil, apperr.Storage("requests: purge resource", err)
	}
	return deleted, nil
}

// ListFilter filtra por status/kind. Vacío = sin filtro.
type ListFilter struct {
	Statuses []Status
	Kinds    []Kind
}

func (f ListFilter) apply(items []Request) []Request {
	if len(f.Statuses) == 0 && len(f.Kinds) == 0 {
		return items
	}
	out := make([]Request, 0, len(items))
	for _, r := range items {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
			continue
		}
		if len(f.Kinds) > 0 && !containsKind(f.Kinds, r.Kind()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsStatus(in []Status, s Status) bool {
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}

func containsKind(in []Kind, k Kind) bool {
	for _, v := range in {
		if v == k {
			return true
		}
	}
	return false
}
