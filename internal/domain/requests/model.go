package requests

import (
	"strings"
	"time"

	"social-coordination/internal/domain/apperr"
)

type Kind string

const (
	KindFriend Kind = "friend"
	KindGroup  Kind = "group"
	KindEvent  Kind = "event"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFriend:
		return KindFriend, true
	case KindGroup:
		return KindGroup, true
	case KindEvent:
		return KindEvent, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Target es la variante etiquetada de un request: cada kind lleva solo los campos que le corresponden.
type Target interface {
	Kind() Kind
	// ResourceID es "" para friend.
	ResourceID() string
}

type FriendTarget struct{}

func (FriendTarget) Kind() Kind         { return KindFriend }
func (FriendTarget) ResourceID() string { return "" }

type GroupTarget struct {
	GroupID string
}

func (t GroupTarget) Kind() Kind         { return KindGroup }
func (t GroupTarget) ResourceID() string { return t.GroupID }

type EventTarget struct {
	EventID string
}

func (t EventTarget) Kind() Kind         { return KindEvent }
func (t EventTarget) ResourceID() string { return t.EventID }

// NewTarget reconstruye la variante desde su forma plana (storage / HTTP).
func NewTarget(kind Kind, resourceID string) (Target, error) {
	resourceID = strings.TrimSpace(resourceID)
	switch kind {
	case KindFriend:
		if resourceID != "" {
			return nil, apperr.New(apperr.ErrInvalidInput, "friend requests do not reference a resource")
		}
		return FriendTarget{}, nil
	case KindGroup:
		if resourceID == "" {
			return nil, apperr.New(apperr.ErrInvalidInput, "group requests require a group id")
		}
		return GroupTarget{GroupID: resourceID}, nil
	case KindEvent:
		if resourceID == "" {
			return nil, apperr.New(apperr.ErrInvalidInput, "event requests require an event id")
		}
		return EventTarget{EventID: resourceID}, nil
	default:
		return nil, apperr.New(apperr.ErrInvalidInput, "unknown request kind %q", kind)
	}
}

type Request struct {
	ID string

	SenderID    string
	RecipientID string

	Target Target
	Status Status

	Message   string
	ExpiresAt *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	RespondedAt *time.Time
}

func (r Request) Kind() Kind {
	if r.Target == nil {
		return ""
	}
	return r.Target.Kind()
}

func (r Request) ResourceID() string {
	if r.Target == nil {
		return ""
	}
	return r.Target.ResourceID()
}

func (r Request) IsPending() bool { return r.Status == StatusPending }

// Involves indica si actorID es sender o recipient.
func (r Request) Involves(actorID string) bool {
	return r.SenderID == actorID || r.RecipientID == actorID
}
