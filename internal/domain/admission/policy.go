package admission

import (
	"time"

	"social-coordination/internal/domain/requests"
)

// DeadlinePolicy define el TTL por defecto de un request pending por kind.
// Cero = sin expiración.
type DeadlinePolicy struct {
	Friend time.Duration
	Group  time.Duration
	Event  time.Duration
}

func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{
		Friend: 0,
		Group:  7 * 24 * time.Hour,
		Event:  48 * time.Hour,
	}
}

func (p DeadlinePolicy) ttl(kind requests.Kind) time.Duration {
	switch kind {
	case requests.KindFriend:
		return p.Friend
	case requests.KindGroup:
		return p.Group
	case requests.KindEvent:
		return p.Event
	default:
		return 0
	}
}

// Deadline resuelve el vencimiento de un request nuevo.
//   - explicit gana si viene (el ledger rechaza uno en el pasado).
//   - si no, now + TTL del kind, o nil si el TTL es cero.
//   - notAfter (inicio del event) acota el resultado cuando todavía está en el futuro.
func (p DeadlinePolicy) Deadline(kind requests.Kind, now time.Time, explicit, notAfter *time.Time) *time.Time {
	var out *time.Time
	switch {
	case explicit != nil:
		t := *explicit
		out = &t
	case p.ttl(kind) > 0:
		t := now.Add(p.ttl(kind))
		out = &t
	}
	if notAfter != nil && notAfter.After(now) && (out == nil || out.After(*notAfter)) {
		t := *notAfter
		out = &t
	}
	return out
}
