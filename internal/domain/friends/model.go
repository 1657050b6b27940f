package friends

import "time"

// Friendship es simétrica; se guarda normalizada con UserA < UserB.
type Friendship struct {
	UserA     string
	UserB     string
	CreatedAt time.Time
}

func NewFriendship(a, b string, at time.Time) Friendship {
	if b < a {
		a, b = b, a
	}
	return Friendship{UserA: a, UserB: b, CreatedAt: at}
}

// Other devuelve el otro extremo de la amistad.
func (f Friendship) Other(userID string) string {
	if f.UserA == userID {
		return f.UserB
	}
	return f.UserA
}
