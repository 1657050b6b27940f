package groups

import "time"

// Group. El dueño es miembro implícito y no ocupa lugar: Members son solo los admitidos.
type Group struct {
	ID         string
	Name       string
	OwnerID    string
	Members    []string
	Capacity   int
	Private    bool
	LocationID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (g Group) HasMember(userID string) bool {
	if g.OwnerID == userID {
		return true
	}
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

func (g Group) AtCapacity() bool { return len(g.Members) >= g.Capacity }
