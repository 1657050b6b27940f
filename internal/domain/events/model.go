package events

import "time"

// Event. El host asiste implícitamente y no ocupa lugar.
type Event struct {
	ID         string
	Name       string
	GroupID    string
	HostID     string
	Attendees  []string
	Capacity   int
	LocationID string
	Start      time.Time
	End        time.Time
	CreatedAt  time.Time
}

func (e Event) HasAttendee(userID string) bool {
	if e.HostID == userID {
		return true
	}
	for _, a := range e.Attendees {
		if a == userID {
			return true
		}
	}
	return false
}

// IsActive: un event sigue activo hasta su End.
func (e Event) IsActive(now time.Time) bool { return now.Before(e.End) }
