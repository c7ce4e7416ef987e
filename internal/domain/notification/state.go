package notification

// State is a snapshot of the orchestrator. Slices in a published snapshot are
// never written to again; every change allocates new ones.
type State struct {
	Queue        []Notification `json:"queue"`
	Active       []Notification `json:"active"`
	History      []Notification `json:"history"`
	UnreadCount  int            `json:"unread_count"`
	CurrentToast *Notification  `json:"current_toast,omitempty"`
}

// Find looks up an id across active and history.
func (s State) Find(id string) (Notification, bool) {
	for _, n := range s.Active {
		if n.ID == id {
			return n, true
		}
	}
	for _, n := range s.History {
		if n.ID == id {
			return n, true
		}
	}
	return Notification{}, false
}

// Contains reports whether id is known anywhere in the state, queue included.
func (s State) Contains(id string) bool {
	if _, ok := s.Find(id); ok {
		return true
	}
	for _, n := range s.Queue {
		if n.ID == id {
			return true
		}
	}
	return false
}

// CountUnread counts unread notifications in active and history.
func (s State) CountUnread() int {
	return countUnread(s.Active) + countUnread(s.History)
}

func countUnread(list []Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}
	return count
}
