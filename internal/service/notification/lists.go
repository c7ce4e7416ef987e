package notification

import "notification-relay/internal/domain/notification"

// List helpers always allocate: published snapshots share nothing mutable.

func appendCopy(list []notification.Notification, n notification.Notification) []notification.Notification {
	out := make([]notification.Notification, len(list), len(list)+1)
	copy(out, list)
	return append(out, n)
}

func prependCopy(list []notification.Notification, n notification.Notification) []notification.Notification {
	out := make([]notification.Notification, 0, len(list)+1)
	out = append(out, n)
	return append(out, list...)
}

func cloneList(list []notification.Notification) []notification.Notification {
	if len(list) == 0 {
		return nil
	}
	out := make([]notification.Notification, len(list))
	copy(out, list)
	return out
}

func removeID(list []notification.Notification, id string) ([]notification.Notification, notification.Notification, bool) {
	for i, n := range list {
		if n.ID != id {
			continue
		}
		out := make([]notification.Notification, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		return out, n, true
	}
	return list, notification.Notification{}, false
}

func replaceAt(list []notification.Notification, i int, n notification.Notification) []notification.Notification {
	out := cloneList(list)
	out[i] = n
	return out
}

func indexOf(list []notification.Notification, id string) int {
	for i, n := range list {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// oldestEvictable returns the first non-persistent entry, skipping skipID.
func oldestEvictable(list []notification.Notification, skipID string) (notification.Notification, bool) {
	for _, n := range list {
		if !n.Persistent && n.ID != skipID {
			return n, true
		}
	}
	return notification.Notification{}, false
}

func markAllRead(list []notification.Notification) []notification.Notification {
	out := cloneList(list)
	for i := range out {
		out[i].IsRead = true
	}
	return out
}

func unreadIn(list []notification.Notification) int {
	return notification.State{Active: list}.CountUnread()
}
