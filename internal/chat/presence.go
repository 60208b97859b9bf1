package chat

import (
	"github.com/campuskit/campus-chat/internal/types"
)

type presenceEntry struct {
	user  types.User
	conns map[string]struct{}
}

// presenceRegistry maps user ids to their open connection ids. A user
// appears in the map iff it has at least one open connection; the entry
// is deleted, never left empty, when the last connection closes. Online
// status is derived from the connection set, not stored separately.
//
// All mutations happen on the chat server loop; no locking.
type presenceRegistry struct {
	entries map[string]*presenceEntry
}

func newPresenceRegistry() *presenceRegistry {
	return &presenceRegistry{
		entries: make(map[string]*presenceEntry),
	}
}

// addConnection records a connection and reports whether it is the
// user's first, i.e. the user just came online.
func (p *presenceRegistry) addConnection(user types.User, connId string) bool {
	entry, ok := p.entries[user.Id]
	if !ok {
		entry = &presenceEntry{
			user:  user,
			conns: make(map[string]struct{}),
		}
		p.entries[user.Id] = entry
	}

	entry.conns[connId] = struct{}{}
	return !ok
}

// removeConnection drops a connection and reports whether it was the
// user's last, i.e. the user just went offline.
func (p *presenceRegistry) removeConnection(userId, connId string) bool {
	entry, ok := p.entries[userId]
	if !ok {
		return false
	}

	delete(entry.conns, connId)
	if len(entry.conns) == 0 {
		delete(p.entries, userId)
		return true
	}

	return false
}

// listOnline snapshots the full online roster.
func (p *presenceRegistry) listOnline() []OnlineUser {
	users := make([]OnlineUser, 0, len(p.entries))
	for _, entry := range p.entries {
		users = append(users, OnlineUser{
			UserId:          entry.user.Id,
			DisplayName:     entry.user.DisplayName,
			Role:            entry.user.Role,
			ConnectionCount: len(entry.conns),
		})
	}

	return users
}
