package chat

// typingTracker maps canonical room names to the set of user ids
// currently flagged as typing there. Entries are removed on explicit
// stop, on message send, and on disconnect; there is no time-based
// expiry — a partitioned connection is bounded by the transport's
// ping/pong liveness, which eventually runs the disconnect sweep.
//
// All mutations happen on the chat server loop; no locking.
type typingTracker struct {
	rooms map[string]map[string]struct{}
}

func newTypingTracker() *typingTracker {
	return &typingTracker{
		rooms: make(map[string]map[string]struct{}),
	}
}

func (t *typingTracker) start(roomName, userId string) {
	users, ok := t.rooms[roomName]
	if !ok {
		users = make(map[string]struct{})
		t.rooms[roomName] = users
	}

	users[userId] = struct{}{}
}

// stop is idempotent: removing a user that is not marked typing is a
// no-op, not an error.
func (t *typingTracker) stop(roomName, userId string) {
	users, ok := t.rooms[roomName]
	if !ok {
		return
	}

	delete(users, userId)
	if len(users) == 0 {
		delete(t.rooms, roomName)
	}
}

// clearUser removes the user from every room it was typing in and
// returns the names of those rooms so the caller can broadcast the
// stop indicators.
func (t *typingTracker) clearUser(userId string) []string {
	var cleared []string
	for roomName, users := range t.rooms {
		if _, ok := users[userId]; ok {
			cleared = append(cleared, roomName)
			t.stop(roomName, userId)
		}
	}

	return cleared
}

func (t *typingTracker) isTyping(roomName, userId string) bool {
	_, ok := t.rooms[roomName][userId]
	return ok
}
