package internal

// Methods (Room struct). Callers hold room.Mu.

func (r *Room) MemberBySession(sessionID string) *RoomMember {
	for _, m := range r.Members {
		if m.SessionID == sessionID {
			return m
		}
	}
	return nil
}

// MemberByID returns the first member with the given identity. Duplicate
// identities (the same account in two tabs) are allowed pre-round; round
// records are keyed by identity so they share one seat.
func (r *Room) MemberByID(userID string) *RoomMember {
	for _, m := range r.Members {
		if m.UserID == userID {
			return m
		}
	}
	return nil
}

func (r *Room) HasIdentity(userID string) bool {
	return r.MemberByID(userID) != nil
}

func (r *Room) RemoveBySession(sessionID string) *RoomMember {
	for i, m := range r.Members {
		if m.SessionID == sessionID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return m
		}
	}
	return nil
}

func (r *Room) AllReady() bool {
	for _, m := range r.Members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// NextColor picks the display color for the next seat to be filled.
func (r *Room) NextColor() string {
	return PlayerColors[len(r.Members)%len(PlayerColors)]
}

// IsDisconnected reports the live connectivity of an identity. Identities
// without a seat count as disconnected so turn advancement skips them.
func (r *Room) IsDisconnected(userID string) bool {
	m := r.MemberByID(userID)
	return m == nil || m.Disconnected
}
