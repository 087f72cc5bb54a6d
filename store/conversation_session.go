package store

// SessionStatus is the lifecycle state of a conversation session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionClosed  SessionStatus = "CLOSED"
	SessionExpired SessionStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionClosed || s == SessionExpired
}

// ConversationSession represents one conversational session for a user in a
// given mode. At most one ACTIVE session may exist per (user, mode) pair.
type ConversationSession struct {
	UID           string
	Mode          string
	Status        SessionStatus
	StartedTs     int64
	LastMessageTs int64
	EndedTs       int64
	ID            int32
	UserID        int32
	MessageCount  int32
}

// FindConversationSession specifies conditions for finding sessions.
type FindConversationSession struct {
	ID            *int32
	UID           *string
	UserID        *int32
	Mode          *string
	Status        *SessionStatus
	StartedAfter  *int64
	LastMsgBefore *int64
}

// UpdateConversationSession specifies a partial session update.
type UpdateConversationSession struct {
	Status        *SessionStatus
	LastMessageTs *int64
	EndedTs       *int64
	MessageCount  *int32
	ID            int32
}
