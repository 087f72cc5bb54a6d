package store

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
	RoleSystem    MessageRole = "SYSTEM"
)

// ConversationMessage is one append-only message inside a session.
// Seq is a monotonic per-session sequence number.
type ConversationMessage struct {
	Role      MessageRole
	Content   string
	Intent    string
	CreatedTs int64
	ID        int32
	SessionID int32
	Seq       int32
}

// FindConversationMessage specifies conditions for finding messages.
type FindConversationMessage struct {
	SessionID *int32
	Limit     int
	// Descending orders by sequence number descending (most recent first).
	Descending bool
}
