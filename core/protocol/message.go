package protocol

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single speaker-tagged turn of conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a Message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// InitMessages starts a conversation with a single message.
func InitMessages(role Role, content string) []Message {
	return []Message{NewMessage(role, content)}
}

// WithSystem returns a new slice with a system prompt ahead of history. The
// history slice is not modified.
func WithSystem(prompt string, history []Message) []Message {
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, NewMessage(RoleSystem, prompt))
	return append(msgs, history...)
}

// Tail returns the last n messages of history, or all of them when n <= 0
// or history is shorter.
func Tail(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return append([]Message(nil), history[len(history)-n:]...)
}
