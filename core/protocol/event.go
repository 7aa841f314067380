package protocol

// EventType tags an event streamed back to the caller of a turn.
type EventType string

const (
	EventToken        EventType = "token"
	EventConfirmation EventType = "confirmation"
	EventError        EventType = "error"
	EventDone         EventType = "done"
)

// Event is one element of a streamed turn response. Token and error events
// carry Content; confirmation events carry Payload. Done marks the end of a
// turn on transports that carry several turns per connection.
type Event struct {
	Type    EventType            `json:"type"`
	Content string               `json:"content,omitempty"`
	Payload *ConfirmationPayload `json:"payload,omitempty"`
}

// ConfirmationPayload is sent when a turn suspends awaiting approval.
type ConfirmationPayload struct {
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Message              string `json:"message"`
}

// TokenEvent wraps a streamed reply fragment.
func TokenEvent(content string) Event {
	return Event{Type: EventToken, Content: content}
}

// ConfirmationEvent wraps the approval prompt for a suspended turn.
func ConfirmationEvent(message string) Event {
	return Event{
		Type:    EventConfirmation,
		Payload: &ConfirmationPayload{RequiresConfirmation: true, Message: message},
	}
}

// ErrorEvent wraps an unrecoverable turn failure.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Content: err.Error()}
}

// DoneEvent closes a turn.
func DoneEvent() Event {
	return Event{Type: EventDone}
}
