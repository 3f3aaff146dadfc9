package activity

import "time"

// Event types
const (
	TypeAction = "action"
	TypeSpeech = "speech"
)

// Event is one status line broadcast to operator dashboards.
type Event struct {
	Type    string    `json:"type"` // "action" or "speech"
	CallID  string    `json:"callId,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// NewActionEvent creates an event describing something the system did.
func NewActionEvent(callID, message string) Event {
	return Event{
		Type:    TypeAction,
		CallID:  callID,
		Message: message,
		Time:    time.Now(),
	}
}

// NewSpeechEvent creates an event carrying a caller transcript.
func NewSpeechEvent(callID, text string) Event {
	return Event{
		Type:    TypeSpeech,
		CallID:  callID,
		Message: text,
		Time:    time.Now(),
	}
}
