package publishers

import (
	"time"
)

// Event is the lifecycle record published downstream for one request phase.
type Event struct {
	RequestID  string    `json:"request_id"`
	Phase      string    `json:"phase"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event for the given request + phase.
func NewEvent(requestID, phase string) Event {
	return Event{
		RequestID:  requestID,
		Phase:      phase,
		OccurredAt: time.Now().UTC(),
	}
}

// attributes are the message attributes every queue sink attaches.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"request_id": e.RequestID,
		"phase":      e.Phase,
	}
}
