package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "POST_CONTENT_SAVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeEditorSessionOpened = "EDITOR_SESSION_OPENED"
	TypePostContentSaved    = "POST_CONTENT_SAVED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String reads a string field of the payload, "" when absent.
func String(e Event, key string) string {
	v, _ := e.Payload()[key].(string)
	return v
}

func EditorSessionOpened(sessionID, postID, userID string) BaseEvent {
	return BaseEvent{
		Type: TypeEditorSessionOpened,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"post_id":    postID,
			"user_id":    userID,
		},
		OccurredAt: time.Now(),
	}
}

func PostContentSaved(sessionID, postID string, revision int) BaseEvent {
	return BaseEvent{
		Type: TypePostContentSaved,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"post_id":    postID,
			"revision":   revision,
		},
		OccurredAt: time.Now(),
	}
}
