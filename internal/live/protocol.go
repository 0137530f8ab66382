package live

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	MapID    string          `json:"mapId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	// Connection
	TypeWelcome = "welcome"

	// Progress reporting
	TypeProgressUpdate  = "progress.update"
	TypeProgressUpdated = "progress.updated"

	TypeError = "error"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
}

// ProgressUpdatePayload reports one completion state change.
type ProgressUpdatePayload struct {
	ModuleID string `json:"moduleId"`
	State    int16  `json:"state"`
}

// ProgressUpdatedPayload carries a freshly personalized render to one
// client after any member of the room reported progress.
type ProgressUpdatedPayload struct {
	ModuleID  string   `json:"moduleId"`
	UserID    string   `json:"userId"`
	State     int16    `json:"state"`
	SVG       string   `json:"svg"`
	Active    []string `json:"active"`
	Completed []string `json:"completed"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}
