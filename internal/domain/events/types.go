package events

import "time"

// EventType defines the topic of an event
type EventType string

const (
	// Settings Events
	SettingsChanged EventType = "settings.changed"

	// Bundle Events
	BundleCreated       EventType = "bundle.created"
	BundleUpdated       EventType = "bundle.updated"
	BundleDeleted       EventType = "bundle.deleted"
	BundleStatusChanged EventType = "bundle.status_changed"

	// System Events
	SystemStartup EventType = "system.startup"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// Event is a domain event emitted after a committed change
type Event struct {
	ID          string         `json:"id"`
	Topic       EventType      `json:"topic"`
	Description string         `json:"description"`
	Summary     map[string]any `json:"summary"`
	Payload     map[string]any `json:"payload,omitempty"`
	User        string         `json:"user,omitempty"`
	Project     string         `json:"project,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
