package models

import "time"

// State is the lifecycle position of a project or task.
type State string

const (
	StateActive   State = "active"
	StateArchived State = "archived"
	StateDeleted  State = "deleted"
)

// deleted_at takes precedence over the archived flag.
func stateOf(deletedAt *time.Time, archived bool) State {
	switch {
	case deletedAt != nil:
		return StateDeleted
	case archived:
		return StateArchived
	default:
		return StateActive
	}
}
