package lifecycle

import (
	"errors"
	"strings"

	"github.com/gofrs/uuid"
)

// EntityType names one of the soft-deletable kinds.
type EntityType string

const (
	TypeProject EntityType = "project"
	TypeTask    EntityType = "task"
)

var (
	ErrNotFound     = errors.New("item not found")
	ErrInvalidType  = errors.New("invalid type")
	ErrInRecycleBin = errors.New("item is in the recycle bin")
)

func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeProject:
		return TypeProject, nil
	case TypeTask:
		return TypeTask, nil
	default:
		return "", ErrInvalidType
	}
}

func (t EntityType) String() string {
	return string(t)
}

// Purged describes one project or task removed together with its cascade.
type Purged struct {
	Type  EntityType
	ID    uuid.UUID
	Owner uuid.UUID
	Tasks int
	Files []string
}
