package repositories

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// OwnedBy restricts projects to one owner.
func OwnedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("projects.user_id = ?", userID)
	}
}

// TaskOwnedBy restricts tasks to those whose project belongs to the owner.
func TaskOwnedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.project_id IN (SELECT id FROM projects WHERE user_id = ?)", userID)
	}
}

func NotDeleted(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table + ".deleted_at IS NULL")
	}
}

func InRecycleBin(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table + ".deleted_at IS NOT NULL")
	}
}

func ArchivedIs(table string, archived bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".is_archived = ?", archived)
	}
}

// ProjectView selects which non-deleted projects a listing returns.
type ProjectView int

const (
	ViewAll ProjectView = iota
	ViewActive
	ViewArchived
)

// ParseProjectView maps the optional ?archived= query value. Anything other
// than "true" or "false" means no archive filter.
func ParseProjectView(archived string) ProjectView {
	switch archived {
	case "true":
		return ViewArchived
	case "false":
		return ViewActive
	default:
		return ViewAll
	}
}

func (v ProjectView) scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch v {
		case ViewActive:
			return ArchivedIs("projects", false)(db)
		case ViewArchived:
			return ArchivedIs("projects", true)(db)
		default:
			return db
		}
	}
}
