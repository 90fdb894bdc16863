package pagination

import (
	"time"

	"gorm.io/gorm"
)

// Before orders rows newest first and keeps those created strictly before the
// cursor. The id column breaks ties inside one page only; the cursor itself
// carries the timestamp alone.
func Before(table string, before *time.Time, limit int) func(*gorm.DB) *gorm.DB {
	created := table + ".created_at"
	return func(db *gorm.DB) *gorm.DB {
		if before != nil {
			db = db.Where(created+" < ?", *before)
		}
		return db.Order(created + " DESC").Order(table + ".id DESC").Limit(limit)
	}
}

// After orders rows oldest first and keeps those created strictly after the
// cursor.
func After(table string, after *time.Time, limit int) func(*gorm.DB) *gorm.DB {
	created := table + ".created_at"
	return func(db *gorm.DB) *gorm.DB {
		if after != nil {
			db = db.Where(created+" > ?", *after)
		}
		return db.Order(created + " ASC").Order(table + ".id ASC").Limit(limit)
	}
}

// BeforeID is the id-keyed variant: newest id first, strictly below the cursor.
func BeforeID(table string, before *uint, limit int) func(*gorm.DB) *gorm.DB {
	id := table + ".id"
	return func(db *gorm.DB) *gorm.DB {
		if before != nil {
			db = db.Where(id+" < ?", *before)
		}
		return db.Order(id + " DESC").Limit(limit)
	}
}
