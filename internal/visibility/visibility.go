// Package visibility decides whether a viewer may see a piece of content.
package visibility

import (
	"iskrib/internal/models"

	"gorm.io/gorm"
)

// Anonymous is the viewer ID of an unauthenticated request.
const Anonymous uint = 0

// Visible reports whether viewerID may see an entity with the given privacy
// and author.
func Visible(privacy models.Visibility, authorID, viewerID uint) bool {
	if privacy == models.VisibilityPublic {
		return true
	}
	return viewerID != Anonymous && viewerID == authorID
}

// Check is the post-fetch form of the gate used by single-item lookups. A
// hidden entity is reported as not found so its existence does not leak.
func Check(resource string, id any, privacy models.Visibility, authorID, viewerID uint) error {
	if Visible(privacy, authorID, viewerID) {
		return nil
	}
	return models.NewNotFoundError(resource, id)
}

// Scope applies the gate as a query filter on a table with privacy and
// user_id columns.
func Scope(table string, viewerID uint) func(*gorm.DB) *gorm.DB {
	privacy := table + ".privacy"
	author := table + ".user_id"
	return func(db *gorm.DB) *gorm.DB {
		if viewerID == Anonymous {
			return db.Where(privacy+" = ?", models.VisibilityPublic)
		}
		return db.Where("("+privacy+" = ? OR "+author+" = ?)", models.VisibilityPublic, viewerID)
	}
}
