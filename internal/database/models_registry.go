package database

import "iskrib/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Journal{},
		&models.Like{},
		&models.Bookmark{},
		&models.Comment{},
		&models.Opinion{},
		&models.Notification{},
		&models.OpinionNotification{},
		&models.CanvasMarginItem{},
		&models.CanvasStamp{},
		&models.FreedomWallWeek{},
		&models.FreedomWallItem{},
	}
}
