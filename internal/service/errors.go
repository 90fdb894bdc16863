package service

import (
	"errors"

	"iskrib/internal/models"

	"gorm.io/gorm"
)

// notFoundOr names the missing resource on a not-found error and maps every
// other store error.
func notFoundOr(err error, resource string, id any, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.MapStoreError(op, err)
}
