package repository

import (
	"errors"
	"fmt"

	"github.com/farmconnect/contracts-api/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned when the stored version no longer matches
	ErrVersionConflict = errors.New("version conflict")
	// ErrInvalid is returned when a record fails store-level validation
	ErrInvalid = errors.New("invalid record")
)

// IsNotFound reports whether err means the record is missing
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsVersionConflict reports whether err came from a stale version token
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// translateError maps driver errors onto the package sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, models.ErrInvalidContract):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return err
}
