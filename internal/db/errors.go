package db

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrConstraint marks a write rejected by a uniqueness or
	// referential-integrity rule. Callers surface it as a form-level
	// validation failure, never as a server error.
	ErrConstraint = errors.New("constraint violation")

	// ErrSelfFollow marks an attempt to create a follow edge from a user
	// to themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// translateError maps driver errors onto the store taxonomy. GORM's
// TranslateError mode already normalizes the interesting Postgres codes.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return errors.Join(ErrConstraint, err)
	}
	return err
}
