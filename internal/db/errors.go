package db

import (
	"errors"

	"github.com/jinzhu/gorm"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err comes from a UNIQUE or primary key
// constraint rejecting an insert.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var errs gorm.Errors
	if errors.As(err, &errs) {
		for _, e := range errs {
			if IsUniqueViolation(e) {
				return true
			}
		}
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	return false
}

// IsNotFound reports whether err means the queried row does not exist.
func IsNotFound(err error) bool {
	return gorm.IsRecordNotFoundError(err)
}
