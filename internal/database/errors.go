package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally restricted to a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrMedicineNotFound     = errors.New("medicine not found")
	ErrRequestNotFound      = errors.New("request not found")
	ErrUnauthorized         = errors.New("actor is not allowed to perform this action")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrDuplicateRequest     = errors.New("an active request for this medicine already exists")
	ErrSelfRequest          = errors.New("donors cannot request their own medicine")
	ErrMedicineExpired      = errors.New("medicine is past its expiry date")
	ErrMedicineInUse        = errors.New("medicine has active requests")
)
