package database

import (
	"errors"

	"github.com/lib/pq"
)

// SQLSTATE codes the stores react to.
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeLockNotAvailable     = "55P03"
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeNotNullViolation     = "23502"
	CodeCheckViolation       = "23514"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassDeadlock:
		return "deadlock"
	case ErrorClassSerialization:
		return "serialization"
	default:
		return "permanent"
	}
}

var (
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrLockTimeout          = errors.New("lock timeout")
)

// ClassifyError decides whether a failed transaction is worth another
// attempt. Constraint violations and missing rows never are.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	if errors.Is(err, ErrOptimisticLockFailed) || errors.Is(err, ErrLockTimeout) {
		return ErrorClassTransient
	}

	switch sqlState(err) {
	case CodeSerializationFailure:
		return ErrorClassSerialization
	case CodeDeadlockDetected:
		return ErrorClassDeadlock
	case CodeLockNotAvailable:
		return ErrorClassTransient
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	return ClassifyError(err) != ErrorClassPermanent
}

func IsUniqueViolation(err error) bool {
	return sqlState(err) == CodeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return sqlState(err) == CodeForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	return sqlState(err) == CodeCheckViolation
}

func sqlState(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
