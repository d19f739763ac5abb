package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error kinds the booking orchestrator can return. The HTTP layer maps each to
// its own status code instead of collapsing everything into a 500.

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

type CapacityError struct {
	TourName  string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("tour %s has only %d places left, %d requested", e.TourName, e.Available, e.Requested)
}

type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

type PaymentError struct {
	Op  string
	Err error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment %s failed: %v", e.Op, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// ConflictError surfaces lock contention as a retryable failure.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update conflict, retry the request: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// classifyTxError wraps postgres serialization failures (40001) and deadlocks
// (40P01) as ConflictError; anything else passes through.
func classifyTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return &ConflictError{Err: err}
		}
	}
	return err
}
