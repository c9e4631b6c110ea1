package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("download not found")
	ErrNotCompleted = errors.New("download not completed")
	ErrExpired      = errors.New("file has expired")
	ErrFileMissing  = errors.New("file not found")
	ErrQueueFull    = errors.New("download queue is full")
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError is a malformed or missing request field. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(msg string) error { return &ValidationError{Message: msg} }

// NotFoundError is returned when a record is absent or owned by someone else.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("download %s not found", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ExtractionFailure carries what the extraction service (or the transport) reported.
type ExtractionFailure struct {
	Message string
	Cause   error
}

func (e *ExtractionFailure) Error() string { return e.Message }

func (e *ExtractionFailure) Unwrap() error { return e.Cause }

// ExpiredResourceError is raised when a file fetch happens past expiresAt.
type ExpiredResourceError struct {
	ID string
}

func (e *ExpiredResourceError) Error() string { return fmt.Sprintf("download %s: file has expired", e.ID) }

func (e *ExpiredResourceError) Is(target error) bool { return target == ErrExpired }

// StorageError wraps a filesystem failure for a single record.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
