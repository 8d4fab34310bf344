package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
)

// NewAppError builds an AppError with an optional cause.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ReviewError marks a per-document condition that should be routed to a
// human instead of failing the batch: encrypted documents, documents with
// no extractable text, and similar routine cases. Callers classify it with
// errors.As and record a review outcome; it is never raised past the
// document loop.
type ReviewError struct {
	Reason string
}

func (e *ReviewError) Error() string {
	return e.Reason
}

// NewReviewError flags a document for manual review.
func NewReviewError(format string, args ...any) *ReviewError {
	return &ReviewError{Reason: fmt.Sprintf(format, args...)}
}

// IsReview reports whether err (or anything it wraps) is a ReviewError.
func IsReview(err error) bool {
	var re *ReviewError
	return errors.As(err, &re)
}
