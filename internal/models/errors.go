package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrRecordNotFound is returned by the store when a row does not exist.
var ErrRecordNotFound = errors.New("record not found")

type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindBadRequest ErrorKind = "bad_request"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

const (
	CodeNotFound          = "not_found"
	CodeItemNotFound      = "item_not_found"
	CodeCartNotFound      = "cart_not_found"
	CodeLineNotFound      = "line_not_found"
	CodeBadRequest        = "bad_request"
	CodeInsufficientStock = "insufficient_stock"
	CodeCartChanged       = "cart_changed"
	CodeDuplicateRequest  = "duplicate_request"
	CodeRequestInProgress = "request_in_progress"
	CodeInternal          = "internal_error"
)

// Error is a domain error returned at the service boundary.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFoundf(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

func BadRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(available, requested int) *Error {
	return &Error{
		Kind:    KindBadRequest,
		Code:    CodeInsufficientStock,
		Message: "Insufficient stock",
		Details: map[string]any{"available": available, "requested": requested},
	}
}

// Duplicate reports an idempotency key whose purchase already completed.
func Duplicate(key string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeDuplicateRequest,
		Message: "Request already processed",
		Details: map[string]any{"idempotency_key": key},
	}
}

// InProgress reports an idempotency key whose purchase has not finished yet.
func InProgress(key string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeRequestInProgress,
		Message: "Request with this idempotency key is in progress",
		Details: map[string]any{"idempotency_key": key},
	}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "Internal server error", Err: err}
}

// ConflictError is returned by strict checkout when the cart drifted from the
// live catalog. Nothing was changed.
type ConflictError struct {
	Changes  []Change
	Subtotal decimal.Decimal
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cart items have changed: %d change(s)", len(e.Changes))
}

// KindOf classifies err. Unknown errors are Internal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return KindConflict
	}
	return KindInternal
}
