// Package apperr is the error taxonomy shared by the catalog and order services.
// Every failure that crosses an HTTP boundary is an *Error with a stable Kind.
package apperr

import (
	"fmt"
	"github.com/pkg/errors"
	"net/http"
	"sort"
	"strings"
)

type Kind string

const (
	KindValidation             Kind = "ValidationError"
	KindNotFound               Kind = "NotFound"
	KindCustomerNotFound       Kind = "CustomerNotFound"
	KindEmptyItems             Kind = "EmptyItems"
	KindEmptyUpdate            Kind = "EmptyUpdate"
	KindUnavailable            Kind = "Unavailable"
	KindInsufficientStock      Kind = "InsufficientStock"
	KindInvalidTransition      Kind = "InvalidTransition"
	KindVersionConflict        Kind = "VersionConflict"
	KindUnauthorized           Kind = "Unauthorized"
	KindForbidden              Kind = "Forbidden"
	KindTransactionUnavailable Kind = "TransactionUnavailable"
	KindTransactionConflict    Kind = "TransactionConflict"
	KindIdempotencyInProgress  Kind = "IdempotencyInProgress"
	KindUpstreamUnavailable    Kind = "UpstreamUnavailable"
	KindInternal               Kind = "InternalServerError"
)

var statusByKind = map[Kind]int{
	KindValidation:             http.StatusUnprocessableEntity,
	KindNotFound:               http.StatusNotFound,
	KindCustomerNotFound:       http.StatusNotFound,
	KindEmptyItems:             http.StatusBadRequest,
	KindEmptyUpdate:            http.StatusBadRequest,
	KindUnavailable:            http.StatusBadRequest,
	KindInsufficientStock:      http.StatusConflict,
	KindInvalidTransition:      http.StatusBadRequest,
	KindVersionConflict:        http.StatusConflict,
	KindUnauthorized:           http.StatusUnauthorized,
	KindForbidden:              http.StatusForbidden,
	KindTransactionUnavailable: http.StatusInternalServerError,
	KindTransactionConflict:    http.StatusServiceUnavailable,
	KindIdempotencyInProgress:  http.StatusConflict,
	KindUpstreamUnavailable:    http.StatusServiceUnavailable,
	KindInternal:               http.StatusInternalServerError,
}

// Issue is one field-level validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Details map[string]any
	Issues  []Issue
	cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Details[k])
		}
	}
	for _, is := range e.Issues {
		fmt.Fprintf(&b, " [%s: %s]", is.Path, is.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Status is the HTTP status the error is surfaced with.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(kind Kind, details map[string]any) *Error {
	return &Error{Kind: kind, Details: details}
}

// Wrap attaches a kind to an infrastructure error, keeping it as the cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, cause: errors.Wrap(cause, msg)}
}

func Validation(issues ...Issue) *Error {
	return &Error{Kind: KindValidation, Issues: issues}
}

func NotFound() *Error { return New(KindNotFound, nil) }

func InsufficientStock(productID string) *Error {
	return New(KindInsufficientStock, map[string]any{"productId": productID})
}

func Unavailable(productID string) *Error {
	return New(KindUnavailable, map[string]any{"productId": productID})
}

func InvalidTransition(from, to string) *Error {
	return New(KindInvalidTransition, map[string]any{"from": from, "to": to})
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err; errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable is true for failures a caller may retry unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamUnavailable, KindTransactionConflict:
		return true
	}
	return false
}

// Detail returns a string detail value, or "" when absent.
func (e *Error) Detail(key string) string {
	if v, ok := e.Details[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}
