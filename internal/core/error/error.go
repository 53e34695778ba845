package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
)

// Kind classifies an AppError for boundary translation.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindUpstream           Kind = "upstream"
	KindNotFound           Kind = "not_found"
	KindTenantIsolation    Kind = "tenant_isolation"
	KindEscalationRequired Kind = "escalation_required"
	KindConflict           Kind = "conflict"
	KindInternal           Kind = "internal"
)

// AppError wraps an underlying error with a kind, an optional machine code,
// an HTTP status and a safe message.
type AppError struct {
	Err     error
	Kind    Kind
	Code    string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// New creates a new internal AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Kind:    KindInternal,
		Status:  status,
		Message: message,
	}
}

// Validation reports caller-correctable input. code is optional.
func Validation(code, message string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Status: http.StatusBadRequest, Message: message}
}

// NotFound reports an entity that does not exist in the caller's tenant scope.
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Upstream reports an unavailable or failing dependency.
func Upstream(err error, message string) *AppError {
	return &AppError{Err: err, Kind: KindUpstream, Status: http.StatusBadGateway, Message: message}
}

// TenantIsolation reports a reference that crosses tenant boundaries.
func TenantIsolation(message string) *AppError {
	return &AppError{Kind: KindTenantIsolation, Status: http.StatusNotFound, Message: message}
}

// EscalationRequired signals that automation must stop for this conversation.
func EscalationRequired(reason string) *AppError {
	return &AppError{Kind: KindEscalationRequired, Code: reason, Status: http.StatusConflict, Message: "escalation required"}
}

// Conflict reports a write that lost an optimistic concurrency check.
func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Code: "VERSION_CONFLICT", Status: http.StatusConflict, Message: message}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind != "" {
		return ae.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of the first AppError in err's chain.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsNotFound reports whether err is absent-in-scope, including cross-tenant misses.
func IsNotFound(err error) bool {
	k := KindOf(err)
	return k == KindNotFound || k == KindTenantIsolation
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return &AppError{Err: err, Kind: KindNotFound, Status: http.StatusNotFound, Message: RedisNotFoundMessage}
	}
	return &AppError{Err: err, Kind: KindUpstream, Status: http.StatusBadGateway, Message: RedisErrorMessage}
}
