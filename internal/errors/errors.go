// Package errors provides centralized error definitions and error handling utilities
// for the proxherd codebase. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - SpawnError: the OS rejected creation of a worker process
//   - ReadinessError: a worker was spawned but never confirmed listening
//   - StoreError: errors reading or writing the proxy record store
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewSpawnError("failed to launch worker", cause).WithProxyID("abc123")
//
//	// Semantic error
//	err := errors.NewNotFoundError("proxy", "abc123")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrProxyNotFound) { ... }
//
//	// Check for error types
//	var readyErr *errors.ReadinessError
//	if errors.As(err, &readyErr) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Proxy-record sentinel errors
var (
	// ErrProxyNotFound indicates that no record exists for a proxy identifier.
	ErrProxyNotFound = New("proxy not found")
	// ErrRecordExists indicates that a record already exists for an identifier.
	ErrRecordExists = New("proxy record already exists")
	// ErrRecordCorrupted indicates that a persisted record could not be decoded.
	ErrRecordCorrupted = New("proxy record corrupted")
)

// Worker-related sentinel errors
var (
	// ErrWorkerNotReady indicates that a worker has not yet advertised a bound port.
	ErrWorkerNotReady = New("worker not ready")
	// ErrProcessExited indicates that a worker process died before becoming ready.
	ErrProcessExited = New("worker process exited")
)

// Daemon-related sentinel errors
var (
	// ErrAutostartUnsupported indicates that login autostart is not available
	// on the current platform.
	ErrAutostartUnsupported = New("autostart not supported on this platform")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ProxherdError is the base interface for all proxherd errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ProxherdError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SpawnError represents a failure to create a worker process. It is fatal to
// the start call that produced it; the persisted record is left in place for
// inspection, but nothing is registered as running.
//
// Example:
//
//	err := errors.NewSpawnError("failed to launch worker", cause)
//	err = err.WithProxyID("abc123").WithExecutable("/usr/local/bin/proxherd")
type SpawnError struct {
	baseError
	ProxyID    string
	Executable string
}

// NewSpawnError creates a new SpawnError.
func NewSpawnError(message string, cause error) *SpawnError {
	return &SpawnError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithProxyID adds a proxy identifier to the error context.
func (e *SpawnError) WithProxyID(id string) *SpawnError {
	e.ProxyID = id
	return e
}

// WithExecutable adds the executable path to the error context.
func (e *SpawnError) WithExecutable(path string) *SpawnError {
	e.Executable = path
	return e
}

// WithSeverity sets the error severity.
func (e *SpawnError) WithSeverity(s Severity) *SpawnError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SpawnError) Error() string {
	var parts []string
	if e.ProxyID != "" {
		parts = append(parts, fmt.Sprintf("proxy=%s", e.ProxyID))
	}
	if e.Executable != "" {
		parts = append(parts, fmt.Sprintf("exe=%s", e.Executable))
	}

	prefix := "spawn error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("spawn error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SpawnError) Is(target error) bool {
	if _, ok := target.(*SpawnError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ReadinessError represents a worker that was spawned but never confirmed
// accepting connections within the polling budget. The process is left
// running for manual inspection, so the error carries everything known at
// the time: the last record snapshot, whether the pid was still alive, and
// the tail of the worker's log file.
//
// Example:
//
//	err := errors.NewReadinessError("proxy never started listening", errors.ErrTimeout).
//		WithProxyID("abc123").
//		WithAttempts(80).
//		WithLogTail(tail)
type ReadinessError struct {
	baseError
	ProxyID        string
	Attempts       int
	Snapshot       string // last-known record fields, preformatted
	ProcessRunning bool
	LogTail        string // last lines of the worker log, verbatim
}

// NewReadinessError creates a new ReadinessError.
func NewReadinessError(message string, cause error) *ReadinessError {
	return &ReadinessError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithProxyID adds a proxy identifier to the error context.
func (e *ReadinessError) WithProxyID(id string) *ReadinessError {
	e.ProxyID = id
	return e
}

// WithAttempts records how many poll attempts were made.
func (e *ReadinessError) WithAttempts(n int) *ReadinessError {
	e.Attempts = n
	return e
}

// WithSnapshot attaches a preformatted summary of the last record fetch.
func (e *ReadinessError) WithSnapshot(s string) *ReadinessError {
	e.Snapshot = s
	return e
}

// WithProcessRunning records whether the worker pid was alive at failure time.
func (e *ReadinessError) WithProcessRunning(running bool) *ReadinessError {
	e.ProcessRunning = running
	return e
}

// WithLogTail attaches the tail of the worker's log file.
func (e *ReadinessError) WithLogTail(tail string) *ReadinessError {
	e.LogTail = tail
	return e
}

// Error returns the formatted error message.
func (e *ReadinessError) Error() string {
	prefix := "readiness error"
	if e.ProxyID != "" {
		prefix = fmt.Sprintf("readiness error [proxy=%s]", e.ProxyID)
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s\nattempts: %d", msg, e.Attempts)
	}
	if e.Snapshot != "" {
		msg = fmt.Sprintf("%s\nlast record: %s", msg, e.Snapshot)
	}
	msg = fmt.Sprintf("%s\nprocess running: %t", msg, e.ProcessRunning)
	if e.LogTail != "" {
		msg = fmt.Sprintf("%s\n--- last lines of worker log ---\n%s", msg, e.LogTail)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ReadinessError) Is(target error) bool {
	if _, ok := target.(*ReadinessError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StoreError represents a failure reading or writing the proxy record store.
// Supervisor state is unreliable without the store, so these are always
// propagated rather than swallowed.
//
// Example:
//
//	err := errors.NewStoreError("failed to persist record", cause).
//		WithOp("save").WithProxyID("abc123")
type StoreError struct {
	baseError
	Op      string
	ProxyID string
	Path    string
}

// NewStoreError creates a new StoreError.
func NewStoreError(message string, cause error) *StoreError {
	return &StoreError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithOp adds the store operation name to the error context.
func (e *StoreError) WithOp(op string) *StoreError {
	e.Op = op
	return e
}

// WithProxyID adds a proxy identifier to the error context.
func (e *StoreError) WithProxyID(id string) *StoreError {
	e.ProxyID = id
	return e
}

// WithPath adds a filesystem path to the error context.
func (e *StoreError) WithPath(path string) *StoreError {
	e.Path = path
	return e
}

// WithSeverity sets the error severity.
func (e *StoreError) WithSeverity(s Severity) *StoreError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *StoreError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.ProxyID != "" {
		parts = append(parts, fmt.Sprintf("proxy=%s", e.ProxyID))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}

	prefix := "store error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("store error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StoreError) Is(target error) bool {
	if _, ok := target.(*StoreError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("proxy", "abc123")
//	fmt.Println(err) // "proxy 'abc123' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrProxyNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("poll interval must be positive")
//	err = err.WithField("supervisor.poll_interval_ms").WithValue(-1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for proxy to accept connections", 8*time.Second)
//	fmt.Println(err) // "timeout error: waiting for proxy to accept connections (timeout: 8s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing ProxherdError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements ProxherdError
	var perr ProxherdError
	if As(err, &perr) {
		return perr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing ProxherdError with IsUserFacing() returning true
//   - Semantic errors (NotFoundError, ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements ProxherdError
	var perr ProxherdError
	if As(err, &perr) {
		return perr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &notFound) || As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ProxherdError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    alertOnCall(err)
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements ProxherdError
	var perr ProxherdError
	if As(err, &perr) {
		return perr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsDomainError returns true if the error is a domain-specific error
// (SpawnError, ReadinessError, or StoreError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var spawnErr *SpawnError
	var readyErr *ReadinessError
	var storeErr *StoreError

	return As(err, &spawnErr) || As(err, &readyErr) || As(err, &storeErr)
}

// IsSemanticError returns true if the error is a semantic error
// (NotFoundError, ValidationError, or TimeoutError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	var validation *ValidationError
	var timeout *TimeoutError

	return As(err, &notFound) || As(err, &validation) || As(err, &timeout)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the ProxherdError interface.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to process request")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to stop proxy %s", id)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
