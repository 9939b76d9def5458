package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "supervisor.poll_interval_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Store config
	errors = append(errors, c.validateStore()...)

	// Validate Supervisor config
	errors = append(errors, c.validateSupervisor()...)

	// Validate Worker config
	errors = append(errors, c.validateWorker()...)

	// Validate Daemon config
	errors = append(errors, c.validateDaemon()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateStore validates the StoreConfig
func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	// Dir validation - if set, check for invalid characters
	if c.Store.Dir != "" {
		path := c.Store.Dir

		// Check for null bytes which are invalid in paths
		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "store.dir",
				Value:   path,
				Message: "path contains invalid null character",
			})
		}

		// Reasonable path length limit (most filesystems have limits around 4096)
		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "store.dir",
				Value:   path,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}

// validateSupervisor validates the SupervisorConfig
func (c *Config) validateSupervisor() []ValidationError {
	var errors []ValidationError

	// Initial delay validation (0 means poll immediately, which is valid)
	const maxInitialDelay = 60_000 // 1 minute maximum

	if c.Supervisor.InitialDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "supervisor.initial_delay_ms",
			Value:   c.Supervisor.InitialDelayMs,
			Message: "must be non-negative (0 polls immediately)",
		})
	}
	if c.Supervisor.InitialDelayMs > maxInitialDelay {
		errors = append(errors, ValidationError{
			Field:   "supervisor.initial_delay_ms",
			Value:   c.Supervisor.InitialDelayMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxInitialDelay),
		})
	}

	// Poll interval validation
	const minPollInterval = 10    // 10ms minimum
	const maxPollInterval = 10000 // 10 seconds maximum

	if c.Supervisor.PollIntervalMs < minPollInterval {
		errors = append(errors, ValidationError{
			Field:   "supervisor.poll_interval_ms",
			Value:   c.Supervisor.PollIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPollInterval),
		})
	}
	if c.Supervisor.PollIntervalMs > maxPollInterval {
		errors = append(errors, ValidationError{
			Field:   "supervisor.poll_interval_ms",
			Value:   c.Supervisor.PollIntervalMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxPollInterval),
		})
	}

	// Attempt budget validation
	const minMaxAttempts = 1
	const maxMaxAttempts = 10000

	if c.Supervisor.MaxAttempts < minMaxAttempts {
		errors = append(errors, ValidationError{
			Field:   "supervisor.max_attempts",
			Value:   c.Supervisor.MaxAttempts,
			Message: fmt.Sprintf("must be at least %d", minMaxAttempts),
		})
	}
	if c.Supervisor.MaxAttempts > maxMaxAttempts {
		errors = append(errors, ValidationError{
			Field:   "supervisor.max_attempts",
			Value:   c.Supervisor.MaxAttempts,
			Message: fmt.Sprintf("exceeds maximum of %d", maxMaxAttempts),
		})
	}

	// Dial timeout validation
	const minDialTimeout = 10    // 10ms minimum
	const maxDialTimeout = 10000 // 10 seconds maximum

	if c.Supervisor.DialTimeoutMs < minDialTimeout {
		errors = append(errors, ValidationError{
			Field:   "supervisor.dial_timeout_ms",
			Value:   c.Supervisor.DialTimeoutMs,
			Message: fmt.Sprintf("must be at least %dms", minDialTimeout),
		})
	}
	if c.Supervisor.DialTimeoutMs > maxDialTimeout {
		errors = append(errors, ValidationError{
			Field:   "supervisor.dial_timeout_ms",
			Value:   c.Supervisor.DialTimeoutMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxDialTimeout),
		})
	}

	// Grace period validation (0 means delete immediately, which is valid)
	const maxStopGrace = 60_000 // 1 minute maximum

	if c.Supervisor.StopGraceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "supervisor.stop_grace_ms",
			Value:   c.Supervisor.StopGraceMs,
			Message: "must be non-negative (0 deletes immediately)",
		})
	}
	if c.Supervisor.StopGraceMs > maxStopGrace {
		errors = append(errors, ValidationError{
			Field:   "supervisor.stop_grace_ms",
			Value:   c.Supervisor.StopGraceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxStopGrace),
		})
	}

	return errors
}

// validateWorker validates the WorkerConfig
func (c *Config) validateWorker() []ValidationError {
	var errors []ValidationError

	const minUpstreamDialTimeout = 10     // 10ms minimum
	const maxUpstreamDialTimeout = 60_000 // 1 minute maximum

	if c.Worker.UpstreamDialTimeoutMs < minUpstreamDialTimeout {
		errors = append(errors, ValidationError{
			Field:   "worker.upstream_dial_timeout_ms",
			Value:   c.Worker.UpstreamDialTimeoutMs,
			Message: fmt.Sprintf("must be at least %dms", minUpstreamDialTimeout),
		})
	}
	if c.Worker.UpstreamDialTimeoutMs > maxUpstreamDialTimeout {
		errors = append(errors, ValidationError{
			Field:   "worker.upstream_dial_timeout_ms",
			Value:   c.Worker.UpstreamDialTimeoutMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxUpstreamDialTimeout),
		})
	}

	return errors
}

// validateDaemon validates the DaemonConfig
func (c *Config) validateDaemon() []ValidationError {
	var errors []ValidationError

	const minReconcileInterval = 1     // 1 second minimum
	const maxReconcileInterval = 86400 // 1 day maximum

	if c.Daemon.ReconcileIntervalSec < minReconcileInterval {
		errors = append(errors, ValidationError{
			Field:   "daemon.reconcile_interval_sec",
			Value:   c.Daemon.ReconcileIntervalSec,
			Message: fmt.Sprintf("must be at least %d second", minReconcileInterval),
		})
	}
	if c.Daemon.ReconcileIntervalSec > maxReconcileInterval {
		errors = append(errors, ValidationError{
			Field:   "daemon.reconcile_interval_sec",
			Value:   c.Daemon.ReconcileIntervalSec,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxReconcileInterval),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
