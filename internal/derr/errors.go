// Package derr defines the error taxonomy shared across the assistant.
// "No match" conditions (no suggestion, no attention needed, nothing
// blocked) are normal results and are never modeled with these types.
package derr

import (
	"errors"
	"fmt"
)

// ConfigurationError reports missing credentials or keys. It is fatal:
// surfaced as a setup message at startup and never retried.
type ConfigurationError struct {
	Setting string
	Hint    string
}

func (e *ConfigurationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("configuration error: %s (%s)", e.Setting, e.Hint)
	}
	return fmt.Sprintf("configuration error: %s", e.Setting)
}

// NewConfigurationError builds a ConfigurationError for a setting.
func NewConfigurationError(setting, hint string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Hint: hint}
}

// BackendError reports a failed LLM call. The executor performs exactly
// one fallback retry (secondary to primary); beyond that the error
// surfaces as a service-unavailable condition.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError wraps err with the backend name.
func NewBackendError(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Err: err}
}

// NotFoundError reports a referenced task/email/event/record that does
// not exist. Surfaced to the caller, never silently dropped.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsBackend reports whether err is (or wraps) a BackendError.
func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
