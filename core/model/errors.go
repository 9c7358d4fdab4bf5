package model

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed constraint or tariff. It stops processing of
// the affected appliance or tariff only; the caller decides whether to skip it
// or abort the run.
type ConfigError struct {
	// Subject names the appliance, tariff or field at fault.
	Subject string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Subject == "" {
		return "config error: " + e.Reason
	}
	return fmt.Sprintf("config error: %s: %s", e.Subject, e.Reason)
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(subject, format string, args ...any) *ConfigError {
	return &ConfigError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
