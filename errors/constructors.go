package errors

import (
	"fmt"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *BridgeError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *BridgeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// Resolution reports a path segment or index that does not exist on its parent.
func Resolution(path, segment string, cause error) *BridgeError {
	return Wrap(cause, ErrCodeResolution, fmt.Sprintf("cannot resolve '%s' in path '%s'", segment, path)).
		WithDetail("path", path).
		WithDetail("segment", segment)
}

// Accessor reports a failed get, set or call on a resolved attribute.
func Accessor(action, attribute string, cause error) *BridgeError {
	return Wrap(cause, ErrCodeAccessor, fmt.Sprintf("%s '%s' failed", action, attribute)).
		WithDetail("action", action).
		WithDetail("attribute", attribute)
}

// NotFound reports a named item that could not be located.
func NotFound(kind, name string) *BridgeError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s '%s' not found", kind, name)).
		WithDetail("kind", kind).
		WithDetail("name", name)
}

// Connection reports an unreachable or broken host connection.
func Connection(addr string, cause error) *BridgeError {
	return Wrap(cause, ErrCodeConnection, fmt.Sprintf("no connection to host at %s", addr)).
		WithDetail("address", addr)
}

// Timeout reports an operation that produced no result within its bound.
func Timeout(operation string, after time.Duration) *BridgeError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", operation, after)).
		WithDetail("operation", operation).
		WithDetail("timeout", after.String())
}

// Protocol reports a malformed or non-JSON payload.
func Protocol(reason string, cause error) *BridgeError {
	return Wrap(cause, ErrCodeProtocol, fmt.Sprintf("protocol error: %s", reason))
}

// CommandFailed carries an error reported by the host for a command.
func CommandFailed(command, message string) *BridgeError {
	return New(ErrCodeCommandFailed, fmt.Sprintf("%s failed: %s", command, message)).
		WithDetail("command", command).
		WithDetail("host_message", message)
}

// UnknownCommand reports a command type with no handler.
func UnknownCommand(command string) *BridgeError {
	return New(ErrCodeUnknownCommand, fmt.Sprintf("unknown command: %s", command)).
		WithDetail("command", command)
}

// InvalidInput reports a malformed parameter.
func InvalidInput(field, reason string) *BridgeError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field)
}
