package payment

import (
	"fmt"
)

// ConfigurationError reports missing or invalid merchant credentials.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment gateway misconfigured: %s is required", e.Field)
}

// ValidationError reports order data the gateway cannot accept.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError wraps transport failures of the verify call, timeouts included.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// GatewayError is a non-200 answer whose body could be decoded.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway error (http %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error (http %d)", e.StatusCode)
}

// ProtocolError is a response body that could not be decoded.
type ProtocolError struct {
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed gateway response (http %d): %v", e.StatusCode, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
