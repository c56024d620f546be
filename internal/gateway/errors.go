package gateway

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// AuthError reports rejected credentials or failed input validation.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// NetworkError reports that no HTTP response reached the client.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "unable to connect to server: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx response with a body.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string { return e.Message }

// NotFoundError reports a stale identifier the backend no longer knows.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

type errorBody struct {
	Message json.RawMessage            `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// extractMessage turns an error response body into a human-readable string.
// Precedence: concatenated values of the "errors" map, then "message", then
// the supplied fallback. Map values are joined in key order so the result is
// deterministic.
func extractMessage(body []byte, fallback string) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fallback
	}

	if len(parsed.Errors) > 0 {
		keys := make([]string, 0, len(parsed.Errors))
		for key := range parsed.Errors {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		values := make([]string, 0, len(keys))
		for _, key := range keys {
			value := strings.TrimSpace(rawToString(parsed.Errors[key]))
			if value != "" {
				values = append(values, value)
			}
		}
		if len(values) > 0 {
			return strings.Join(values, ". ")
		}
	}

	if msg := strings.TrimSpace(rawToString(parsed.Message)); msg != "" {
		return msg
	}
	return fallback
}

// rawToString unquotes JSON strings and renders anything else verbatim.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
