// Package core holds the shared types crossed by every airbridge layer:
// the uniform operation result and its error taxonomy.
package core

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies an operation failure. Callers that need to branch on
// failure class (tests, audit records) use the kind; the wire shape carries
// only code and message.
type ErrorKind string

const (
	// KindPolicy — a mutating call was blocked by the read-only gate.
	KindPolicy ErrorKind = "policy"
	// KindRemote — the control plane or data plane returned a non-success status.
	KindRemote ErrorKind = "remote"
	// KindTransport — network, DNS, or timeout failure before any response.
	KindTransport ErrorKind = "transport"
	// KindDecode — malformed base64/UTF-8 in a credential or source payload.
	KindDecode ErrorKind = "decode"
)

// OpError is the error half of a Result.
type OpError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *OpError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is the return value of every public operation: exactly one of a
// success payload or an error. The zero value is an empty success payload.
type Result struct {
	Payload map[string]any
	Err     *OpError
}

// OK wraps a success payload.
func OK(payload map[string]any) Result {
	return Result{Payload: payload}
}

// OKMessage wraps the conventional empty-body success shape.
func OKMessage(msg string) Result {
	return Result{Payload: map[string]any{"message": msg}}
}

// Failure builds an error result.
func Failure(kind ErrorKind, code, message string) Result {
	return Result{Err: &OpError{Kind: kind, Code: code, Message: message}}
}

// Failuref builds an error result with a formatted code and no separate message.
func Failuref(kind ErrorKind, format string, args ...any) Result {
	return Result{Err: &OpError{Kind: kind, Code: fmt.Sprintf(format, args...)}}
}

// IsError reports whether the result carries an error payload.
func (r Result) IsError() bool { return r.Err != nil }

// MarshalJSON renders the wire shape: the payload unchanged on success, or
// {"error": code, "message"?: message} on failure. A caller distinguishes the
// two solely by the presence of the "error" field.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		out := map[string]any{"error": r.Err.Code}
		if r.Err.Message != "" {
			out["message"] = r.Err.Message
		}
		return json.Marshal(out)
	}
	if r.Payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Payload)
}

// Get returns a payload field, nil when absent or when the result is an error.
func (r Result) Get(key string) any {
	if r.Payload == nil {
		return nil
	}
	return r.Payload[key]
}
