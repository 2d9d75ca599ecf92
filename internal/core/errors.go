package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FetchError is a failed read from the remote API. The previous snapshot,
// if any, stays in place when a load fails with it.
type FetchError struct {
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch: %s: %v", e.Message, e.Err)
	}
	return "fetch: " + e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

// RequestError is a failed write against the remote API (network error or
// a 5xx). The caller decides whether to resubmit; nothing retries here.
type RequestError struct {
	Message string
	Status  int // 0 when the request never reached the server
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request: %s: %v", e.Message, e.Err)
	}
	return "request: " + e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

// NotFoundError is a write against an identity the remote no longer has.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "contribution not found: " + e.ID
}

// ConflictError rejects a mutation while another one against the same
// identity is still in flight. Nothing was sent to the remote.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return "mutation already in flight for " + e.Key
}

// ValidationError carries per-field messages, either from the local
// pre-flight check or mapped back from a remote 4xx payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for one field, or "".
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// AsValidation unwraps err into a *ValidationError, or nil.
func AsValidation(err error) *ValidationError {
	var v *ValidationError
	if errors.As(err, &v) {
		return v
	}
	return nil
}
