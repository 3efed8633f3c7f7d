package cfddns

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the failures a run can produce.
type Kind int

const (
	KindExec      Kind = iota + 1 // a local command was missing or failed
	KindParse                     // output or a response body was malformed
	KindIO                        // the state file could not be read or written
	KindTransport                 // the HTTP exchange failed or returned a non-2xx status
	KindAPI                       // the provider answered but reported failure
)

func (k Kind) String() string {
	switch k {
	case KindExec:
		return "exec"
	case KindParse:
		return "parse"
	case KindIO:
		return "io"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned by resolvers, caches and providers in this package.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "resolve" or "save"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// StatusError is returned when the provider API answers with a non-2xx status.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error (%d): %s", e.Code, e.Reason)
}

// APIError carries the messages of a response that reported "success": false.
type APIError struct {
	Messages []string
}

func (e *APIError) Error() string {
	return strings.Join(e.Messages, ", ")
}
