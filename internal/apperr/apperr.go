// Package apperr tags errors raised by the core (config, storage, logging,
// rpc, server, daemon) with a stable kind string so the RPC dispatcher and the CLI can both
// branch on "what kind of thing went wrong" without string-matching error
// messages.
package apperr

import "fmt"

// Kind identifies a family of error the core can raise.
type Kind string

const (
	// Paths
	PathError Kind = "PathError"

	// Config Store
	ConfigParse     Kind = "ConfigParse"
	ProfileNotFound Kind = "ProfileNotFound"
	InvalidValue    Kind = "InvalidValue"
	ProtectedProfile Kind = "ProtectedProfile"

	// Storage Engine
	StorageOpen   Kind = "StorageOpen"
	StorageSchema Kind = "StorageSchema"
	StorageBusy   Kind = "StorageBusy"
	StorageError  Kind = "StorageError"
	NotFound      Kind = "NotFound"

	// Query gate
	QueryNotAllowed Kind = "QueryNotAllowed"

	// RPC dispatcher
	InvalidParams Kind = "InvalidParams"
	MethodNotFound Kind = "MethodNotFound"
	ParseError    Kind = "ParseError"
	InternalError Kind = "InternalError"

	// Logger
	LoggerInit Kind = "LoggerInit"
)

// Error wraps an underlying error with a Kind the caller can match on.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the plain message, deliberately omitting the Kind — callers
// that need the kind use apperr.As, not string matching on Error().
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kind-tagged error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As is a small helper mirroring errors.As for *Error, so callers don't
// need to import "errors" just to recover the Kind.
func As(err error) (*Error, bool) {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			return ae, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
