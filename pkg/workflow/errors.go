package workflow

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrDuplicateNode     = errors.New("duplicate node")
	ErrInvalidConnection = errors.New("invalid connection")
	ErrPortOccupied      = errors.New("inport already connected")
	ErrNotContainer      = errors.New("node is not a container")
)

// Error provides structured error information for workflow operations.
type Error struct {
	Op      string // Operation that failed (e.g., "Connect", "CanExecute")
	Entity  string // Entity type (e.g., "node", "connection")
	ID      NodeID // Entity ID (if applicable)
	Port    int    // Port index, -1 if not applicable
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.Port >= 0:
		return fmt.Sprintf("%s %s %s (port %d): %v", e.Op, e.Entity, e.ID, e.Port, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op, Port: -1}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id NodeID) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Connection sets the entity to "connection" and records it as context.
func (b *ErrorBuilder) Connection(c Connection) *ErrorBuilder {
	b.err.Entity = "connection"
	b.err.Context = c.String()
	return b
}

// Port sets the port index.
func (b *ErrorBuilder) Port(port int) *ErrorBuilder {
	b.err.Port = port
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() *Error {
	e := b.err
	return &e
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return b.Build()
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op string, id NodeID) error {
	return NewError(op).Node(id).Cause(ErrNodeNotFound).Err()
}

// ConnectionError creates an invalid connection error.
func ConnectionError(op string, c Connection, cause error) error {
	return NewError(op).Connection(c).Cause(cause).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
