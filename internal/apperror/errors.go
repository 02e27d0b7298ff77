// Package apperror defines the error taxonomy shared by services and handlers.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindTransient         Kind = "transient"
	KindAlreadyPaid       Kind = "already_paid"
	KindInternal          Kind = "internal"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrTransient         = &Error{Kind: KindTransient}
	ErrAlreadyPaid       = &Error{Kind: KindAlreadyPaid}
)

// Error carries enough context to build a user message without exposing
// storage details. Err is the wrapped cause and is never rendered to callers.
type Error struct {
	Kind     Kind
	Message  string
	Fields   map[string]string
	Entity   string
	EntityID string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func ValidationField(field, reason string) *Error {
	return Validation(map[string]string{field: reason})
}

func Conflict(entity, id, message string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, EntityID: id, Message: message}
}

func InvalidTransition(id string, from, to string) *Error {
	return &Error{
		Kind:     KindInvalidTransition,
		Entity:   "reservation",
		EntityID: id,
		Message:  fmt.Sprintf("cannot move reservation from %s to %s", from, to),
	}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, EntityID: id, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Message: op + " temporarily unavailable, please try again", Err: err}
}

func AlreadyPaid(id string) *Error {
	return &Error{Kind: KindAlreadyPaid, Entity: "reservation", EntityID: id, Message: "reservation is already paid"}
}
