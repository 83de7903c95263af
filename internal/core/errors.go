package core

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindForbidden
	KindAuth
	KindConnection
	KindExtraction
	KindGeneration
	KindDelivery
)

var kindNames = map[Kind]string{
	KindInternal:       "internal",
	KindInvalidRequest: "invalid_request",
	KindForbidden:      "forbidden",
	KindAuth:           "auth",
	KindConnection:     "connection",
	KindExtraction:     "extraction",
	KindGeneration:     "generation",
	KindDelivery:       "delivery",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure raised at a pipeline stage boundary
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err under kind. An error that already carries a kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		kind = ce.Kind
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
