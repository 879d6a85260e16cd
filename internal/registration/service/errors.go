package service

import (
	"errors"

	dErrors "carreg/pkg/domain-errors"
)

// Kind separates fatal coordinator failures from expected-but-unusual ones
// so callers can branch without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindIDGeneration: no transaction id could be produced. Not retried.
	KindIDGeneration
	// KindBegin: Begin stopped part-way; the committed prefix stands.
	KindBegin
	// KindFinish: Finish could not run at all.
	KindFinish
	// KindForcedRegistration: the remote service rejected a forced pass.
	KindForcedRegistration
)

func (k Kind) String() string {
	switch k {
	case KindIDGeneration:
		return "id_generation"
	case KindBegin:
		return "transaction_begin"
	case KindFinish:
		return "transaction_finish"
	case KindForcedRegistration:
		return "forced_registration"
	}
	return "unknown"
}

// Error is a coordinator failure. The cause is a domain error so transports
// can still map it through its code.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, code dErrors.Code, msg string) error {
	return &Error{Kind: kind, Err: dErrors.Wrap(err, code, msg)}
}

// KindOf returns the kind of a coordinator error, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
