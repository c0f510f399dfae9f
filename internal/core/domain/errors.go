package domain

import (
	"errors"
	"fmt"
)

const (
	KindUnknown ErrorKind = iota
	KindInsufficientFunds
	KindLockConflict
	KindConstructionFailed
	KindBroadcastFailed
	KindNotFound
	KindStale
)

type ErrorKind int

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindLockConflict:
		return "LOCK_CONFLICT"
	case KindConstructionFailed:
		return "CONSTRUCTION_FAILED"
	case KindBroadcastFailed:
		return "BROADCAST_FAILED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindStale:
		return "STALE"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds, Msg: "insufficient funds"}
	ErrLockConflict       = &Error{Kind: KindLockConflict, Msg: "note lock conflict"}
	ErrConstructionFailed = &Error{Kind: KindConstructionFailed, Msg: "transaction construction failed"}
	ErrBroadcastFailed    = &Error{Kind: KindBroadcastFailed, Msg: "transaction broadcast failed"}
	ErrNotFound           = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrStale              = &Error{Kind: KindStale, Msg: "wallet is locked"}

	ErrInvalidTransition = errors.New("invalid transaction status transition")
)

// Error is the error type surfaced to callers of the wallet service. Two
// errors are considered equal by errors.Is when their kinds match.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func NewError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		Msg:   fmt.Sprintf(format, args...),
		Cause: cause,
	}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Msg, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error found in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ErrInsufficientFundsDetail carries the amounts involved in a failed coin
// selection.
type ErrInsufficientFundsDetail struct {
	Available uint64
	Required  uint64
}

func (e *ErrInsufficientFundsDetail) Error() string {
	return fmt.Sprintf(
		"not enough funds: available %d, required %d", e.Available, e.Required,
	)
}

func NewInsufficientFundsError(available, required uint64) *Error {
	return &Error{
		Kind:  KindInsufficientFunds,
		Msg:   "insufficient funds",
		Cause: &ErrInsufficientFundsDetail{available, required},
	}
}
