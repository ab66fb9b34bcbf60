package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the intake pipeline and the query engine.
type ErrorKind string

const (
	KindUnknown            ErrorKind = ""
	KindBadInput           ErrorKind = "BadInput"
	KindStorageUnavailable ErrorKind = "StorageUnavailable"
	KindDetectionFailed    ErrorKind = "DetectionFailed"
	KindQueuePublishFailed ErrorKind = "QueuePublishFailed"
	KindNotFound           ErrorKind = "NotFound"
	KindAddressNotFound    ErrorKind = "AddressNotFound"
	KindUnavailable        ErrorKind = "Unavailable"
)

// Action tells the caller what to do about a failure.
type Action string

const (
	ActionNone                Action = "none"
	ActionResubmitPhoto       Action = "resubmit_photo"
	ActionTryDifferentAddress Action = "try_different_address"
	ActionServiceUnavailable  Action = "service_unavailable"
)

// Action maps the kind to the caller-facing remedy.
func (k ErrorKind) Action() Action {
	switch k {
	case KindBadInput, KindDetectionFailed:
		return ActionResubmitPhoto
	case KindAddressNotFound:
		return ActionTryDifferentAddress
	case KindStorageUnavailable, KindQueuePublishFailed, KindUnavailable, KindUnknown:
		return ActionServiceUnavailable
	default:
		return ActionNone
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds a classified error around cause (which may be nil).
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
