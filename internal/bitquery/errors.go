package bitquery

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a call failed.
type ErrorKind int

const (
	KindConnectivity ErrorKind = iota + 1
	KindAuthentication
	KindRemoteApplication
	KindNormalization
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindAuthentication:
		return "authentication"
	case KindRemoteApplication:
		return "remote_application"
	case KindNormalization:
		return "normalization"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by DexClient operations.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConnectivity      = &Error{Kind: KindConnectivity}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrRemoteApplication = &Error{Kind: KindRemoteApplication}
	ErrNormalization     = &Error{Kind: KindNormalization}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Op == ""
}

func connectivityError(err error) *Error {
	return &Error{
		Kind:    KindConnectivity,
		Message: "can't connect to API, check your internet connection",
		Err:     err,
	}
}

func normalizationErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNormalization, Message: fmt.Sprintf(format, args...)}
}

// withOp tags the first *Error in err's chain with op. Wrappers added by a
// foreign transport are dropped so every failure reads "op: message".
func withOp(err error, op string) error {
	var e *Error
	if errors.As(err, &e) && e.Op == "" {
		cp := *e
		cp.Op = op
		return &cp
	}
	return err
}
