package bridge

import (
	"errors"

	"fam.dev/fam/host"
)

// Kind is the pipeline stage a Failure happened in.
type Kind string

const (
	EncodeFailure     Kind = "EncodeFailure"
	InvocationFailure Kind = "InvocationFailure"
	DecodeFailure     Kind = "DecodeFailure"
)

// Messages carried by failures. Match on Kind, not on these.
const (
	msgInvoke         = "failed to invoke API"
	msgParse          = "failed to parse API response"
	msgStringify      = "failed to stringify API parameters"
	msgArchive        = "failed to archive delegation"
	msgExtract        = "failed to extract delegation"
	msgPrivateKey     = "failed to decode private key"
	msgBucketDID      = "failed to decode bucket DID"
	msgRootCID        = "failed to decode bucket root CID"
	msgDuplicateEntry = "duplicate key in API response"
	msgInvalidOption  = "invalid entries option"
)

// Failure is the error returned by every Client operation.
type Failure struct {
	Kind Kind
	// Op is the host call the failure belongs to.
	Op      host.Call
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	msg := string(f.Kind) + ": " + string(f.Op) + ": " + f.Message
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Cause
}

// IsKind reports whether err is (or wraps) a *Failure with the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of err, or "" if err is not a *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if !errors.As(err, &f) {
		return ""
	}
	return f.Kind
}

// Retryable reports whether err is an InvocationFailure of an idempotent
// call, the only case where repeating the call blindly is safe.
func Retryable(err error) bool {
	var f *Failure
	if !errors.As(err, &f) {
		return false
	}
	return f.Kind == InvocationFailure && host.Idempotent(f.Op)
}

func encodeFailure(op host.Call, msg string, cause error) error {
	return &Failure{Kind: EncodeFailure, Op: op, Message: msg, Cause: cause}
}

func invocationFailure(op host.Call, cause error) error {
	return &Failure{Kind: InvocationFailure, Op: op, Message: msgInvoke, Cause: cause}
}

func decodeFailure(op host.Call, msg string, cause error) error {
	return &Failure{Kind: DecodeFailure, Op: op, Message: msg, Cause: cause}
}
