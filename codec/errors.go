package codec

import "errors"

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("codec: malformed input")

// ErrUnsupported is wrapped when a value cannot be represented.
var ErrUnsupported = errors.New("codec: unsupported value")

// Error records which stage failed and the underlying cause.
type Error struct {
	Op    string
	Cause error
	kind  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return "codec: " + e.Op + ": " + e.kind.Error()
	}
	return "codec: " + e.Op + ": " + e.Cause.Error()
}

// Unwrap exposes both the sentinel kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.Cause}
}

func malformed(op string, cause error) error {
	return &Error{Op: op, Cause: cause, kind: ErrMalformed}
}

func unsupported(op string, cause error) error {
	return &Error{Op: op, Cause: cause, kind: ErrUnsupported}
}
