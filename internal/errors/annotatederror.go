package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// AnnotatedError includes more context than a plain error that is useful for troubleshooting.
type AnnotatedError struct {
	// msg is the error message.
	msg string
	// pc is the program counter for the location of the error provided by runtime.Callers.
	pc uintptr
	// attrs are slog attributes that are added to the log event to provide more context for the error.
	attrs []slog.Attr
	// wrapped is the cause of this error, nil for errors created with New.
	wrapped error
}

func callerPC() uintptr {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerPC, and the exported constructor.
	runtime.Callers(3, pcs[:]) //nolint:mnd // see above
	return pcs[0]
}

// New creates a new AnnotatedError with the given message and attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &AnnotatedError{
		msg:     msg,
		pc:      callerPC(),
		attrs:   attrs,
		wrapped: nil,
	}
}

// Wrap annotates err with msg, the caller's source location and attrs.
//
// Returns nil if err is nil so that it can be used in return statements directly.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &AnnotatedError{
		msg:     msg,
		pc:      callerPC(),
		attrs:   attrs,
		wrapped: err,
	}
}

// NewSentinel creates a plain error without other context that can be used as sentinel error that can be
// detected with errors.Is.
func NewSentinel(msg string) error {
	return errors.New(msg)
}

// Error implements error interface.
func (err *AnnotatedError) Error() string {
	if err.wrapped == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %s", err.msg, err.wrapped.Error())
}

// Unwrap makes the wrapped cause visible to errors.Is and errors.As.
func (err *AnnotatedError) Unwrap() error {
	return err.wrapped
}

func (err *AnnotatedError) source() string {
	frames := runtime.CallersFrames([]uintptr{err.pc})
	frame, _ := frames.Next()
	return fmt.Sprintf("%s:%d", frame.File, frame.Line)
}

// LogValue formats the error for useful logging.
func (err *AnnotatedError) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(err.attrs)+2) //nolint:mnd // msg and source
	attrs = append(attrs, slog.String("msg", err.msg), slog.String("source", err.source()))
	attrs = append(attrs, err.attrs...)
	return slog.GroupValue(attrs...)
}

// SlogError renders the whole error chain as a slog attribute.
//
// Every AnnotatedError in the chain contributes its message, source location and attributes so that the log
// event points straight to where things went wrong.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var (
		chain []any
		depth int
	)
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		var annotated *AnnotatedError
		if ae, ok := cur.(*AnnotatedError); ok { //nolint:errorlint // we walk the chain manually
			annotated = ae
		}
		key := fmt.Sprintf("%d", depth)
		if annotated != nil {
			chain = append(chain, slog.Any(key, annotated.LogValue()))
		} else {
			chain = append(chain, slog.String(key, cur.Error()))
		}
		depth++
	}
	return slog.Group("error", append([]any{slog.String("msg", err.Error())}, slog.Group("chain", chain...))...)
}

// As exposes stdlib errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is exposes stdlib errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap exposes stdlib errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join exposes stdlib errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
