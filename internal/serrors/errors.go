// Package serrors provides enhanced errors for the scheduler. Errors created
// with serrors can carry additional log context as key/value pairs and
// support wrapping via errors.Is/errors.As the same way the standard library
// does.
package serrors

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"
)

type ctxPair struct {
	Key   string
	Value interface{}
}

type errorInfo struct {
	ctx   []ctxPair
	cause error
}

func (e errorInfo) error() string {
	var buf bytes.Buffer
	if len(e.ctx) != 0 {
		buf.WriteString(" ")
		encodeContext(&buf, e.ctx)
	}
	if e.cause != nil {
		fmt.Fprintf(&buf, ": %s", e.cause)
	}
	return buf.String()
}

func (e errorInfo) marshalLogObject(enc zapcore.ObjectEncoder) error {
	if e.cause != nil {
		if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", e.cause.Error())
		}
	}
	for _, pair := range e.ctx {
		if err := encodeField(enc, pair); err != nil {
			return err
		}
	}
	return nil
}

func encodeField(enc zapcore.ObjectEncoder, pair ctxPair) error {
	enc.AddString(pair.Key, fmt.Sprint(pair.Value))
	return nil
}

func mkErrorInfo(cause error, errCtx ...interface{}) errorInfo {
	np := len(errCtx) / 2
	ctx := make([]ctxPair, np)
	for i := 0; i < np; i++ {
		ctx[i] = ctxPair{Key: fmt.Sprint(errCtx[2*i]), Value: errCtx[2*i+1]}
	}
	sort.Slice(ctx, func(a, b int) bool { return ctx[a].Key < ctx[b].Key })
	return errorInfo{cause: cause, ctx: ctx}
}

// basicError is an error that carries a message plus optional context and
// cause.
type basicError struct {
	errorInfo
	msg string
}

func (e *basicError) Error() string {
	var buf bytes.Buffer
	buf.WriteString(e.msg)
	buf.WriteString(e.errorInfo.error())
	return buf.String()
}

func (e *basicError) Unwrap() error {
	return e.cause
}

func (e *basicError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.msg)
	return e.errorInfo.marshalLogObject(enc)
}

// New creates a new error with the given message and context.
func New(msg string, errCtx ...interface{}) error {
	return &basicError{errorInfo: mkErrorInfo(nil, errCtx...), msg: msg}
}

// Wrap returns an error that associates msg with cause and the given
// context. The returned error unwraps to cause, so errors.Is(err, cause) is
// true.
func Wrap(msg string, cause error, errCtx ...interface{}) error {
	if cause == nil {
		return New(msg, errCtx...)
	}
	return &basicError{errorInfo: mkErrorInfo(cause, errCtx...), msg: msg}
}

// List is a slice of errors that itself satisfies error.
type List []error

func (e List) Error() string {
	s := make([]string, 0, len(e))
	for _, err := range e {
		s = append(s, err.Error())
	}
	return fmt.Sprintf("[ %s ]", strings.Join(s, "; "))
}

// ToError returns the list as an error, or nil if the list is empty.
func (e List) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func encodeContext(buf *bytes.Buffer, pairs []ctxPair) {
	buf.WriteString("{")
	for i, p := range pairs {
		fmt.Fprintf(buf, "%s=%v", p.Key, p.Value)
		if i != len(pairs)-1 {
			buf.WriteString("; ")
		}
	}
	buf.WriteString("}")
}
