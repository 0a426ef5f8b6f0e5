// Package log wraps zap the way the router's logging glue does: a Logger
// interface that can be carried on a context.Context, with labels attached
// per worker (node id, scheduler type, egress port, ...).
package log

import (
	"context"
	"os"
	"sync"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface every worker in this module logs through.
type Logger interface {
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	// New returns a derived logger with the given labels attached to every
	// subsequent entry.
	New(labels ...interface{}) Logger
}

type logger struct {
	z *zap.SugaredLogger
}

func (l *logger) Debug(msg string, ctx ...interface{}) { l.z.Debugw(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.z.Infow(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.z.Warnw(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.z.Errorw(msg, ctx...) }

func (l *logger) New(labels ...interface{}) Logger {
	return &logger{z: l.z.With(labels...)}
}

var (
	rootMu sync.Mutex
	root   Logger
)

func init() {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), zap.DebugLevel)
	root = &logger{z: zap.New(core).Sugar()}
}

// SetLevel sets the minimum level of the root logger. Intended for the debug
// flag read at startup.
func SetLevel(debug bool) {
	rootMu.Lock()
	defer rootMu.Unlock()
	lvl := zap.InfoLevel
	if debug {
		lvl = zap.DebugLevel
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), lvl)
	root = &logger{z: zap.New(core).Sugar()}
}

// Root returns the root logger. It is never nil.
func Root() Logger {
	rootMu.Lock()
	defer rootMu.Unlock()
	return root
}

type loggerContextKey string

const loggerKey loggerContextKey = "logger"

// CtxWith returns a new context, based on ctx, that embeds logger. The
// logger can be recovered using FromCtx.
func CtxWith(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		panic("nil context")
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromCtx returns the logger embedded in ctx if one exists, or the root
// logger otherwise. FromCtx never returns nil. If ctx carries an active
// opentracing span, the returned logger mirrors every entry onto it.
func FromCtx(ctx context.Context) Logger {
	if ctx == nil {
		return Root()
	}
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return attachSpan(ctx, l)
	}
	return attachSpan(ctx, Root())
}

// WithLabels returns a context with additional labels added to its logger,
// plus the derived logger itself for convenience.
func WithLabels(ctx context.Context, labels ...interface{}) (context.Context, Logger) {
	l := FromCtx(ctx).New(labels...)
	return CtxWith(ctx, l), l
}

// Span is a Logger that mirrors every entry onto an active opentracing span,
// the way the router's logging glue ties log lines to the span covering the
// request or attempt they belong to.
type Span struct {
	Logger
	Span opentracing.Span
}

func (s Span) Debug(msg string, ctx ...interface{}) {
	s.Logger.Debug(msg, ctx...)
	s.Span.LogKV(append([]interface{}{"event", msg}, ctx...)...)
}

func (s Span) Info(msg string, ctx ...interface{}) {
	s.Logger.Info(msg, ctx...)
	s.Span.LogKV(append([]interface{}{"event", msg}, ctx...)...)
}

func (s Span) Warn(msg string, ctx ...interface{}) {
	s.Logger.Warn(msg, ctx...)
	s.Span.LogKV(append([]interface{}{"event", msg}, ctx...)...)
}

func (s Span) Error(msg string, ctx ...interface{}) {
	s.Logger.Error(msg, ctx...)
	s.Span.SetTag("error", true)
	s.Span.LogKV(append([]interface{}{"event", msg}, ctx...)...)
}

// New implements Logger: the derived logger keeps mirroring onto the same
// span.
func (s Span) New(labels ...interface{}) Logger {
	return Span{Logger: s.Logger.New(labels...), Span: s.Span}
}

// attachSpan wraps l in a Span if ctx carries an active opentracing span not
// already attached to l.
func attachSpan(ctx context.Context, l Logger) Logger {
	if _, ok := l.(Span); ok {
		return l
	}
	if span := opentracing.SpanFromContext(ctx); span != nil {
		return Span{Logger: l, Span: span}
	}
	return l
}

// AttachSpan wraps l so it mirrors onto whatever opentracing span ctx
// carries, preserving l's own labels. Used by long-lived workers that
// already hold a labeled logger from before the span started.
func AttachSpan(ctx context.Context, l Logger) Logger {
	return attachSpan(ctx, l)
}

// StartSpan starts an opentracing span named op as a child of whatever span
// ctx already carries (if any) and returns a context carrying it. A logger
// later obtained from that context via FromCtx mirrors its entries onto the
// span. Callers must call span.Finish() when the operation completes.
func StartSpan(ctx context.Context, op string) (context.Context, opentracing.Span) {
	span, ctx := opentracing.StartSpanFromContext(ctx, op)
	return ctx, span
}
