// Package report is the non-fatal, leveled error reporting channel used by
// list views and the notebook launcher. Reported errors never propagate to
// the caller that produced them.
package report

import (
	"context"
	"log/slog"
	"strconv"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
}

// SlogLevel maps l to a log/slog level. Fatal is logged above Error; it
// does not terminate the process.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

// Type classifies where an error originated.
type Type string

const (
	TypeServer  Type = "server"
	TypeAPI     Type = "api"
	TypeInput   Type = "input"
	TypeUI      Type = "ui"
	TypeUnknown Type = "unknown"
)

type Options struct {
	Level Level
	Type  Type

	// Silent errors are recorded but not surfaced to the user.
	Silent bool

	// PublicMessage is a user-facing summary; the raw error is kept for logs.
	PublicMessage string

	Attrs []slog.Attr
}

type Reporter interface {
	Report(ctx context.Context, err error, opt Options)
}

type ReporterFunc func(ctx context.Context, err error, opt Options)

func (f ReporterFunc) Report(ctx context.Context, err error, opt Options) {
	f(ctx, err, opt)
}

// Discard drops every report.
var Discard Reporter = ReporterFunc(func(ctx context.Context, err error, opt Options) {})

// SlogReporter logs reports to a slog.Logger (slog.Default() if nil).
type SlogReporter struct {
	Logger *slog.Logger
}

func (r SlogReporter) Report(ctx context.Context, err error, opt Options) {
	if err == nil {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opt.Type == "" {
		opt.Type = TypeUnknown
	}
	msg := opt.PublicMessage
	if msg == "" {
		msg = "error"
	}
	attrs := make([]slog.Attr, 0, len(opt.Attrs)+3)
	attrs = append(attrs,
		slog.String("type", string(opt.Type)),
		slog.Bool("silent", opt.Silent),
		slog.Any("err", err),
	)
	attrs = append(attrs, opt.Attrs...)
	logger.LogAttrs(ctx, opt.Level.SlogLevel(), msg, attrs...)
}

// Or returns r, or Discard if r is nil.
func Or(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}
