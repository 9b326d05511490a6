package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevel_SlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, LevelDebug.SlogLevel())
	require.Equal(t, slog.LevelInfo, LevelInfo.SlogLevel())
	require.Equal(t, slog.LevelWarn, LevelWarn.SlogLevel())
	require.Equal(t, slog.LevelError, LevelError.SlogLevel())
	require.Greater(t, LevelFatal.SlogLevel(), slog.LevelError)

	require.Equal(t, "error", LevelError.String())
	require.Equal(t, "Level(42)", Level(42).String())
}

func TestSlogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := SlogReporter{Logger: logger}

	r.Report(context.Background(), errors.New("boom"), Options{
		Level:         LevelError,
		Type:          TypeServer,
		PublicMessage: "Unable to save settings.",
		Attrs:         []slog.Attr{slog.String("key", "flatRunsForProject1")},
	})

	out := buf.String()
	require.Contains(t, out, "level=ERROR")
	require.Contains(t, out, `msg="Unable to save settings."`)
	require.Contains(t, out, "type=server")
	require.Contains(t, out, "err=boom")
	require.Contains(t, out, "key=flatRunsForProject1")
}

func TestSlogReporter_DefaultsAndNil(t *testing.T) {
	var buf bytes.Buffer
	r := SlogReporter{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	r.Report(context.Background(), nil, Options{Level: LevelError})
	require.Empty(t, buf.String())

	r.Report(context.Background(), errors.New("x"), Options{Level: LevelWarn})
	require.Contains(t, buf.String(), "type=unknown")
	require.Contains(t, buf.String(), "msg=error")
}

func TestReporterFuncAndOr(t *testing.T) {
	var got []Options
	r := ReporterFunc(func(ctx context.Context, err error, opt Options) {
		got = append(got, opt)
	})
	Or(r).Report(context.Background(), errors.New("x"), Options{Level: LevelInfo})
	require.Len(t, got, 1)
	require.Equal(t, LevelInfo, got[0].Level)

	require.NotNil(t, Or(nil))
	Or(nil).Report(context.Background(), errors.New("x"), Options{})
}
