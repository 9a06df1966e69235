package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// tbAppender routes entries through tb.Log so each line is attributed to the test that wrote it.
type tbAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes tab separated lines in local time to tb.
func NewTestAppender(tb testing.TB) Appender {
	return &tbAppender{tb}
}

func (a *tbAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	a.tb.Helper()
	parts := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		parts = append(parts, callerToString(&entry.Caller))
	}
	parts = append(parts, entry.Message)

	var err error
	if len(fields) > 0 {
		var encoded string
		if encoded, err = ZapcoreFieldsToJSON(fields); err == nil {
			parts = append(parts, encoded)
		}
	}
	a.tb.Log(strings.Join(parts, "\t"))
	return err
}

func (a *tbAppender) Sync() error {
	return nil
}
