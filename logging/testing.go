package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender routes log lines to tb.Log so they are grouped with the test that wrote them.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes to tb.
func NewTestAppender(tb testing.TB) Appender {
	return testAppender{tb}
}

func (app testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	app.tb.Helper()
	line, err := formatLine(entry, fields)
	app.tb.Log(line)
	return err
}

func (app testAppender) Sync() error {
	return nil
}
