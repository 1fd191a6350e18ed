package testutil

import (
	"fmt"
	"testing"

	"github.com/trezcool/elimu/core"
)

type testLogger struct {
	t *testing.T
}

var _ core.Logger = (*testLogger)(nil)

// NewLogger returns a core.Logger writing to the test log.
func NewLogger(t *testing.T) core.Logger {
	return &testLogger{t: t}
}

func (l testLogger) log(level, msg string, args []interface{}) {
	l.t.Helper()
	if len(args) > 0 {
		msg += " " + fmt.Sprint(args...)
	}
	l.t.Logf("%s: %s", level, msg)
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.t.Helper()
	l.t.Fatalf("FATAL: %s %v", msg, args)
}
