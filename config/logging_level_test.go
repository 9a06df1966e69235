package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/camcal/logging"
)

func TestLogLevelFlags(t *testing.T) {
	defer logging.GlobalLogLevel.SetLevel(zapcore.InfoLevel)

	InitLoggingSettings(logging.NewTestLogger(t), false)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zapcore.InfoLevel)

	UpdateFileConfigDebug(true)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zapcore.DebugLevel)
	UpdateFileConfigDebug(false)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zapcore.InfoLevel)

	// the command line flag wins over the file
	InitLoggingSettings(logging.NewTestLogger(t), true)
	UpdateFileConfigDebug(false)
	test.That(t, logging.GlobalLogLevel.Level(), test.ShouldEqual, zapcore.DebugLevel)
	InitLoggingSettings(logging.NewTestLogger(t), false)
}

func TestNewLogger(t *testing.T) {
	lc := LogConfig{
		Level:    "warn",
		Patterns: []logging.LoggerPatternConfig{{Pattern: "camcal.*", Level: "debug"}},
	}
	logger, closer, err := lc.NewLogger("camcal")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)

	sub := lc.Sublogger(logger, "calibration")
	test.That(t, sub.Name(), test.ShouldEqual, "camcal.calibration")
	test.That(t, sub.GetLevel(), test.ShouldEqual, logging.DEBUG)

	lc.Level = "loud"
	_, _, err = lc.NewLogger("camcal")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camcal.log")
	lc := LogConfig{Level: "info", File: &logging.FileAppenderConfig{Path: path, MaxSizeMB: 1}}
	logger, closer, err := lc.NewLogger("camcal")
	test.That(t, err, test.ShouldBeNil)
	logger.Infow("added sample", "count", 1)
	test.That(t, closer.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "added sample")
	test.That(t, string(data), test.ShouldContainSubstring, `"count":1`)
}
