package config

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.viam.com/camcal/logging"
)

var globalLogger struct {
	// Set once at startup.
	logger           logging.Logger
	cmdLineDebugFlag bool

	// Changes whenever a config file is (re)loaded.
	mu                  sync.Mutex
	fileConfigDebugFlag bool
}

// InitLoggingSettings initializes the global logging settings.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	if cmdLineDebugFlag {
		logging.GlobalLogLevel.SetLevel(zapcore.DebugLevel)
	} else {
		logging.GlobalLogLevel.SetLevel(zapcore.InfoLevel)
	}
	logger.Debugw("log level initialized", "level", logging.GlobalLogLevel.Level())
}

// UpdateFileConfigDebug is used to update the debug flag whenever a config file is read.
func UpdateFileConfigDebug(fileDebug bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.fileConfigDebugFlag = fileDebug
	refreshLogLevelInLock()
}

func refreshLogLevelInLock() {
	newLevel := zap.InfoLevel
	if globalLogger.cmdLineDebugFlag || globalLogger.fileConfigDebugFlag {
		newLevel = zap.DebugLevel
	}
	if logging.GlobalLogLevel.Level() == newLevel {
		return
	}
	if globalLogger.logger != nil {
		globalLogger.logger.Infow("new log level", "level", newLevel)
	}
	logging.GlobalLogLevel.SetLevel(newLevel)
}

// NewLogger builds the root logger described by the log config. The returned closer releases the
// log file, if one is configured, and is never nil.
func (lc *LogConfig) NewLogger(name string) (logging.Logger, io.Closer, error) {
	logger := logging.NewLogger(name)
	if lc.Level != "" {
		level, err := logging.LevelFromString(lc.Level)
		if err != nil {
			return nil, nil, err
		}
		logger.SetLevel(level)
	}
	if lc.File == nil {
		return logger, io.NopCloser(nil), nil
	}
	appender, closer := logging.NewFileAppender(*lc.File)
	logger.AddAppender(appender)
	return logger, closer, nil
}

// Sublogger returns a named child of parent with the configured pattern levels applied.
func (lc *LogConfig) Sublogger(parent logging.Logger, name string) logging.Logger {
	return logging.NamedSublogger(parent, name, lc.Patterns)
}
