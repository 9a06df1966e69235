package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEntry is a zapcore entry plus its structured fields.
type LogEntry struct {
	zapcore.Entry
	fields []zapcore.Field
}

type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

// Frames from runtime.Caller up to the user: caller, entry, emit, log*, the public method.
const callerDepth = 5

func (imp *impl) Name() string           { return imp.name }
func (imp *impl) SetLevel(level Level)   { imp.level.Set(level) }
func (imp *impl) GetLevel() Level        { return imp.level.Get() }
func (imp *impl) AddAppender(a Appender) { imp.appenders = append(imp.appenders, a) }

// Sublogger shares the parent's appenders but gets its own level, seeded from the parent.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, a := range imp.appenders {
		err = multierr.Append(err, a.Sync())
	}
	return err
}

func (imp *impl) enabled(ctx context.Context, level Level) bool {
	if GlobalLogLevel.Level() == zapcore.DebugLevel || level >= imp.level.Get() {
		return true
	}
	return level == DEBUG && IsDebugMode(ctx)
}

func (imp *impl) entry(level Level, msg string, fields []zapcore.Field) *LogEntry {
	now := time.Now()
	if imp.inUTC {
		now = now.UTC()
	}
	return &LogEntry{
		Entry: zapcore.Entry{
			Level:      level.AsZap(),
			Time:       now,
			LoggerName: imp.name,
			Message:    msg,
			Caller:     caller(),
		},
		fields: fields,
	}
}

func (imp *impl) emit(level Level, msg string, fields []zapcore.Field) {
	e := imp.entry(level, msg, fields)
	for _, a := range imp.appenders {
		if err := a.Write(e.Entry, e.fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

func (imp *impl) log(ctx context.Context, level Level, args []interface{}) {
	if imp.enabled(ctx, level) {
		imp.emit(level, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) logf(ctx context.Context, level Level, template string, args []interface{}) {
	if imp.enabled(ctx, level) {
		imp.emit(level, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) logw(ctx context.Context, level Level, msg string, kv []interface{}) {
	if imp.enabled(ctx, level) {
		imp.emit(level, msg, pairFields(kv))
	}
}

// pairFields turns alternating keys and values into zap fields. A trailing key without a value
// is kept with an error value.
func pairFields(kv []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if s, ok := kv[i].(fmt.Stringer); ok {
			key = s.String()
		}
		if i+1 < len(kv) {
			fields = append(fields, zap.Any(key, kv[i+1]))
		} else {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
		}
	}
	return fields
}

func (imp *impl) CDebug(ctx context.Context, args ...interface{}) { imp.log(ctx, DEBUG, args) }

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	imp.logf(ctx, DEBUG, template, args)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, kv ...interface{}) {
	imp.logw(ctx, DEBUG, msg, kv)
}

func (imp *impl) Debug(args ...interface{}) { imp.log(bg, DEBUG, args) }
func (imp *impl) Info(args ...interface{})  { imp.log(bg, INFO, args) }
func (imp *impl) Warn(args ...interface{})  { imp.log(bg, WARN, args) }
func (imp *impl) Error(args ...interface{}) { imp.log(bg, ERROR, args) }

func (imp *impl) Debugf(t string, args ...interface{}) { imp.logf(bg, DEBUG, t, args) }
func (imp *impl) Infof(t string, args ...interface{})  { imp.logf(bg, INFO, t, args) }
func (imp *impl) Warnf(t string, args ...interface{})  { imp.logf(bg, WARN, t, args) }
func (imp *impl) Errorf(t string, args ...interface{}) { imp.logf(bg, ERROR, t, args) }

func (imp *impl) Debugw(msg string, kv ...interface{}) { imp.logw(bg, DEBUG, msg, kv) }
func (imp *impl) Infow(msg string, kv ...interface{})  { imp.logw(bg, INFO, msg, kv) }
func (imp *impl) Warnw(msg string, kv ...interface{})  { imp.logw(bg, WARN, msg, kv) }
func (imp *impl) Errorw(msg string, kv ...interface{}) { imp.logw(bg, ERROR, msg, kv) }

var bg = context.Background()

func caller() zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(callerDepth)
	if !ok {
		return zapcore.EntryCaller{}
	}
	ec := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		ec.Function = fn.Name()
	}
	return ec
}
