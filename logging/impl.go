package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sink is shared by a logger and everything derived from it.
type sink struct {
	mu        sync.RWMutex
	appenders []Appender
}

func (s *sink) add(appender Appender) {
	s.mu.Lock()
	s.appenders = append(s.appenders, appender)
	s.mu.Unlock()
}

func (s *sink) write(entry zapcore.Entry, fields []zapcore.Field) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, appender := range s.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (s *sink) sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var err error
	for _, appender := range s.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

type impl struct {
	name   string
	level  AtomicLevel
	inUTC  bool
	sink   *sink
	fields []zapcore.Field
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{
		name:  name,
		level: NewAtomicLevelAt(level),
		inUTC: inUTC,
		sink:  &sink{appenders: append([]Appender{}, appenders...)},
	}
}

func (imp *impl) derive(name string, level AtomicLevel, fields []zapcore.Field) *impl {
	return &impl{name: name, level: level, inUTC: imp.inUTC, sink: imp.sink, fields: fields}
}

// AddAppender adds an output to this logger and every logger derived from it.
func (imp *impl) AddAppender(appender Appender) { imp.sink.add(appender) }

func (imp *impl) SetLevel(level Level) { imp.level.Set(level) }

func (imp *impl) GetLevel() Level { return imp.level.Get() }

func (imp *impl) Sync() error { return imp.sink.sync() }

// Sublogger levels are independent of the parent from the moment they are created.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return imp.derive(name, NewAtomicLevelAt(imp.level.Get()), imp.fields)
}

// WithFields loggers share their parent's level.
func (imp *impl) WithFields(keysAndValues ...interface{}) Logger {
	fields := append(append(make([]zapcore.Field, 0, len(imp.fields)+len(keysAndValues)/2), imp.fields...),
		toFields(keysAndValues)...)
	return imp.derive(imp.name, imp.level, fields)
}

// emit writes msg when level is enabled. The caller skip assumes emit is called directly from one
// of the exported level methods.
func (imp *impl) emit(level Level, msg func() string, fields []zapcore.Field) {
	if level < imp.level.Get() {
		return
	}
	entry := zapcore.Entry{
		LoggerName: imp.name,
		Level:      level.AsZap(),
		Time:       time.Now(),
		Caller:     caller(3),
		Message:    msg(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if len(imp.fields) > 0 {
		fields = append(append([]zapcore.Field{}, imp.fields...), fields...)
	}
	imp.sink.write(entry, fields)
}

func sprint(args []interface{}) func() string {
	return func() string { return fmt.Sprint(args...) }
}

func sprintf(template string, args []interface{}) func() string {
	return func() string { return fmt.Sprintf(template, args...) }
}

func literal(msg string) func() string {
	return func() string { return msg }
}

// toFields pairs up keysAndValues. A trailing key without a value is kept with an error value so
// the mistake shows up in the output.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// withRequest prepends the request id carried by ctx, if any.
func withRequest(ctx context.Context, keysAndValues []interface{}) []zapcore.Field {
	fields := toFields(keysAndValues)
	if id := RequestFrom(ctx); id != "" {
		fields = append([]zapcore.Field{zap.String(RequestField, id)}, fields...)
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) { imp.emit(DEBUG, sprint(args), nil) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.emit(DEBUG, sprintf(template, args), nil)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, literal(msg), toFields(keysAndValues))
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.emit(DEBUG, literal(msg), withRequest(ctx, keysAndValues))
}

func (imp *impl) Info(args ...interface{}) { imp.emit(INFO, sprint(args), nil) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.emit(INFO, sprintf(template, args), nil)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.emit(INFO, literal(msg), toFields(keysAndValues))
}

func (imp *impl) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.emit(INFO, literal(msg), withRequest(ctx, keysAndValues))
}

func (imp *impl) Warn(args ...interface{}) { imp.emit(WARN, sprint(args), nil) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.emit(WARN, sprintf(template, args), nil)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.emit(WARN, literal(msg), toFields(keysAndValues))
}

func (imp *impl) Error(args ...interface{}) { imp.emit(ERROR, sprint(args), nil) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.emit(ERROR, sprintf(template, args), nil)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.emit(ERROR, literal(msg), toFields(keysAndValues))
}

func caller(skip int) zapcore.EntryCaller {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	ec := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		ec.Function = fn.Name()
	}
	return ec
}
