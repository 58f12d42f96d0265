package log

import (
	"fmt"

	"github.com/go-logr/logr"
)

// NewLogr returns a logr.Logger writing to l. Verbosity 0 maps to Info,
// anything above it to Debug. Used to route klog output from client-go.
func NewLogr(l Logger) logr.Logger {
	return logr.New(&logrSink{logger: OrNoop(l)})
}

type logrSink struct {
	logger Logger
	name   string
}

func (s *logrSink) Init(logr.RuntimeInfo) {}

// Enabled always reports true; level filtering happens in the Logger.
func (s *logrSink) Enabled(int) bool { return true }

func (s *logrSink) Info(level int, msg string, keysAndValues ...interface{}) {
	fields := s.fields(keysAndValues)
	if level > 0 {
		s.logger.Debug(msg, fields...)
		return
	}
	s.logger.Info(msg, fields...)
}

func (s *logrSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.logger.Error(msg, append(s.fields(keysAndValues), Err(err))...)
}

func (s *logrSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &logrSink{logger: s.logger.With(toFields(keysAndValues)...), name: s.name}
}

func (s *logrSink) WithName(name string) logr.LogSink {
	if s.name != "" {
		name = s.name + "." + name
	}
	return &logrSink{logger: s.logger, name: name}
}

func (s *logrSink) fields(keysAndValues []interface{}) []Field {
	fields := toFields(keysAndValues)
	if s.name != "" {
		fields = append(fields, String("logger", s.name))
	}
	return fields
}

func toFields(keysAndValues []interface{}) []Field {
	fields := make([]Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, Any(key, "<missing>"))
			break
		}
		fields = append(fields, Any(key, keysAndValues[i+1]))
	}
	return fields
}
