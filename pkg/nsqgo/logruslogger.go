package nsqgo

import "github.com/sirupsen/logrus"

// logrusLogger adapts *logrus.Logger to the Logger interface, the
// structured-logging idiom the corpus (moby/moby) uses throughout its
// broker- and connection-lifecycle code paths.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l (or a fresh logrus.Logger if l is nil) as the
// client's default Logger implementation.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.New()
	}
	return &logrusLogger{entry: logrus.NewEntry(l).WithField("component", "nsqgo")}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
