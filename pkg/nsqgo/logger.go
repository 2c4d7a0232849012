package nsqgo

// Logger is the optional sink a Client logs through (spec section 6). All
// three methods take a printf-style format, mirroring the teacher's
// cfg.logger.Log(level, msg, keyvals...) lifecycle logging.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
