package dvid

import "time"

type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

func (m ModeFlag) String() string {
	switch m {
	case DebugMode:
		return "debug"
	case InfoMode:
		return "info"
	case WarningMode:
		return "warning"
	case ErrorMode:
		return "error"
	case CriticalMode:
		return "critical"
	case SilentMode:
		return "silent"
	default:
		return "unknown"
	}
}

// ParseModeFlag converts a configuration string like "warning" into a ModeFlag.
// Unrecognized strings return InfoMode and false.
func ParseModeFlag(s string) (ModeFlag, bool) {
	for m := DebugMode; m <= SilentMode; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return InfoMode, false
}

// Logger provides a way for the application to log messages at different severities.
// Loggers are handed to each component that needs one rather than consulted through
// package state, so tests and embedding applications can route or silence output.
type Logger interface {
	// Debugf formats its arguments analogous to fmt.Printf and records the text as a log
	// message at Debug level.
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but at Info level.
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but at Warning level.
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but at Error level.
	Errorf(format string, args ...interface{})

	// Criticalf is like Debugf, but at Critical level.
	Criticalf(format string, args ...interface{})

	// Shutdown makes sure logs are closed.
	Shutdown()
}

// LeveledLogger drops messages below the severity given by Mode.
// For example, a LeveledLogger with WarningMode will log any calls using
// Warningf, Errorf, or Criticalf.  To turn off all logging, use SilentMode.
type LeveledLogger struct {
	Logger
	Mode ModeFlag
}

// NewLeveledLogger wraps l so that only messages at or above mode are written.
func NewLeveledLogger(l Logger, mode ModeFlag) LeveledLogger {
	if l == nil {
		l = NopLogger{}
	}
	return LeveledLogger{Logger: l, Mode: mode}
}

func (l LeveledLogger) Debugf(format string, args ...interface{}) {
	if l.Mode <= DebugMode {
		l.Logger.Debugf(format, args...)
	}
}

func (l LeveledLogger) Infof(format string, args ...interface{}) {
	if l.Mode <= InfoMode {
		l.Logger.Infof(format, args...)
	}
}

func (l LeveledLogger) Warningf(format string, args ...interface{}) {
	if l.Mode <= WarningMode {
		l.Logger.Warningf(format, args...)
	}
}

func (l LeveledLogger) Errorf(format string, args ...interface{}) {
	if l.Mode <= ErrorMode {
		l.Logger.Errorf(format, args...)
	}
}

func (l LeveledLogger) Criticalf(format string, args ...interface{}) {
	if l.Mode <= CriticalMode {
		l.Logger.Criticalf(format, args...)
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(format string, args ...interface{})    {}
func (NopLogger) Infof(format string, args ...interface{})     {}
func (NopLogger) Warningf(format string, args ...interface{})  {}
func (NopLogger) Errorf(format string, args ...interface{})    {}
func (NopLogger) Criticalf(format string, args ...interface{}) {}
func (NopLogger) Shutdown()                                    {}

// TimeLog adds elapsed time to logging.
// Example:
//
//	mylog := NewTimeLog(logger)
//	...
//	mylog.Debugf("stuff happened")  // Appends elapsed time from NewTimeLog() to message.
type TimeLog struct {
	logger Logger
	start  time.Time
}

func NewTimeLog(l Logger) TimeLog {
	if l == nil {
		l = NopLogger{}
	}
	return TimeLog{l, time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	t.logger.Debugf(format+": %s\n", append(args, time.Since(t.start))...)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	t.logger.Infof(format+": %s\n", append(args, time.Since(t.start))...)
}

func (t TimeLog) Warningf(format string, args ...interface{}) {
	t.logger.Warningf(format+": %s\n", append(args, time.Since(t.start))...)
}

func (t TimeLog) Errorf(format string, args ...interface{}) {
	t.logger.Errorf(format+": %s\n", append(args, time.Since(t.start))...)
}

func (t TimeLog) Criticalf(format string, args ...interface{}) {
	t.logger.Criticalf(format+": %s\n", append(args, time.Since(t.start))...)
}

func (t TimeLog) Shutdown() {
	t.logger.Shutdown()
}
