package dvid

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
)

// LogConfig is the [logging] section of a TOML configuration.
type LogConfig struct {
	Logfile string
	Level   string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

// NewLogger creates a logger that saves to a rotating log file, or writes to
// stdout if no log file was specified.  The result honors the configured Level.
func (c *LogConfig) NewLogger() Logger {
	var l Logger
	if c == nil || c.Logfile == "" {
		l = NewStdLogger(os.Stdout)
		l.Infof("Sending log messages to stdout since no log file specified.\n")
	} else {
		fmt.Printf("Sending log messages to: %s\n", c.Logfile)
		lj := &lumberjack.Logger{
			Filename: c.Logfile,
			MaxSize:  c.MaxSize, // megabytes
			MaxAge:   c.MaxAge,  // days
		}
		l = StdLogger{log.New(lj, "", log.LstdFlags), lj}
	}
	if c == nil || c.Level == "" {
		return l
	}
	mode, ok := ParseModeFlag(c.Level)
	if !ok {
		l.Warningf("Unknown log level %q, using %s\n", c.Level, mode)
	}
	return NewLeveledLogger(l, mode)
}

// StdLogger sends messages via a standard library logger.  If the destination is
// closeable, e.g., a rotating log file, Shutdown closes it.
type StdLogger struct {
	*log.Logger
	out io.Closer
}

// NewStdLogger returns a StdLogger writing to w with date and time prefixes.
func NewStdLogger(w io.Writer) StdLogger {
	return StdLogger{Logger: log.New(w, "", log.LstdFlags)}
}

// --- Logger implementation ----

// Debugf formats its arguments analogous to fmt.Printf and records the text as a log
// message at Debug level.
func (slog StdLogger) Debugf(format string, args ...interface{}) {
	slog.Printf("   DEBUG "+format, args...)
}

// Infof is like Debugf, but at Info level.
func (slog StdLogger) Infof(format string, args ...interface{}) {
	slog.Printf("    INFO "+format, args...)
}

// Warningf is like Debugf, but at Warning level.
func (slog StdLogger) Warningf(format string, args ...interface{}) {
	slog.Printf(" WARNING "+format, args...)
}

// Errorf is like Debugf, but at Error level.
func (slog StdLogger) Errorf(format string, args ...interface{}) {
	slog.Printf("   ERROR "+format, args...)
}

// Criticalf is like Debugf, but at Critical level.
func (slog StdLogger) Criticalf(format string, args ...interface{}) {
	slog.Printf("CRITICAL "+format, args...)
}

func (slog StdLogger) Shutdown() {
	if slog.out != nil {
		slog.Printf("Closing log file...\n")
		slog.out.Close()
	}
}
