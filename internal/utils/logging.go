// Copyright (c) 2025 @AmarnathCJD

package utils

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	TraceLevel LogLevel = iota + 1
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	NoLevel
)

func (l LogLevel) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case NoLevel:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps the config strings (trace, debug, info, warn, error, disable)
// onto a level. Unknown strings fall back to InfoLevel.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "disable", "none", "off":
		return NoLevel
	default:
		return InfoLevel
	}
}

var levelColors = map[LogLevel]string{
	TraceLevel: "\033[2m",
	DebugLevel: "\033[36m",
	InfoLevel:  "\033[32m",
	WarnLevel:  "\033[33m",
	ErrorLevel: "\033[31m",
}

const colorReset = "\033[0m"

// shared between a logger and every clone derived from it
type logSink struct {
	mu  sync.Mutex
	out io.Writer
}

type Logger struct {
	mu         sync.RWMutex
	level      LogLevel
	prefix     string
	fields     map[string]any
	color      bool
	showCaller bool
	timeFormat string
	sink       *logSink
}

func NewLogger(prefix string) *Logger {
	return &Logger{
		level:      InfoLevel,
		prefix:     prefix,
		fields:     make(map[string]any),
		color:      true,
		timeFormat: "2006-01-02 15:04:05.000",
		sink:       &logSink{out: os.Stdout},
	}
}

func (l *Logger) clone() *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := &Logger{
		level:      l.level,
		prefix:     l.prefix,
		fields:     make(map[string]any, len(l.fields)),
		color:      l.color,
		showCaller: l.showCaller,
		timeFormat: l.timeFormat,
		sink:       l.sink,
	}
	maps.Copy(c.fields, l.fields)
	return c
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	c := l.clone()
	c.prefix = prefix
	return c
}

func (l *Logger) WithField(key string, value any) *Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	c := l.clone()
	maps.Copy(c.fields, fields)
	return c
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err)
}

func (l *Logger) SetLevel(level LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level == 0 {
		level = InfoLevel
	}
	l.level = level
	return l
}

func (l *Logger) Lev() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) GetPrefix() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prefix
}

// SetOutput swaps the writer for this logger and every logger cloned from it.
// Color is turned off for writers that are not a terminal.
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.sink.mu.Lock()
	l.sink.out = w
	l.sink.mu.Unlock()
	if !isTerminal(w) {
		l.SetColor(false)
	}
	return l
}

func (l *Logger) SetColor(enabled bool) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = enabled
	return l
}

func (l *Logger) ShowCaller(enabled bool) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showCaller = enabled
	return l
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.RLock()
	if level < l.level {
		l.mu.RUnlock()
		return
	}
	prefix, color, showCaller, tf := l.prefix, l.color, l.showCaller, l.timeFormat
	fields := make(map[string]any, len(l.fields))
	maps.Copy(fields, l.fields)
	l.mu.RUnlock()

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	b.WriteString(time.Now().Format(tf))
	b.WriteByte(' ')
	if color {
		b.WriteString(levelColors[level])
	}
	fmt.Fprintf(&b, "[%-5s]", level)
	if color {
		b.WriteString(colorReset)
	}
	if prefix != "" {
		fmt.Fprintf(&b, " %s", prefix)
	}
	if showCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(file), line)
		}
	}
	b.WriteString(" - ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	b.WriteByte('\n')

	l.sink.mu.Lock()
	io.WriteString(l.sink.out, b.String())
	l.sink.mu.Unlock()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (f == os.Stdout || f == os.Stderr)
}

func (l *Logger) Trace(msg string, args ...any) { l.log(TraceLevel, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(DebugLevel, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(InfoLevel, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(WarnLevel, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(ErrorLevel, msg, args...) }

func (l *Logger) WarnErr(err error)  { l.WithError(err).Warn(err.Error()) }
func (l *Logger) ErrorErr(err error) { l.WithError(err).Error(err.Error()) }
