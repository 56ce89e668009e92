// Package logx provides leveled, component-scoped logging for the bundler CLI.
package logx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes log lines tagged with the component that produced them.
type Logger struct {
	component string
}

// Level is the severity of a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

type contextKey string

// ComponentKey is the context key under which the active component name is stored.
const ComponentKey contextKey = "component"

// sink is the process-wide output and debug filter shared by every Logger.
type sink struct {
	mu      sync.RWMutex
	out     io.Writer       // nil means stderr
	debug   bool            // DEBUG=1
	domains map[string]bool // DEBUG_DOMAINS; nil enables every domain
}

//nolint:gochecknoglobals // Process-wide logging state.
var global = newSinkFromEnv(os.Getenv)

func newSinkFromEnv(getenv func(string) string) *sink {
	s := &sink{}
	if v := getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		s.debug = true
	}
	// DEBUG_DOMAINS=resolver,build
	if v := getenv("DEBUG_DOMAINS"); v != "" {
		s.domains = parseDomains(strings.Split(v, ","))
	}
	return s
}

func parseDomains(list []string) map[string]bool {
	if len(list) == 0 {
		return nil
	}
	domains := make(map[string]bool, len(list))
	for _, d := range list {
		if d = strings.TrimSpace(d); d != "" {
			domains[d] = true
		}
	}
	return domains
}

// NewLogger creates a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetOutput redirects every logger to w. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.out = w
}

// SetDebug turns debug output on or off for the whole process.
func SetDebug(enabled bool) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.debug = enabled
}

// SetDebugDomains limits debug output to domains. An empty list enables all.
func SetDebugDomains(domains []string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.domains = parseDomains(domains)
}

// IsDebugEnabled reports whether debug output is on at all.
func IsDebugEnabled() bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.debug
}

// IsDebugEnabledForDomain reports whether debug lines for domain are written.
func IsDebugEnabledForDomain(domain string) bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.debug && (global.domains == nil || global.domains[domain])
}

func writeLine(line string) {
	global.mu.Lock()
	defer global.mu.Unlock()

	w := global.out
	if w == nil {
		w = os.Stderr
	}
	_, _ = io.WriteString(w, line+"\n")
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format(timestampFormat)
	message := fmt.Sprintf(format, args...)
	writeLine(fmt.Sprintf("[%s] [%s] %s: %s", timestamp, l.component, level, message))
}

// Debug logs only when debug output is enabled for this component.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledForDomain(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Component returns the component name the logger was created with.
func (l *Logger) Component() string {
	return l.component
}

// Debug logs a debug message for a domain, tagging it with the component
// stored in ctx under ComponentKey.
//
//	DEBUG=1                           # all domains
//	DEBUG=1 DEBUG_DOMAINS=resolver    # only the resolver
func Debug(ctx context.Context, domain, format string, args ...any) {
	if !IsDebugEnabledForDomain(domain) {
		return
	}

	component := "unknown"
	if ctx != nil {
		if id, ok := ctx.Value(ComponentKey).(string); ok && id != "" {
			component = id
		}
	}

	timestamp := time.Now().UTC().Format(timestampFormat)
	message := fmt.Sprintf("[%s] %s", domain, fmt.Sprintf(format, args...))
	writeLine(fmt.Sprintf("[%s] [%s] %s: %s", timestamp, component, LevelDebug, message))
}

// DebugState logs a state transition with context and domain.
func DebugState(ctx context.Context, domain, action, state string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = fmt.Sprintf(" - %s", extra[0])
	}
	Debug(ctx, domain, "State %s: %s%s", action, state, extraInfo)
}

var defaultLogger = NewLogger("bundler") //nolint:gochecknoglobals

func Infof(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Errorf logs and returns the formatted error.
//
//	err := logx.Errorf("load config: %w", err)
func Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	defaultLogger.Error("%s", err.Error())
	return err
}

// Wrap logs msg + ": " + err.Error() and returns fmt.Errorf("%s: %w", msg, err).
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrappedErr := fmt.Errorf("%s: %w", msg, err)
	defaultLogger.Error("%s", wrappedErr.Error())
	return wrappedErr
}
