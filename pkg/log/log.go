// Copyright 2019 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is the log message severity level below which we suppress messages.
type Level int32

const (
	// LevelDebug corresponds to debug messages.
	LevelDebug Level = iota
	// LevelInfo corresponds to informational messages.
	LevelInfo
	// LevelWarn corresponds to warning messages.
	LevelWarn
	// LevelError corresponds to error messages.
	LevelError
)

// LevelNames maps severity levels to names.
var LevelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// NamedLevels maps severity names to levels.
var NamedLevels = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// String returns the name of a severity level.
func (l Level) String() string {
	if name, ok := LevelNames[l]; ok {
		return name
	}
	return LevelNames[LevelInfo]
}

// Logger is the interface for configuring and producing log messages.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})
	Panic(format string, args ...interface{})

	DebugEnabled() bool
	Debug(format string, args ...interface{})
	Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{})
	DebugBlock(prefix string, format string, args ...interface{})
	InfoBlock(prefix string, format string, args ...interface{})
	WarnBlock(prefix string, format string, args ...interface{})
	ErrorBlock(prefix string, format string, args ...interface{})

	// Source returns the source name this logger was created for.
	Source() string
	// Stop retires this logger instance.
	Stop()
}

// Backend is an entity that can emit already-formatted log messages.
type Backend interface {
	Name() string
	PrefixPreference() bool
	Info(message string)
	Warn(message string)
	Error(message string)
	Debug(message string)
}

// logger is our Logger implementation.
type logger struct {
	source  string // logger source/module name
	enabled bool   // whether this source is enabled
	level   Level  // first non-suppressed severity level
	debug   bool   // debugging enabled for this instance
	prefix  string // cached message prefix
}

// registry is the process-wide logging configuration and logger cache.
type registry struct {
	sync.RWMutex
	level    Level              // global lowest unsuppressed severity
	enable   stateMap           // per-source logging enable state
	debug    stateMap           // per-source debug enable state
	forced   bool               // force full debugging regardless of debug map
	loggers  map[string]*logger // known loggers by source
	backends map[string]Backend // registered backends by name
	active   Backend            // currently active backend
	backend  string             // name of the selected backend
	srcalign int                // longest known source name, for prefix alignment
}

// stateMap implements a named on/off/default lookup with a wildcard entry.
type stateMap map[string]bool

func (m stateMap) isEnabled(name string, deflt bool) bool {
	if m == nil {
		return deflt
	}
	if state, ok := m[name]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return deflt
}

var reg = &registry{
	level:    LevelInfo,
	enable:   stateMap{"*": true},
	debug:    stateMap{},
	loggers:  make(map[string]*logger),
	backends: make(map[string]Backend),
}

// defLogger is the logger used by the package-level convenience functions.
var defLogger Logger

// Get returns an existing logger for source, creating one if necessary.
func Get(source string) Logger {
	return getLogger(source)
}

// NewLogger creates (or returns an existing) logger for the given source.
func NewLogger(source string) Logger {
	return getLogger(source)
}

func getLogger(source string) *logger {
	source = strings.Trim(source, "[] ")

	reg.Lock()
	defer reg.Unlock()

	if l, ok := reg.loggers[source]; ok {
		return l
	}

	l := &logger{
		source:  source,
		enabled: reg.enable.isEnabled(source, true),
		debug:   reg.forced || reg.debug.isEnabled(source, false),
		level:   reg.level,
	}
	reg.loggers[source] = l

	if len(source) > reg.srcalign {
		reg.srcalign = len(source)
		for _, other := range reg.loggers {
			other.prefix = ""
		}
	}

	if reg.active == nil {
		selectBackend("")
	}

	return l
}

// Default returns the default package-level Logger.
func Default() Logger {
	return defLogger
}

// Source returns the source this logger was created for.
func (l *logger) Source() string {
	return l.source
}

// Stop retires a logger, dropping it from the registry.
func (l *logger) Stop() {
	reg.Lock()
	defer reg.Unlock()
	l.enabled = false
	delete(reg.loggers, l.source)
}

func (l *logger) passthrough(level Level) bool {
	reg.RLock()
	defer reg.RUnlock()
	if level == LevelDebug {
		return l.debug || reg.forced
	}
	return l.enabled && l.level <= level
}

func (l *logger) formatMessage(format string, args ...interface{}) string {
	reg.RLock()
	align := reg.srcalign
	reg.RUnlock()

	if l.prefix == "" || len(l.source) != align-countPad(l.prefix, l.source) {
		suf := (align - len(l.source)) / 2
		pre := align - (len(l.source) + suf)
		l.prefix = "[" + strings.Repeat(" ", pre) + l.source + strings.Repeat(" ", suf) + "] "
	}

	return l.prefix + fmt.Sprintf(format, args...)
}

// countPad is a small helper used only to decide whether a cached prefix is stale.
func countPad(prefix, source string) int {
	return len(prefix) - 3 - len(source)
}

func (l *logger) activeBackend() Backend {
	reg.RLock()
	defer reg.RUnlock()
	return reg.active
}

// Info emits an info message.
func (l *logger) Info(format string, args ...interface{}) {
	if !l.passthrough(LevelInfo) {
		return
	}
	l.activeBackend().Info(l.formatMessage(format, args...))
}

// Warn emits a warning message.
func (l *logger) Warn(format string, args ...interface{}) {
	if !l.passthrough(LevelWarn) {
		return
	}
	l.activeBackend().Warn(l.formatMessage(format, args...))
}

// Error emits an error message.
func (l *logger) Error(format string, args ...interface{}) {
	if !l.passthrough(LevelError) {
		return
	}
	l.activeBackend().Error(l.formatMessage(format, args...))
}

// Fatal emits an error message and exits the process.
func (l *logger) Fatal(format string, args ...interface{}) {
	l.activeBackend().Error(l.formatMessage(format, args...))
	os.Exit(1)
}

// Panic emits an error message and panics with it.
func (l *logger) Panic(format string, args ...interface{}) {
	message := l.formatMessage(format, args...)
	l.activeBackend().Error(message)
	panic(message)
}

// DebugEnabled reports whether this logger currently emits debug messages.
func (l *logger) DebugEnabled() bool {
	reg.RLock()
	defer reg.RUnlock()
	return l.debug || reg.forced
}

// Debug emits a debug message, if enabled for this source.
func (l *logger) Debug(format string, args ...interface{}) {
	if !l.passthrough(LevelDebug) {
		return
	}
	l.activeBackend().Debug(l.formatMessage(format, args...))
}

// Block emits a multi-line message, one call to fn per line.
func (l *logger) Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{}) {
	for _, line := range strings.Split(fmt.Sprintf(format, args...), "\n") {
		fn("%s%s", prefix, line)
	}
}

// DebugBlock emits a multi-line debug message.
func (l *logger) DebugBlock(prefix string, format string, args ...interface{}) {
	if !l.passthrough(LevelDebug) {
		return
	}
	l.Block(l.Debug, prefix, format, args...)
}

// InfoBlock emits a multi-line info message.
func (l *logger) InfoBlock(prefix string, format string, args ...interface{}) {
	l.Block(l.Info, prefix, format, args...)
}

// WarnBlock emits a multi-line warning message.
func (l *logger) WarnBlock(prefix string, format string, args ...interface{}) {
	l.Block(l.Warn, prefix, format, args...)
}

// ErrorBlock emits a multi-line error message.
func (l *logger) ErrorBlock(prefix string, format string, args ...interface{}) {
	l.Block(l.Error, prefix, format, args...)
}

// Package-level convenience functions operating on the default logger.

func Info(format string, args ...interface{})  { defLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defLogger.Error(format, args...) }
func Fatal(format string, args ...interface{}) { defLogger.Fatal(format, args...) }
func Panic(format string, args ...interface{}) { defLogger.Panic(format, args...) }
func Debug(format string, args ...interface{}) { defLogger.Debug(format, args...) }

func DebugBlock(prefix string, format string, args ...interface{}) {
	defLogger.DebugBlock(prefix, format, args...)
}
func InfoBlock(prefix string, format string, args ...interface{}) {
	defLogger.InfoBlock(prefix, format, args...)
}
func WarnBlock(prefix string, format string, args ...interface{}) {
	defLogger.WarnBlock(prefix, format, args...)
}
func ErrorBlock(prefix string, format string, args ...interface{}) {
	defLogger.ErrorBlock(prefix, format, args...)
}

// RegisterBackend registers a logging backend under its own name.
func RegisterBackend(b Backend) {
	reg.Lock()
	defer reg.Unlock()
	reg.backends[b.Name()] = b
	if reg.backend == b.Name() || reg.active == nil {
		reg.active = b
	}
}

// SelectBackend activates the named backend, falling back to "fmt" if unknown.
func SelectBackend(name string) {
	selectBackend(name)
}

func selectBackend(name string) {
	if name == "" {
		name = reg.backend
	}
	if b, ok := reg.backends[name]; ok {
		reg.active = b
		reg.backend = name
		return
	}
	if b, ok := reg.backends[FmtBackendName]; ok {
		reg.active = b
		reg.backend = FmtBackendName
	}
}

// ListBackendNames returns the names of all registered backends.
func ListBackendNames() []string {
	reg.RLock()
	defer reg.RUnlock()
	names := make([]string, 0, len(reg.backends))
	for name := range reg.backends {
		names = append(names, name)
	}
	return names
}

//
// fmt-based fallback backend
//

// FmtBackendName is the name of the simple fmt.Print-based backend.
const FmtBackendName = "fmt"

type fmtBackend struct{}

var _ Backend = &fmtBackend{}

func (f *fmtBackend) Name() string          { return FmtBackendName }
func (f *fmtBackend) PrefixPreference() bool { return true }
func (f *fmtBackend) Info(message string)   { fmt.Println("I:", message) }
func (f *fmtBackend) Warn(message string)   { fmt.Println("W:", message) }
func (f *fmtBackend) Error(message string)  { fmt.Println("E:", message) }
func (f *fmtBackend) Debug(message string)  { fmt.Println("D:", message) }

func init() {
	RegisterBackend(&fmtBackend{})

	binary := filepath.Clean(os.Args[0])
	defLogger = getLogger(filepath.Base(binary))
}
