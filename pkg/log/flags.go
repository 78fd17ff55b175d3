// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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
	"strings"

	"github.com/clusterkit/nodesel/pkg/config"
)

// sourceList is a flag.Value for a comma-separated set of log sources, plus
// the reserved keywords 'all' and 'none'.
type sourceList struct {
	target *stateMap
}

func (l *sourceList) String() string {
	if l.target == nil || *l.target == nil {
		return ""
	}
	names := make([]string, 0, len(*l.target))
	for name, enabled := range *l.target {
		if enabled {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

func (l *sourceList) Set(value string) error {
	m := stateMap{}
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch name {
		case "all":
			m["*"] = true
		case "none":
			m["*"] = false
		default:
			m[name] = true
		}
	}
	reg.Lock()
	*l.target = m
	reg.Unlock()
	return nil
}

// levelValue is a flag.Value for the global log level.
type levelValue struct{}

func (levelValue) String() string {
	reg.RLock()
	defer reg.RUnlock()
	return reg.level.String()
}

func (levelValue) Set(value string) error {
	level, ok := NamedLevels[strings.ToLower(value)]
	if !ok {
		return configError("invalid log level %q", value)
	}
	reg.Lock()
	reg.level = level
	reg.Unlock()
	return nil
}

// backendValue is a flag.Value for selecting the active logging backend.
type backendValue struct{}

func (backendValue) String() string {
	reg.RLock()
	defer reg.RUnlock()
	return reg.backend
}

func (backendValue) Set(value string) error {
	SelectBackend(value)
	return nil
}

func configError(format string, args ...interface{}) error {
	return &loggerConfigError{msg: fmt.Sprintf(format, args...)}
}

type loggerConfigError struct{ msg string }

func (e *loggerConfigError) Error() string { return e.msg }

func init() {
	m := config.Register("logger", configHelp, config.WithNotify(configNotify))

	m.Var(&levelValue{}, "level", "lowest severity of messages to log (debug, info, warn, error)")
	m.Var(&backendValue{}, "backend", "active logging backend to use")
	m.Var(&sourceList{target: &reg.enable}, "source", "comma-separated log sources to enable, or 'all'/'none'")
	m.Var(&sourceList{target: &reg.debug}, "debug", "comma-separated log sources to enable debugging for, or 'all'/'none'")

	config.SetLogger(config.Logger{
		DebugEnabled: func() bool { return defLogger.DebugEnabled() },
		Debugf:       defLogger.Debug,
		Infof:        defLogger.Info,
		Warningf:     defLogger.Warn,
		Errorf:       defLogger.Error,
		Fatalf:       defLogger.Fatal,
		Panicf:       defLogger.Panic,
	})
}

func configNotify(event config.Event, source config.Source) error {
	reg.Lock()
	for _, l := range reg.loggers {
		l.enabled = reg.enable.isEnabled(l.source, true)
		l.debug = reg.forced || reg.debug.isEnabled(l.source, false)
		l.level = reg.level
	}
	reg.Unlock()
	Info("logging configuration %s from %s", event, source)
	return nil
}
