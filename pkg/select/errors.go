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

package nodeselect

import (
	"fmt"

	logger "github.com/clusterkit/nodesel/pkg/log"
)

var log = logger.NewLogger("select")

// Kind classifies errors returned by this package.
type Kind int

const (
	// OK is the zero value, never actually wrapped into an *Error.
	OK Kind = iota
	// NoFit is the ordinary "cannot place this job right now" result.
	NoFit
	// Invariant marks state corruption recovered by clamp-and-log; the
	// call still returns an error but State remains usable.
	Invariant
	// Unsupported marks a request this engine deliberately refuses, e.g.
	// a GRES-bearing job_expand.
	Unsupported
	// Fatal marks a condition from which the process cannot continue.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case NoFit:
		return "NO_FIT"
	case Invariant:
		return "INVARIANT"
	case Unsupported:
		return "UNSUPPORTED"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Error is this package's error type, tagged with a Kind so callers can
// branch on its Kind (via errors.As or a type switch) without string
// matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the wrapped error for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an *Error, logging Invariant and Fatal kinds as the
// taxonomy requires; Fatal additionally aborts the process.
func newError(kind Kind, op string, format string, args ...interface{}) *Error {
	err := &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}

	switch kind {
	case Invariant:
		log.Error("%v", err)
	case Fatal:
		log.Fatal("%v", err)
	}

	return err
}

// invariantDebug logs an Invariant-kind error at debug severity instead of
// error, for anomalies explainable by fast-schedule being disabled.
func invariantDebug(op string, format string, args ...interface{}) *Error {
	err := &Error{Kind: Invariant, Op: op, Err: fmt.Errorf(format, args...)}
	log.Debug("%v", err)
	return err
}

// errNoFit builds a fresh NoFit-kind *Error for a "cannot place" result;
// callers recognize it by its Kind, not by identity.
func errNoFit(op string, format string, args ...interface{}) *Error {
	return newError(NoFit, op, format, args...)
}
