// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fffclog is the leveled logger used across the runtime. It mirrors
// the Logf/Fatalf call shape already used throughout the rest of this
// codebase, with the level itself configurable via FFFC_LOG_LEVEL.
package fffclog

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a verbosity threshold. Lower values are more verbose.
type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
	None
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case None:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses one of DEBUG/INFO/WARN/ERROR/NONE, case-insensitively.
// An unrecognized value falls back to Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug
	case "INFO":
		return Info
	case "WARN":
		return Warn
	case "ERROR":
		return Error
	case "NONE":
		return None
	default:
		return Info
	}
}

var current int32 = int32(Info)

// SetLevel changes the global verbosity threshold.
func SetLevel(l Level) {
	atomic.StoreInt32(&current, int32(l))
}

func enabled(l Level) bool {
	return l >= Level(atomic.LoadInt32(&current))
}

// Logf logs a message at the given level if it passes the current threshold.
func Logf(level Level, format string, args ...interface{}) {
	if !enabled(level) {
		return
	}
	log.Output(2, fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...)))
}

// Errorf logs at Error level and returns an error wrapping the message, so
// call sites can both report and propagate in one line.
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Logf(Error, "%s", err)
	return err
}

// Fatalf logs with a [FATAL] tag, regardless of the current level, and
// terminates the process with exit status 1. Reserved for
// setup-fatal conditions (cannot create state directories, cannot install
// the hook, cannot set the CPU rlimit) — everything else should recover
// locally instead of calling this.
func Fatalf(format string, args ...interface{}) {
	log.Output(2, fmt.Sprintf("[FATAL] %s", fmt.Sprintf(format, args...)))
	os.Exit(1)
}
