// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"io"
	"os"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line when a run ends
	LogLast LogLevel = 0
	// LogEval print also suppressed backend warnings and every sampled point
	LogEval LogLevel = 1
	// LogTrace print details of every iteration
	LogTrace LogLevel = 99
)

// Logger handles logging output for solvers and benchmark runs.
// Note the writer must be thread-safe when loggers are shared.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
}

// Enabled reports whether messages of the given level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && l.Level >= level
}

// Logf writes a message when the level is enabled.
func (l *Logger) Logf(level LogLevel, format string, a ...any) {
	if !l.Enabled(level) {
		return
	}
	w := l.Msg
	if w == nil {
		w = os.Stdout
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(w, format, a...)
	} else {
		_, _ = fmt.Fprint(w, format)
	}
}
