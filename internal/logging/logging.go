// Package logging configures the process-wide standard logger.
package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// File, when set, receives a rotated copy of every log line.
	File  string
	Level string
}

// Setup points the standard logger at stderr and, optionally, a rotating
// file. The returned close func flushes and closes the file.
func Setup(opts Options) func() error {
	debug = strings.EqualFold(strings.TrimSpace(opts.Level), "debug")

	path := strings.TrimSpace(opts.File)
	if path == "" {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
		return func() error { return nil }
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    15, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return rotator.Close
}

var debug bool

// Debugf logs only when Setup ran with Level "debug".
func Debugf(format string, args ...any) {
	if debug {
		log.Printf("[debug] "+format, args...)
	}
}

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool { return debug }
