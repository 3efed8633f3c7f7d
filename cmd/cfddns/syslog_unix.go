//go:build !windows && !plan9

package main

import (
	"io"
	"log"
	"log/syslog"
	"os"
)

// newLogger writes to the local syslog under tag.
// When syslog cannot be reached the log goes to stderr instead.
func newLogger(tag string, verbose bool) *log.Logger {
	w, err := syslog.New(syslog.LOG_USER|syslog.LOG_NOTICE, tag)
	if err != nil {
		l := stderrLogger(tag)
		l.Printf("syslog unavailable, logging to stderr: %s", err)
		return l
	}
	if verbose {
		return log.New(io.MultiWriter(w, os.Stderr), "", 0)
	}
	return log.New(w, "", 0)
}
