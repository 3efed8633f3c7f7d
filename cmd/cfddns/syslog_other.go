//go:build windows || plan9

package main

import "log"

func newLogger(tag string, verbose bool) *log.Logger {
	return stderrLogger(tag)
}
