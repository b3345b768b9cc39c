// Package klog is the module's ambient logger: a thin wrapper over the
// standard log package gated by a verbosity level, in the style of
// go-nfsd's util.DPrintf and biscuit's bdev_debug/fs_debug booleans. No
// third-party structured logger appears anywhere in the retrieved
// example pack, so this stays on top of the standard library — see
// DESIGN.md.
package klog

import (
	"log"
	"os"
	"sync/atomic"
)

// Level gates which calls actually reach the underlying logger.
type Level int32

const (
	LevelSilent Level = iota
	LevelInfo
	LevelDebug
)

var level int32 = int32(LevelInfo)
var std = log.New(os.Stderr, "pintos: ", log.LstdFlags|log.Lmicroseconds)

// SetLevel changes the process-wide verbosity threshold.
func SetLevel(l Level) { atomic.StoreInt32(&level, int32(l)) }

func enabled(l Level) bool { return Level(atomic.LoadInt32(&level)) >= l }

// Infof logs at LevelInfo, on by default.
func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		std.Printf(format, args...)
	}
}

// Debugf logs cache/frame hot-path detail, silent unless enabled.
func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		std.Printf(format, args...)
	}
}

// Fatalf logs then exits, mirroring log.Fatalf.
func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
