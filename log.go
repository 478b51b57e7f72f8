package csp

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logMu  sync.RWMutex
	logger logrus.FieldLogger = newDefaultLogger()
)

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.InfoLevel
	return l
}

// SetLogger replaces the logger used for all of this package's diagnostics.
// Channel and select internals only log at Debug and Trace levels;
// task panics in supervised goroutines are logged at Error level.
//
// Passing nil restores the default logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = newDefaultLogger()
	}
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func log() logrus.FieldLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// logEnabled reports whether the current logger would emit at level,
// so call sites can skip building fields nobody will see.
// Loggers that can't say are assumed to want everything.
func logEnabled(level logrus.Level) bool {
	l, ok := log().(interface{ IsLevelEnabled(logrus.Level) bool })
	return !ok || l.IsLevelEnabled(level)
}
