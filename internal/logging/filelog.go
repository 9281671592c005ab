package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chatdesk/chatdesk/internal/constants"
)

var (
	fileLogger         *lumberjack.Logger
	fileLoggerMu       sync.RWMutex
	fileLoggingEnabled bool
)

// InitFileLogger starts rotating file logging in logDir.
// Calling it again while a file logger is open is a no-op.
// Loggers created before this call keep writing to the console only.
func InitFileLogger(logDir string) error {
	fileLoggerMu.Lock()
	defer fileLoggerMu.Unlock()

	if fileLogger != nil {
		return nil
	}

	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	fileLogger = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.LogFileName),
		MaxSize:    10, // MB per file
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	fileLoggingEnabled = true
	return nil
}

// EnableFileLogging toggles writes to an already initialized file logger.
func EnableFileLogging(enabled bool) {
	fileLoggerMu.Lock()
	defer fileLoggerMu.Unlock()
	fileLoggingEnabled = enabled
}

// IsFileLoggingEnabled returns whether file logging is currently active.
func IsFileLoggingEnabled() bool {
	fileLoggerMu.RLock()
	defer fileLoggerMu.RUnlock()
	return fileLoggingEnabled && fileLogger != nil
}

// FileLogPath returns the current log file path, or "" when not initialized.
func FileLogPath() string {
	fileLoggerMu.RLock()
	defer fileLoggerMu.RUnlock()

	if fileLogger != nil {
		return fileLogger.Filename
	}
	return ""
}

// FileWriter returns the writer zerolog should tee into, or io.Discard.
func FileWriter() io.Writer {
	fileLoggerMu.RLock()
	defer fileLoggerMu.RUnlock()

	if fileLogger == nil {
		return io.Discard
	}
	return toggledWriter{}
}

// toggledWriter checks the enabled flag on every write so that toggling file
// logging takes effect for loggers that were already built.
type toggledWriter struct{}

func (toggledWriter) Write(p []byte) (int, error) {
	fileLoggerMu.RLock()
	defer fileLoggerMu.RUnlock()

	if fileLogger == nil || !fileLoggingEnabled {
		return len(p), nil
	}
	return fileLogger.Write(p)
}

// CloseFileLogger closes the file logger (call on shutdown).
func CloseFileLogger() {
	fileLoggerMu.Lock()
	defer fileLoggerMu.Unlock()

	if fileLogger != nil {
		fileLogger.Close()
		fileLogger = nil
		fileLoggingEnabled = false
	}
}
