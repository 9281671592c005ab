package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/events"
)

func TestLogger_SetOutput(t *testing.T) {
	logger := NewDefaultCLILogger()

	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.Info().Str("provider", "bedrock").Msg("client created")

	out := buf.String()
	if !strings.Contains(out, "client created") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "provider=") {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if logger.Output() != &buf {
		t.Error("Output() should return the writer passed to SetOutput")
	}
}

func TestLogger_GUIForwardsWarnings(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	logCh := bus.Subscribe(events.EventLog)

	logger := NewLogger("gui", bus)
	logger.SetOutput(&bytes.Buffer{})

	logger.Info().Msg("not forwarded")
	logger.Warn().Msg("config file unreadable")

	select {
	case ev := <-logCh:
		logEv := ev.(*events.LogEvent)
		if logEv.Level != events.WarnLevel {
			t.Errorf("expected WARN, got %s", logEv.Level)
		}
		if logEv.Message != "config file unreadable" {
			t.Errorf("unexpected message %q", logEv.Message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for forwarded warning")
	}

	select {
	case ev := <-logCh:
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFileLogger(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(CloseFileLogger)

	if err := InitFileLogger(dir); err != nil {
		t.Fatalf("InitFileLogger failed: %v", err)
	}
	if !IsFileLoggingEnabled() {
		t.Fatal("file logging should be enabled after init")
	}
	if got, want := FileLogPath(), filepath.Join(dir, constants.LogFileName); got != want {
		t.Errorf("FileLogPath() = %q, want %q", got, want)
	}

	logger := NewLogger("gui", nil)
	logger.SetOutput(&bytes.Buffer{})
	logger.Error().Msg("written to file")

	EnableFileLogging(false)
	logger.Error().Msg("suppressed line")
	EnableFileLogging(true)

	CloseFileLogger()

	data, err := os.ReadFile(filepath.Join(dir, constants.LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message: %q", data)
	}
	if strings.Contains(string(data), "suppressed line") {
		t.Error("log file should not contain lines written while disabled")
	}
	if IsFileLoggingEnabled() {
		t.Error("file logging should be disabled after close")
	}
}

func TestSetGlobalLevel(t *testing.T) {
	defer SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := NewDefaultCLILogger()
	logger.SetOutput(&buf)

	SetGlobalLevel(zerolog.WarnLevel)
	logger.Debugf("hidden %d", 1)
	logger.Infof("hidden %d", 2)
	if buf.Len() != 0 {
		t.Errorf("expected no output below WARN, got %q", buf.String())
	}

	SetGlobalLevel(zerolog.DebugLevel)
	logger.Debugf("visible %d", 3)
	if !strings.Contains(buf.String(), "visible 3") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}
