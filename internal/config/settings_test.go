package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNewAppSettings(t *testing.T) {
	s := NewAppSettings()

	if s.Debug {
		t.Error("expected Debug to default to false")
	}
	if !s.FileLogging {
		t.Error("expected FileLogging to default to true")
	}
	if s.WindowWidth != 1100 || s.WindowHeight != 760 {
		t.Errorf("unexpected default window size %dx%d", s.WindowWidth, s.WindowHeight)
	}
	if s.Proxy.Mode != ProxyModeSystem {
		t.Errorf("expected default proxy mode system, got %s", s.Proxy.Mode)
	}
}

func TestSaveAndLoadAppSettings(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.ini")

	s := &AppSettings{
		Debug:        true,
		FileLogging:  false,
		WindowWidth:  1280,
		WindowHeight: 800,
		Proxy: ProxySettings{
			Mode:     ProxyModeNTLM,
			Host:     "proxy.corp.example",
			Port:     3128,
			User:     "DOMAIN\\alice",
			Password: "s3cret",
			NoProxy:  "localhost,.corp.example",
		},
	}

	if err := SaveAppSettings(s, settingsPath); err != nil {
		t.Fatalf("SaveAppSettings failed: %v", err)
	}

	loaded, err := LoadAppSettings(settingsPath)
	if err != nil {
		t.Fatalf("LoadAppSettings failed: %v", err)
	}

	if *loaded != *s {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *loaded, *s)
	}
}

func TestLoadAppSettings_NonExistent(t *testing.T) {
	s, err := LoadAppSettings(filepath.Join(t.TempDir(), "missing.ini"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if *s != *NewAppSettings() {
		t.Errorf("expected defaults, got %+v", s)
	}
}

func TestLoadAppSettings_PartialFile(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.ini")
	content := "[proxy]\nmode = No-Proxy\n"
	if err := os.WriteFile(settingsPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	s, err := LoadAppSettings(settingsPath)
	if err != nil {
		t.Fatalf("LoadAppSettings failed: %v", err)
	}
	if s.Proxy.Mode != ProxyModeNone {
		t.Errorf("expected mode to be lower-cased to no-proxy, got %s", s.Proxy.Mode)
	}
	if s.WindowWidth != 1100 {
		t.Errorf("missing keys should keep defaults, got width %d", s.WindowWidth)
	}
	if !s.FileLogging {
		t.Error("missing file_logging should default to true")
	}
}

func TestLoadAppSettings_InvalidMode(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.ini")
	if err := os.WriteFile(settingsPath, []byte("[proxy]\nmode = socks\n"), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	if _, err := LoadAppSettings(settingsPath); err == nil {
		t.Error("expected error for unsupported proxy mode")
	}
}

func TestSaveAppSettings_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permissions test on Windows")
	}

	settingsPath := filepath.Join(t.TempDir(), "settings.ini")
	if err := SaveAppSettings(NewAppSettings(), settingsPath); err != nil {
		t.Fatalf("SaveAppSettings failed: %v", err)
	}

	info, err := os.Stat(settingsPath)
	if err != nil {
		t.Fatalf("failed to stat settings file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected permissions 0600, got %o", perm)
	}
}
