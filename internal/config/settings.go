package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"
)

// Proxy modes understood by internal/http.
const (
	ProxyModeNone   = "no-proxy"
	ProxyModeSystem = "system"
	ProxyModeBasic  = "basic"
	ProxyModeNTLM   = "ntlm"
)

// AppSettings are shell-owned settings that the front-end never edits
// directly. Stored as INI:
//
//	[app]
//	debug = false
//	file_logging = true
//
//	[window]
//	width = 1100
//	height = 760
//
//	[proxy]
//	mode = system
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy = localhost,127.0.0.1
type AppSettings struct {
	Debug       bool
	FileLogging bool

	WindowWidth  int
	WindowHeight int

	Proxy ProxySettings
}

// ProxySettings configure outbound HTTP for the LLM providers.
type ProxySettings struct {
	Mode     string
	Host     string
	Port     int
	User     string
	Password string
	NoProxy  string
}

// NewAppSettings returns the defaults.
func NewAppSettings() *AppSettings {
	return &AppSettings{
		FileLogging:  true,
		WindowWidth:  1100,
		WindowHeight: 760,
		Proxy: ProxySettings{
			Mode: ProxyModeSystem,
			Port: 8080,
		},
	}
}

// LoadAppSettings loads settings from an INI file.
// If the file doesn't exist, returns defaults and no error.
func LoadAppSettings(path string) (*AppSettings, error) {
	s := NewAppSettings()

	if path == "" {
		path = AppSettingsPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	app := iniFile.Section("app")
	s.Debug = app.Key("debug").MustBool(false)
	s.FileLogging = app.Key("file_logging").MustBool(true)

	window := iniFile.Section("window")
	s.WindowWidth = window.Key("width").MustInt(s.WindowWidth)
	s.WindowHeight = window.Key("height").MustInt(s.WindowHeight)

	proxy := iniFile.Section("proxy")
	s.Proxy.Mode = strings.ToLower(proxy.Key("mode").MustString(s.Proxy.Mode))
	s.Proxy.Host = proxy.Key("host").String()
	s.Proxy.Port = proxy.Key("port").MustInt(s.Proxy.Port)
	s.Proxy.User = proxy.Key("user").String()
	s.Proxy.Password = proxy.Key("password").String()
	s.Proxy.NoProxy = proxy.Key("no_proxy").String()

	return s, s.Validate()
}

// Validate rejects values the shell cannot use.
func (s *AppSettings) Validate() error {
	switch s.Proxy.Mode {
	case ProxyModeNone, ProxyModeSystem, ProxyModeBasic, ProxyModeNTLM, "":
	default:
		return fmt.Errorf("unsupported proxy mode: %s", s.Proxy.Mode)
	}
	if s.WindowWidth < 400 || s.WindowHeight < 300 {
		return fmt.Errorf("window size %dx%d is below the 400x300 minimum", s.WindowWidth, s.WindowHeight)
	}
	return nil
}

// SaveAppSettings writes settings to an INI file with owner-only permissions.
func SaveAppSettings(s *AppSettings, path string) error {
	if path == "" {
		path = AppSettingsPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	iniFile := ini.Empty()

	app, err := iniFile.NewSection("app")
	if err != nil {
		return fmt.Errorf("failed to create app section: %w", err)
	}
	app.Key("debug").SetValue(fmt.Sprintf("%t", s.Debug))
	app.Key("file_logging").SetValue(fmt.Sprintf("%t", s.FileLogging))

	window, err := iniFile.NewSection("window")
	if err != nil {
		return fmt.Errorf("failed to create window section: %w", err)
	}
	window.Key("width").SetValue(fmt.Sprintf("%d", s.WindowWidth))
	window.Key("height").SetValue(fmt.Sprintf("%d", s.WindowHeight))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(s.Proxy.Mode)
	proxy.Key("host").SetValue(s.Proxy.Host)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", s.Proxy.Port))
	proxy.Key("user").SetValue(s.Proxy.User)
	proxy.Key("password").SetValue(s.Proxy.Password)
	proxy.Key("no_proxy").SetValue(s.Proxy.NoProxy)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set settings permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}
