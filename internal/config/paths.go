// Package config provides configuration management for ChatDesk.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/chatdesk/chatdesk/internal/constants"
)

// AppDataDir returns the per-user directory holding config.json,
// settings.ini and the conversations folder.
//
// Locations:
//   - CHATDESK_DATA_DIR when set
//   - Windows: %APPDATA%\com.chatdesk.app
//   - macOS: ~/Library/Application Support/com.chatdesk.app
//   - Linux: $XDG_DATA_HOME/com.chatdesk.app (default ~/.local/share/com.chatdesk.app)
func AppDataDir() string {
	if dir := os.Getenv(constants.EnvDataDir); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "windows", "darwin":
		configDir, err := os.UserConfigDir()
		if err != nil {
			return filepath.Join(os.TempDir(), constants.AppIdentifier)
		}
		return filepath.Join(configDir, constants.AppIdentifier)
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, constants.AppIdentifier)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.AppIdentifier)
	}
	return filepath.Join(homeDir, ".local", "share", constants.AppIdentifier)
}

// UserConfigPath returns the path of the JSON user config.
func UserConfigPath() string {
	return filepath.Join(AppDataDir(), constants.UserConfigFile)
}

// AppSettingsPath returns the path of the INI shell settings.
func AppSettingsPath() string {
	return filepath.Join(AppDataDir(), constants.AppSettingsFile)
}

// ConversationDir returns the directory holding one JSON file per conversation.
func ConversationDir() string {
	return filepath.Join(AppDataDir(), constants.ConversationsDir)
}

// LogDirectory returns the directory for rotating log files.
func LogDirectory() string {
	return filepath.Join(AppDataDir(), "logs")
}

// EnsureAppDataDir creates the app data directory if it doesn't exist.
// Uses 0700: the directory may hold API keys.
func EnsureAppDataDir() error {
	return os.MkdirAll(AppDataDir(), 0700)
}
