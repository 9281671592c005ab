package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/conversation"
	"github.com/chatdesk/chatdesk/internal/events"
	"github.com/chatdesk/chatdesk/internal/localfs"
)

// appEnv is what the commands share: the data directory and its stores.
type appEnv struct {
	dataDir       string
	bus           *events.EventBus
	settings      *config.AppSettings
	config        *config.Store
	conversations *conversation.Store
}

// resolveDataDir returns --data-dir or the default app data directory.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return config.AppDataDir()
}

// resolveConfigPath returns --config or config.json inside the data directory.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return filepath.Join(resolveDataDir(), constants.UserConfigFile)
}

// openEnv loads the settings and user config and opens the conversation store.
func openEnv() (*appEnv, error) {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create app data directory: %w", err)
	}
	log := GetLogger()

	settings, err := config.LoadAppSettings(filepath.Join(dir, constants.AppSettingsFile))
	if err != nil {
		log.Warn().Err(err).Msg("Invalid app settings, using defaults")
		settings = config.NewAppSettings()
	}

	bus := events.NewEventBus(constants.EventBusMaxBuffer)

	store := config.NewStore(resolveConfigPath(), bus, log)
	store.Load()

	files := localfs.New(dir)
	convs := conversation.NewStore(files.Fs(), constants.ConversationsDir, log)
	if err := convs.Init(); err != nil {
		bus.Close()
		return nil, err
	}

	return &appEnv{
		dataDir:       dir,
		bus:           bus,
		settings:      settings,
		config:        store,
		conversations: convs,
	}, nil
}

func (e *appEnv) close() {
	e.bus.Close()
}
