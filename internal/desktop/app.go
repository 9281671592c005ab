// Package desktop provides the Wails shell for ChatDesk: it owns the window
// lifecycle and registers the plugins whose methods the front-end calls.
package desktop

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chatdesk/chatdesk/internal/chat"
	"github.com/chatdesk/chatdesk/internal/config"
	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/conversation"
	"github.com/chatdesk/chatdesk/internal/credentials"
	"github.com/chatdesk/chatdesk/internal/events"
	inthttp "github.com/chatdesk/chatdesk/internal/http"
	"github.com/chatdesk/chatdesk/internal/llm"
	"github.com/chatdesk/chatdesk/internal/localfs"
	"github.com/chatdesk/chatdesk/internal/logging"
	"github.com/chatdesk/chatdesk/internal/version"
)

// Plugin selects a group of bound methods.
type Plugin uint8

const (
	// PluginCredentials binds GetAWSCredentials.
	PluginCredentials Plugin = 1 << iota
	// PluginFilesystem binds the app-data scoped file operations.
	PluginFilesystem
	// PluginChat binds config, conversations and streaming chat.
	PluginChat

	// AllPlugins is what the main binary registers.
	AllPlugins = PluginCredentials | PluginFilesystem | PluginChat
)

// Has reports whether all plugins in q are selected.
func (p Plugin) Has(q Plugin) bool {
	return p&q == q
}

// Options configure one shell instance.
type Options struct {
	Plugins Plugin
	Assets  fs.FS

	// DataDir overrides config.AppDataDir().
	DataDir string

	// Title overrides the window title.
	Title string
}

// desktopLogger is the package-level logger for the shell
var desktopLogger = logging.NewLogger("gui", nil)

// App is the object bound to the front-end. Its own methods are always
// available; the plugins add their methods when selected.
type App struct {
	ctx      context.Context
	opts     Options
	dataDir  string
	bus      *events.EventBus
	settings *config.AppSettings

	eventBridge *EventBridge

	Credentials *CredentialsPlugin
	Filesystem  *FilesystemPlugin
	Chat        *ChatPlugin

	stopWatch func()
}

// NewApp builds the shell and the selected plugins without starting Wails.
func NewApp(opts Options) (*App, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = config.AppDataDir()
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create app data directory: %w", err)
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	desktopLogger.SetEventBus(bus)

	settings, err := config.LoadAppSettings(filepath.Join(dataDir, constants.AppSettingsFile))
	if err != nil {
		desktopLogger.Warn().Err(err).Msg("Invalid app settings, using defaults")
		settings = config.NewAppSettings()
	}

	a := &App{
		ctx:      context.Background(),
		opts:     opts,
		dataDir:  dataDir,
		bus:      bus,
		settings: settings,
	}

	accessor := credentials.NewAccessor()

	if opts.Plugins.Has(PluginCredentials) {
		a.Credentials = &CredentialsPlugin{accessor: accessor}
	}

	files := localfs.New(dataDir)
	if opts.Plugins.Has(PluginFilesystem) {
		a.Filesystem = &FilesystemPlugin{fs: files}
	}

	if opts.Plugins.Has(PluginChat) {
		cfgStore := config.NewStore(filepath.Join(dataDir, constants.UserConfigFile), bus, desktopLogger)
		cfgStore.Load()

		convStore := conversation.NewStore(files.Fs(), constants.ConversationsDir, desktopLogger)
		if err := convStore.Init(); err != nil {
			return nil, fmt.Errorf("failed to open conversations: %w", err)
		}

		inthttp.SetLogger(desktopLogger)
		registry := llm.NewRegistry(cfgStore, llm.Deps{
			Accessor: accessor,
			Proxy:    &settings.Proxy,
			Logger:   desktopLogger,
		})
		a.stopWatch = registry.Watch(bus)

		a.Chat = &ChatPlugin{
			app:           a,
			config:        cfgStore,
			conversations: convStore,
			registry:      registry,
			accessor:      accessor,
			session:       chat.NewSession(convStore, registry, cfgStore, bus, desktopLogger),
		}
	}

	return a, nil
}

// context returns the Wails context once started.
func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// bindings lists the objects whose exported methods the front-end can call.
func (a *App) bindings() []interface{} {
	bound := []interface{}{a}
	if a.Credentials != nil {
		bound = append(bound, a.Credentials)
	}
	if a.Filesystem != nil {
		bound = append(bound, a.Filesystem)
	}
	if a.Chat != nil {
		bound = append(bound, a.Chat)
	}
	return bound
}

// startup is called when the app starts. The context is saved
// so we can call the Wails runtime methods.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	a.eventBridge = NewEventBridge(ctx, a.bus)
	if err := a.eventBridge.Start(); err != nil {
		desktopLogger.Error().Err(err).Msg("Failed to start event bridge")
	}

	if a.settings.FileLogging {
		if err := logging.InitFileLogger(filepath.Join(a.dataDir, "logs")); err != nil {
			desktopLogger.Warn().Err(err).Msg("File logging unavailable")
		}
	}

	desktopLogger.Info().Str("dataDir", a.dataDir).Msg("Desktop application started")
}

// domReady is called after the frontend DOM is ready.
func (a *App) domReady(ctx context.Context) {
	desktopLogger.Debug().Msg("Frontend DOM ready")
}

// beforeClose is called when the window close is requested.
// Return true to prevent closing.
func (a *App) beforeClose(ctx context.Context) bool {
	width, height := wailsruntime.WindowGetSize(ctx)
	if width != a.settings.WindowWidth || height != a.settings.WindowHeight {
		a.rememberWindowSize(width, height)
	}
	return false
}

// rememberWindowSize persists the window size for the next start.
func (a *App) rememberWindowSize(width, height int) {
	a.settings.WindowWidth = width
	a.settings.WindowHeight = height
	if err := a.settings.Validate(); err != nil {
		return
	}
	path := filepath.Join(a.dataDir, constants.AppSettingsFile)
	if err := config.SaveAppSettings(a.settings, path); err != nil {
		desktopLogger.Warn().Err(err).Msg("Failed to save window size")
	}
}

// shutdown is called at application termination.
func (a *App) shutdown(ctx context.Context) {
	desktopLogger.Info().Msg("Desktop application shutting down")
	a.close()
}

func (a *App) close() {
	if a.Chat != nil {
		a.Chat.session.Abort()
	}
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	if a.eventBridge != nil {
		a.eventBridge.Stop()
		a.eventBridge = nil
	}
	a.bus.Close()
	logging.CloseFileLogger()
}

// AppInfoDTO contains application version and plugin information.
type AppInfoDTO struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	BuildTime  string   `json:"buildTime"`
	AppDataDir string   `json:"appDataDir"`
	Plugins    []string `json:"plugins"`
}

// GetAppInfo returns version, data directory and the registered plugins.
func (a *App) GetAppInfo() AppInfoDTO {
	info := AppInfoDTO{
		Name:       constants.AppName,
		Version:    version.Version,
		BuildTime:  version.BuildTime,
		AppDataDir: a.dataDir,
		Plugins:    []string{},
	}
	if a.Credentials != nil {
		info.Plugins = append(info.Plugins, "credentials")
	}
	if a.Filesystem != nil {
		info.Plugins = append(info.Plugins, "filesystem")
	}
	if a.Chat != nil {
		info.Plugins = append(info.Plugins, "chat")
	}
	return info
}

// Run launches the desktop application and blocks until the window closes.
func Run(opts Options) error {
	if os.Getenv(constants.EnvDebug) != "" {
		logging.SetGlobalLevel(zerolog.DebugLevel)
		desktopLogger.Info().Msg("Debug logging enabled via " + constants.EnvDebug)
	} else {
		logging.SetGlobalLevel(zerolog.WarnLevel)
	}

	// Check for display on Linux
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("%w: DISPLAY and WAYLAND_DISPLAY are not set; use 'chatdesk --cli' for CLI mode", ErrNoDisplay)
		}
	}

	if !EnsureSingleInstance() {
		return ErrAlreadyRunning
	}

	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	if app.settings.Debug {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}

	title := opts.Title
	if title == "" {
		title = defaultTitle()
	}

	err = wails.Run(&options.App{
		Title:     title,
		Width:     app.settings.WindowWidth,
		Height:    app.settings.WindowHeight,
		MinWidth:  400,
		MinHeight: 300,
		AssetServer: &assetserver.Options{
			Assets: opts.Assets,
		},
		BackgroundColour: &options.RGBA{R: 248, G: 250, B: 252, A: 1},
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnBeforeClose:    app.beforeClose,
		OnShutdown:       app.shutdown,
		Bind:             app.bindings(),
		Mac: &mac.Options{
			About: &mac.AboutInfo{
				Title:   constants.AppName,
				Message: fmt.Sprintf("Version %s", version.Version),
			},
		},
		Windows: &windows.Options{
			WebviewBrowserPath: getWebView2BrowserPath(),
		},
		Linux: &linux.Options{
			ProgramName: constants.AppIdentifier,
		},
	})
	if err != nil {
		return fmt.Errorf("wails application error: %w", err)
	}

	return nil
}

func defaultTitle() string {
	return fmt.Sprintf("%s %s", constants.AppName, version.Version)
}

// getWebView2BrowserPath returns the path to a bundled WebView2 Fixed Version
// Runtime in a webview2/ folder next to the executable, or "" for the system one.
func getWebView2BrowserPath() string {
	if runtime.GOOS != "windows" {
		return ""
	}

	exePath, err := os.Executable()
	if err != nil {
		return ""
	}

	webview2Dir := filepath.Join(filepath.Dir(exePath), "webview2")
	if _, err := os.Stat(filepath.Join(webview2Dir, "msedgewebview2.exe")); err == nil {
		return webview2Dir
	}
	return ""
}
