// ChatDesk - desktop chat client for hosted LLMs, with a CLI for scripting.
//
// Mode selection:
// - No args + display available → GUI mode
// - No args + no display → CLI help
// - --gui → GUI mode
// - --cli → CLI mode (force)
// - CLI subcommands/flags → CLI mode
//
// Build with: wails build
package main

import (
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/chatdesk/chatdesk/frontend"
	"github.com/chatdesk/chatdesk/internal/cli"
	"github.com/chatdesk/chatdesk/internal/desktop"
)

func main() {
	if isCLIMode(os.Args[1:], hasDisplay()) {
		args := slices.DeleteFunc(slices.Clone(os.Args[1:]), func(a string) bool { return a == "--cli" })
		if err := cli.Execute(args); err != nil {
			os.Exit(1)
		}
		return
	}

	// Suppress GTK ibus input method warnings on Linux.
	if runtime.GOOS == "linux" && os.Getenv("GTK_IM_MODULE") == "" {
		os.Setenv("GTK_IM_MODULE", "none")
	}
	err := desktop.Run(desktop.Options{
		Plugins: desktop.AllPlugins,
		Assets:  frontend.Assets,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func hasDisplay() bool {
	if runtime.GOOS != "linux" {
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// isCLIMode determines whether to run in CLI mode.
//
// CLI mode when:
// - --cli flag is present (force CLI mode)
// - CLI subcommands or flags are present
// - No arguments and no display
// - Unknown arguments (so typos show CLI help rather than a window)
//
// GUI mode when:
// - --gui flag is present (force GUI mode)
// - No arguments and a display is available
func isCLIMode(args []string, display bool) bool {
	if slices.Contains(args, "--cli") {
		return true
	}
	if slices.Contains(args, "--gui") {
		return false
	}
	if len(args) == 0 {
		return !display
	}
	return true
}
