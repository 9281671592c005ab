// chatdesk-fs starts the desktop shell with only the filesystem plugin
// registered. It is used by front-end builds that manage their own
// credentials and model access.
package main

import (
	"fmt"
	"os"

	"github.com/chatdesk/chatdesk/frontend"
	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/desktop"
)

func main() {
	err := desktop.Run(desktop.Options{
		Plugins: desktop.PluginFilesystem,
		Assets:  frontend.Assets,
		Title:   constants.AppName + " Files",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
