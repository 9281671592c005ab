// Package frontend holds the built web front-end served by the desktop shell.
package frontend

import "embed"

// Assets is the content of dist/, produced by the front-end build.
//
//go:embed all:dist
var Assets embed.FS
