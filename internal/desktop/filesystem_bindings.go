package desktop

import (
	"github.com/chatdesk/chatdesk/internal/localfs"
)

// FilesystemPlugin exposes file access scoped to the app data directory.
// All paths are relative to that directory.
type FilesystemPlugin struct {
	fs *localfs.Plugin
}

// AppDataDir returns the directory every path is resolved against.
func (p *FilesystemPlugin) AppDataDir() string {
	return p.fs.AppDataDir()
}

// ReadTextFile returns the contents of a file.
func (p *FilesystemPlugin) ReadTextFile(path string) (string, error) {
	return p.fs.ReadTextFile(path)
}

// WriteTextFile creates or replaces a file.
func (p *FilesystemPlugin) WriteTextFile(path, contents string) error {
	return p.fs.WriteTextFile(path, contents)
}

// CreateDir creates a directory, with its parents when recursive is set.
func (p *FilesystemPlugin) CreateDir(path string, recursive bool) error {
	return p.fs.Mkdir(path, recursive)
}

// ReadDir lists a directory. Hidden entries are left out unless includeHidden is set.
func (p *FilesystemPlugin) ReadDir(path string, includeHidden bool) ([]localfs.FileEntryDTO, error) {
	return p.fs.ReadDir(path, localfs.ListOptions{IncludeHidden: includeHidden})
}

// Exists reports whether path exists.
func (p *FilesystemPlugin) Exists(path string) bool {
	return p.fs.Exists(path)
}

// RemoveFile deletes a file or an empty directory.
func (p *FilesystemPlugin) RemoveFile(path string) error {
	return p.fs.Remove(path)
}
