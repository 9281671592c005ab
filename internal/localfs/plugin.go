package localfs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrOutsideRoot is returned for paths that resolve above the plugin root.
var ErrOutsideRoot = errors.New("path is outside the app data directory")

// FileEntryDTO is a directory entry as sent to the front-end.
type FileEntryDTO struct {
	Name    string `json:"name"`
	Path    string `json:"path"` // slash-separated, relative to the root
	IsDir   bool   `json:"isDir"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"modTime"` // unix milliseconds
}

// Plugin gives scoped file access below root.
type Plugin struct {
	root string
	fs   afero.Fs
}

// New returns a plugin rooted at dir on the OS filesystem.
func New(dir string) *Plugin {
	return NewWithFs(afero.NewOsFs(), dir)
}

// NewWithFs returns a plugin rooted at dir on base. Tests pass afero.NewMemMapFs().
func NewWithFs(base afero.Fs, dir string) *Plugin {
	return &Plugin{
		root: dir,
		fs:   afero.NewBasePathFs(base, dir),
	}
}

// AppDataDir returns the absolute root directory.
func (p *Plugin) AppDataDir() string {
	return p.root
}

// Fs returns the scoped filesystem. Paths given to it are relative to the root.
func (p *Plugin) Fs() afero.Fs {
	return p.fs
}

// clean normalizes a front-end path to a root-relative one and rejects
// anything that climbs out of the root.
func clean(name string) (string, error) {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	cleaned := path.Clean("/" + name)
	// path.Clean on a rooted path swallows "..", so compare against a
	// non-rooted clean to detect escapes.
	if rel := path.Clean(name); rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return cleaned, nil
}

// ReadTextFile returns the contents of a file as a string.
func (p *Plugin) ReadTextFile(name string) (string, error) {
	rel, err := clean(name)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(p.fs, rel)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), nil
}

// WriteTextFile creates or truncates a file. The parent directory must exist.
func (p *Plugin) WriteTextFile(name, contents string) error {
	rel, err := clean(name)
	if err != nil {
		return err
	}
	if rel == "/" {
		return fmt.Errorf("write %s: %w", name, os.ErrInvalid)
	}
	if err := afero.WriteFile(p.fs, rel, []byte(contents), 0600); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Mkdir creates a directory, and its parents when recursive is set.
// An existing directory is not an error in recursive mode.
func (p *Plugin) Mkdir(name string, recursive bool) error {
	rel, err := clean(name)
	if err != nil {
		return err
	}
	if recursive {
		err = p.fs.MkdirAll(rel, 0700)
	} else {
		err = p.fs.Mkdir(rel, 0700)
	}
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", rel, err)
	}
	return nil
}

// ReadDir lists a directory sorted by name, filtered by opts.
func (p *Plugin) ReadDir(name string, opts ListOptions) ([]FileEntryDTO, error) {
	rel, err := clean(name)
	if err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(p.fs, rel)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", rel, err)
	}

	result := make([]FileEntryDTO, 0, len(infos))
	for _, info := range infos {
		entryName := info.Name()
		if !opts.IncludeHidden && IsHiddenName(entryName) {
			continue
		}
		if opts.Extension != "" && !info.IsDir() && !strings.HasSuffix(entryName, opts.Extension) {
			continue
		}
		result = append(result, FileEntryDTO{
			Name:    entryName,
			Path:    strings.TrimPrefix(path.Join(rel, entryName), "/"),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime().UnixMilli(),
		})
	}
	return result, nil
}

// Exists reports whether name exists. Paths outside the root never exist.
func (p *Plugin) Exists(name string) bool {
	rel, err := clean(name)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(p.fs, rel)
	return err == nil && ok
}

// Remove deletes a file or an empty directory. The root itself cannot be removed.
func (p *Plugin) Remove(name string) error {
	rel, err := clean(name)
	if err != nil {
		return err
	}
	if rel == "/" {
		return fmt.Errorf("remove %s: %w", name, os.ErrPermission)
	}
	if err := p.fs.Remove(rel); err != nil {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}
