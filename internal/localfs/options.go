package localfs

// ListOptions configures the behavior of ReadDir.
type ListOptions struct {
	// IncludeHidden includes hidden files (starting with .) in results.
	// Default is false (hidden files excluded).
	IncludeHidden bool

	// Extension keeps only regular files with this suffix (e.g. ".json").
	// Directories are always kept. Empty keeps everything.
	Extension string
}
