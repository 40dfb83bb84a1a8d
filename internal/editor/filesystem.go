package editor

// FilesystemManager abstracts file access so the service can be tested
// against a controlled filesystem and so path validation happens in one
// place.
type FilesystemManager interface {
	// Resolve validates a raw path and returns it in absolute form.
	// The path does not have to exist, but an existing path must be a
	// regular file (not a symlink, device, or directory).
	Resolve(rawPath string) (string, error)

	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)

	// ReadFile returns the file's content as a string.
	// Returns errclass.ErrNotFound if the file does not exist.
	ReadFile(path string) (string, error)

	// WriteFile replaces the file's content atomically (write to a
	// temporary file in the same directory, then rename).
	WriteFile(path string, content string) error

	// IsProtected reports whether edits to path are refused by the
	// configured protected-path patterns.
	IsProtected(path string) bool
}
