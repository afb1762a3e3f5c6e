package sandbox

import "fmt"

var (
	// ErrNotFound is returned when the named file does not exist in the sandbox.
	ErrNotFound = fmt.Errorf("file not found")

	// ErrEntryNotFound is returned when a numbered entry does not exist in a
	// text-class file. It matches ErrNotFound under errors.Is.
	ErrEntryNotFound = fmt.Errorf("entry %w", ErrNotFound)

	// ErrAlreadyExists is returned when creating a file that already exists.
	ErrAlreadyExists = fmt.Errorf("file already exists")

	// ErrPathEscape is returned when a name would resolve outside the sandbox
	// root (traversal sequences, absolute paths, symlink escapes) or does not
	// match the filename whitelist.
	ErrPathEscape = fmt.Errorf("path escapes sandbox root")

	// ErrFileTooLarge is returned when a write would exceed the configured
	// character ceiling. The file is left unmodified.
	ErrFileTooLarge = fmt.Errorf("file exceeds character limit")

	// ErrSandboxFull is returned by create once the sandbox holds the
	// configured maximum number of files.
	ErrSandboxFull = fmt.Errorf("sandbox file limit reached")

	// ErrWrongFileClass is returned when an operation targets the wrong file
	// class, e.g. appending an entry to a non-text file, or creating a file
	// with a disallowed extension.
	ErrWrongFileClass = fmt.Errorf("operation not valid for this file class")
)
