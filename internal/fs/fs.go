// Package fs is the filesystem collaborator the repository works through.
// OSFS talks to the disk; MemoryFS keeps a whole tree in memory for tests.
package fs

// File is an open handle returned by CreateFile, OpenFile and OpenWritable.
type File interface {
	Name() string
	Close() error
}

// Entry is one child returned by ReadDir.
type Entry struct {
	Name  string
	IsDir bool
}

// FS abstracts filesystem operations.
type FS interface {
	// CreateFile opens path read-write, creating it and any missing parents.
	CreateFile(path string) (File, error)
	OpenFile(path string) (File, error)
	OpenWritable(path string) (File, error)
	DeleteFile(path string) error
	// CreateDir creates path and any missing parents.
	CreateDir(path string) error
	// ReadDir lists one level of path, sorted by name.
	ReadDir(path string) ([]Entry, error)
	// DeleteDir removes path and everything below it.
	DeleteDir(path string) error
	Exists(path string) bool
	ReadAll(f File) ([]byte, error)
	// WriteAll truncates f and writes data.
	WriteAll(f File, data []byte) error
}

// ReadFile opens path, reads it and closes it again.
func ReadFile(fsys FS, path string) ([]byte, error) {
	f, err := fsys.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fsys.ReadAll(f)
}

// WriteFile creates path if needed and replaces its content with data.
func WriteFile(fsys FS, path string, data []byte) error {
	f, err := fsys.CreateFile(path)
	if err != nil {
		return err
	}
	if err := fsys.WriteAll(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
