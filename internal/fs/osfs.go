package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	kaerrors "github.com/Melonai/ka/internal/errors"
)

// OSFS is a production implementation of FS using the standard library.
type OSFS struct{}

func NewOSFS() *OSFS {
	return &OSFS{}
}

type osFile struct {
	*os.File
}

func (r *OSFS) CreateFile(path string) (File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, kaerrors.IO("create", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, kaerrors.IO("create", path, err)
	}
	return osFile{f}, nil
}

func (r *OSFS) OpenFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kaerrors.IO("open", path, err)
	}
	return osFile{f}, nil
}

func (r *OSFS) OpenWritable(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, kaerrors.IO("open", path, err)
	}
	return osFile{f}, nil
}

func (r *OSFS) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return kaerrors.IO("delete", path, err)
	}
	return nil
}

func (r *OSFS) CreateDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return kaerrors.IO("mkdir", path, err)
	}
	return nil
}

func (r *OSFS) ReadDir(path string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, kaerrors.IO("readdir", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		entries = append(entries, Entry{Name: e.Name(), IsDir: e.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (r *OSFS) DeleteDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return kaerrors.IO("rmdir", path, err)
	}
	return nil
}

func (r *OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (r *OSFS) ReadAll(f File) ([]byte, error) {
	file, err := r.handle(f)
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, kaerrors.IO("seek", file.Name(), err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, kaerrors.IO("read", file.Name(), err)
	}
	return data, nil
}

func (r *OSFS) WriteAll(f File, data []byte) error {
	file, err := r.handle(f)
	if err != nil {
		return err
	}
	if err := file.Truncate(0); err != nil {
		return kaerrors.IO("truncate", file.Name(), err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return kaerrors.IO("write", file.Name(), err)
	}
	return nil
}

func (r *OSFS) handle(f File) (*os.File, error) {
	file, ok := f.(osFile)
	if !ok {
		return nil, fmt.Errorf("handle %s was not opened by OSFS", f.Name())
	}
	return file.File, nil
}
