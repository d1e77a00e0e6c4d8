package fs

import (
	iofs "io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	kaerrors "github.com/Melonai/ka/internal/errors"
)

// MemoryFS is a pure in-memory filesystem for tests.
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// Node describes one file or directory of a MemoryFS tree.
type Node struct {
	Path  string
	IsDir bool
	Data  []byte
}

// FileNode describes a file node holding data.
func FileNode(p string, data []byte) Node {
	return Node{Path: clean(p), Data: append([]byte{}, data...)}
}

// DirNode describes an empty directory node.
func DirNode(p string) Node {
	return Node{Path: clean(p), IsDir: true}
}

// NewMemoryFS returns a filesystem holding nodes. Parents are created as needed.
func NewMemoryFS(nodes ...Node) *MemoryFS {
	f := &MemoryFS{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{"/": {}},
	}
	for _, n := range nodes {
		if n.IsDir {
			f.mkdirAll(n.Path)
			continue
		}
		f.mkdirAll(path.Dir(clean(n.Path)))
		f.files[clean(n.Path)] = append([]byte{}, n.Data...)
	}
	return f
}

// Tree returns every file and directory except the root, sorted by path.
func (f *MemoryFS) Tree() []Node {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var nodes []Node
	for d := range f.dirs {
		if d != "/" {
			nodes = append(nodes, Node{Path: d, IsDir: true})
		}
	}
	for p, data := range f.files {
		nodes = append(nodes, Node{Path: p, Data: append([]byte{}, data...)})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
	return nodes
}

func clean(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (f *MemoryFS) mkdirAll(p string) {
	for p = clean(p); ; p = path.Dir(p) {
		f.dirs[p] = struct{}{}
		if p == "/" {
			return
		}
	}
}

type memFile struct {
	path     string
	writable bool
	closed   bool
}

func (m *memFile) Name() string { return m.path }

func (m *memFile) Close() error {
	if m.closed {
		return kaerrors.IO("close", m.path, iofs.ErrClosed)
	}
	m.closed = true
	return nil
}

func (f *MemoryFS) CreateFile(p string) (File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	if _, ok := f.dirs[p]; ok {
		return nil, kaerrors.IO("create", p, iofs.ErrExist)
	}
	f.mkdirAll(path.Dir(p))
	if _, ok := f.files[p]; !ok {
		f.files[p] = []byte{}
	}
	return &memFile{path: p, writable: true}, nil
}

func (f *MemoryFS) OpenFile(p string) (File, error) {
	return f.open(p, false)
}

func (f *MemoryFS) OpenWritable(p string) (File, error) {
	return f.open(p, true)
}

func (f *MemoryFS) open(p string, writable bool) (File, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p = clean(p)
	if _, ok := f.files[p]; !ok {
		return nil, kaerrors.IO("open", p, iofs.ErrNotExist)
	}
	return &memFile{path: p, writable: writable}, nil
}

func (f *MemoryFS) DeleteFile(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	if _, ok := f.files[p]; !ok {
		return kaerrors.IO("delete", p, iofs.ErrNotExist)
	}
	delete(f.files, p)
	return nil
}

func (f *MemoryFS) CreateDir(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	for d := p; d != "/"; d = path.Dir(d) {
		if _, ok := f.files[d]; ok {
			return kaerrors.IO("mkdir", p, iofs.ErrExist)
		}
	}
	f.mkdirAll(p)
	return nil
}

func (f *MemoryFS) ReadDir(p string) ([]Entry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p = clean(p)
	if _, ok := f.dirs[p]; !ok {
		return nil, kaerrors.IO("readdir", p, iofs.ErrNotExist)
	}

	var entries []Entry
	for d := range f.dirs {
		if d != p && path.Dir(d) == p {
			entries = append(entries, Entry{Name: path.Base(d), IsDir: true})
		}
	}
	for fp := range f.files {
		if path.Dir(fp) == p {
			entries = append(entries, Entry{Name: path.Base(fp)})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (f *MemoryFS) DeleteDir(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	if _, ok := f.dirs[p]; !ok {
		return kaerrors.IO("rmdir", p, iofs.ErrNotExist)
	}

	prefix := strings.TrimSuffix(p, "/") + "/"
	for d := range f.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(f.dirs, d)
		}
	}
	for fp := range f.files {
		if strings.HasPrefix(fp, prefix) {
			delete(f.files, fp)
		}
	}
	f.dirs["/"] = struct{}{}
	return nil
}

func (f *MemoryFS) Exists(p string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p = clean(p)
	_, isFile := f.files[p]
	_, isDir := f.dirs[p]
	return isFile || isDir
}

func (f *MemoryFS) ReadAll(file File) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	m, err := f.handle(file, "read")
	if err != nil {
		return nil, err
	}
	data, ok := f.files[m.path]
	if !ok {
		return nil, kaerrors.IO("read", m.path, iofs.ErrNotExist)
	}
	return append([]byte{}, data...), nil
}

func (f *MemoryFS) WriteAll(file File, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.handle(file, "write")
	if err != nil {
		return err
	}
	if !m.writable {
		return kaerrors.IO("write", m.path, iofs.ErrPermission)
	}
	if _, ok := f.files[m.path]; !ok {
		return kaerrors.IO("write", m.path, iofs.ErrNotExist)
	}
	f.files[m.path] = append([]byte{}, data...)
	return nil
}

func (f *MemoryFS) handle(file File, op string) (*memFile, error) {
	m, ok := file.(*memFile)
	if !ok {
		return nil, kaerrors.IO(op, file.Name(), iofs.ErrInvalid)
	}
	if m.closed {
		return nil, kaerrors.IO(op, m.path, iofs.ErrClosed)
	}
	return m, nil
}
