// Package repository runs the Create, Update and Shift actions over one
// repository root, plus the read-only queries built on the same logs.
package repository

import (
	"fmt"
	"time"

	"github.com/Melonai/ka/internal/cache"
	"github.com/Melonai/ka/internal/codec"
	"github.com/Melonai/ka/internal/diff"
	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/fs"
	"github.com/Melonai/ka/internal/history"
	"github.com/Melonai/ka/internal/workspace"
	"github.com/Melonai/ka/shared/utils"

	"go.uber.org/zap"
)

// Options configures a Repository. Zero values select defaults.
type Options struct {
	Root        string
	MetaDir     string
	Logger      *zap.Logger
	Codec       *codec.Codec
	Cache       cache.Cache
	DiffTimeout time.Duration
}

// Repository is not safe for concurrent use; callers serialise actions.
type Repository struct {
	fs         fs.FS
	loc        workspace.Locations
	classifier *workspace.Classifier
	codec      *codec.Codec
	cache      cache.Cache
	logger     *zap.Logger
	timeout    time.Duration
}

func New(fsys fs.FS, opts Options) *Repository {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Codec == nil {
		opts.Codec = codec.Plain()
	}
	if opts.Cache == nil {
		opts.Cache = cache.Nop{}
	}
	if opts.DiffTimeout <= 0 {
		opts.DiffTimeout = diff.DefaultTimeout
	}

	loc := workspace.NewLocations(opts.Root, opts.MetaDir)
	return &Repository{
		fs:         fsys,
		loc:        loc,
		classifier: workspace.NewClassifier(fsys, loc),
		codec:      opts.Codec,
		cache:      opts.Cache,
		logger:     opts.Logger.With(zap.String("root", loc.Root)),
		timeout:    opts.DiffTimeout,
	}
}

func (r *Repository) Locations() workspace.Locations {
	return r.loc
}

// Initialized reports whether the repository has an index.
func (r *Repository) Initialized() bool {
	return r.fs.Exists(r.loc.IndexPath)
}

// index is the repository index held open for the length of one action.
type index struct {
	file    fs.File
	history *history.RepositoryHistory
}

func (r *Repository) openIndex(writable bool) (*index, error) {
	open := r.fs.OpenFile
	if writable {
		open = r.fs.OpenWritable
	}

	file, err := open(r.loc.IndexPath)
	if err != nil {
		return nil, err
	}

	data, err := r.fs.ReadAll(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	var h history.RepositoryHistory
	if err := r.codec.Decode(data, &h); err != nil {
		file.Close()
		return nil, kaerrors.Corrupt(r.loc.IndexPath, err)
	}

	return &index{file: file, history: &h}, nil
}

func (r *Repository) saveIndex(idx *index) error {
	data, err := r.codec.Encode(idx.history)
	if err != nil {
		return err
	}
	return r.fs.WriteAll(idx.file, data)
}

// readHistory loads the FileHistory at path. raw is the stored form, used to
// key reconstructed contents in the cache.
func (r *Repository) readHistory(path string) (h *history.FileHistory, raw []byte, err error) {
	raw, err = fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, nil, err
	}

	h = &history.FileHistory{}
	if err := r.codec.Decode(raw, h); err != nil {
		return nil, nil, kaerrors.Corrupt(path, err)
	}
	return h, raw, nil
}

func (r *Repository) writeHistory(path string, h *history.FileHistory) error {
	data, err := r.codec.Encode(h)
	if err != nil {
		return err
	}
	return fs.WriteFile(r.fs, path, data)
}

// content reconstructs h at cursor, going through the cache.
func (r *Repository) content(path string, h *history.FileHistory, raw []byte, cursor uint64) ([]byte, error) {
	// Every cursor past the highest change index yields the same content.
	cursor = min(cursor, h.MaxIndex())
	key := cache.Key(utils.HashContent(raw), cursor)

	if content, ok := r.cache.Get(key); ok {
		return content, nil
	}

	content, err := h.Content(cursor)
	if err != nil {
		return nil, kaerrors.Corrupt(path, err)
	}
	r.cache.Add(key, content)
	return content, nil
}

func (r *Repository) relativeOf(state workspace.FileState) (string, error) {
	switch s := state.(type) {
	case workspace.Tracked:
		return r.loc.Relative(s.WorkingPath)
	case workspace.Untracked:
		return r.loc.Relative(s.WorkingPath)
	case workspace.Deleted:
		working, err := r.loc.WorkingFromHistory(s.HistoryPath)
		if err != nil {
			return "", err
		}
		return r.loc.Relative(working)
	default:
		return "", fmt.Errorf("unknown file state %T", state)
	}
}
