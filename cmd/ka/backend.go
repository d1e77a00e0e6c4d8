package main

import (
	"fmt"
	"path/filepath"

	"github.com/Melonai/ka/client"
	"github.com/Melonai/ka/internal/history"
	"github.com/Melonai/ka/internal/parcel"
	"github.com/Melonai/ka/internal/repository"
	shared "github.com/Melonai/ka/shared/types"
)

// backend is what the history commands run against: the repository on disk,
// or a daemon when --remote is set.
type backend interface {
	Update(timestamp uint64) (*repository.UpdateResult, error)
	Shift(cursor uint64) (*repository.ShiftResult, error)
	History() (*history.RepositoryHistory, error)
	Status() ([]repository.StatusEntry, error)
	File(path string, cursor *uint64) (*repository.FileVersion, error)
	Diff(path string) (*shared.FileDiff, error)
	// Resolve turns a command line path into a root relative one.
	Resolve(arg string) (string, error)
	Close() error
}

type localBackend struct {
	p *parcel.Parcel
}

func (b *localBackend) Update(timestamp uint64) (*repository.UpdateResult, error) {
	return b.p.Repository.Update(timestamp)
}

func (b *localBackend) Shift(cursor uint64) (*repository.ShiftResult, error) {
	return b.p.Repository.Shift(cursor)
}

func (b *localBackend) History() (*history.RepositoryHistory, error) {
	return b.p.Repository.Log()
}

func (b *localBackend) Status() ([]repository.StatusEntry, error) {
	return b.p.Repository.Status()
}

func (b *localBackend) File(path string, cursor *uint64) (*repository.FileVersion, error) {
	at := uint64(0)
	if cursor != nil {
		at = *cursor
	} else {
		log, err := b.p.Repository.Log()
		if err != nil {
			return nil, err
		}
		at = log.Cursor
	}
	return b.p.Repository.Show(path, at)
}

func (b *localBackend) Diff(path string) (*shared.FileDiff, error) {
	result, err := b.p.Repository.Diff(path)
	if err != nil {
		return nil, err
	}
	d := shared.NewFileDiff(path, result)
	return &d, nil
}

// Resolve reads arg relative to the working directory, like any other tool.
func (b *localBackend) Resolve(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", arg, err)
	}
	return b.p.Repository.Locations().Relative(abs)
}

func (b *localBackend) Close() error {
	return b.p.Close()
}

type remoteBackend struct {
	*client.Client
}

// Resolve passes arg through; the daemon's root is not known here.
func (remoteBackend) Resolve(arg string) (string, error) {
	return filepath.ToSlash(filepath.Clean(arg)), nil
}

func (remoteBackend) Close() error {
	return nil
}
