// internal/parcel/parcel.go
package parcel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Melonai/ka/internal/cache"
	"github.com/Melonai/ka/internal/codec"
	"github.com/Melonai/ka/internal/config"
	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/fs"
	"github.com/Melonai/ka/internal/logging"
	"github.com/Melonai/ka/internal/repository"
	"github.com/Melonai/ka/internal/workspace"

	"go.uber.org/zap"
)

// Parcel bundles a Repository with the resources built for it from the
// configuration. Close releases them.
type Parcel struct {
	Root       string
	Repository *repository.Repository
	Logger     *logging.Logger

	cache cache.Cache
}

// Open builds the repository rooted at cfg.Repository.Path, or at the working
// directory when it is empty. With discover set, the root is the nearest
// ancestor holding the metadata directory instead.
func Open(cfg *config.Config, logger *logging.Logger, discover bool) (*Parcel, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	root := cfg.Repository.Path
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
		root = cwd
	}

	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}

	osfs := fs.NewOSFS()
	if discover {
		found, err := workspace.FindRoot(osfs, absPath, cfg.Repository.MetaDir)
		if err != nil {
			if kaerrors.IsType(err, kaerrors.ErrorTypeNotFound) {
				return nil, kaerrors.NotFound(fmt.Sprintf("not a ka repository (or any parent up to /): %s", absPath))
			}
			return nil, err
		}
		absPath = found
	}

	recordCodec, err := codec.New(codec.Options{
		Enabled: cfg.Storage.Compression.Enabled,
		MinSize: cfg.Storage.Compression.MinSize,
		Level:   cfg.Storage.Compression.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing codec: %w", err)
	}

	contentCache, err := cache.New(cache.Options{
		Size:       cfg.Cache.Size,
		Persistent: cfg.Cache.Persistent,
		Dir:        cfg.Cache.Dir,
	}, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	repo := repository.New(osfs, repository.Options{
		Root:        absPath,
		MetaDir:     cfg.Repository.MetaDir,
		Logger:      logger.Logger,
		Codec:       recordCodec,
		Cache:       contentCache,
		DiffTimeout: cfg.Diff.Timeout,
	})

	logger.Debug("Opened repository",
		zap.String("root", absPath),
		zap.Bool("initialized", repo.Initialized()),
		zap.Bool("persistent_cache", cfg.Cache.Persistent))

	return &Parcel{
		Root:       absPath,
		Repository: repo,
		Logger:     logger,
		cache:      contentCache,
	}, nil
}

func (p *Parcel) Close() error {
	return p.cache.Close()
}
