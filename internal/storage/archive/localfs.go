package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newthinker/meridian/internal/core"
)

// ErrNotFound is returned by Read for missing paths.
var ErrNotFound = &core.Error{Code: "ARCHIVE_NOT_FOUND", Message: "archive object not found"}

// LocalFS stores objects as files below a base directory.
type LocalFS struct {
	basePath string
}

// NewLocalFS creates the base directory if needed.
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("creating base path: %w", err))
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return &LocalFS{basePath: abs}, nil
}

// resolve maps a slash path inside the base directory, rejecting escapes.
func (l *LocalFS) resolve(path string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(path))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", core.Errorf(core.ErrStorage, "path %q escapes archive root", path)
	}
	return full, nil
}

// Write stores data via a temp file and rename so readers never see partial files.
func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return core.WrapError(core.ErrStorage, fmt.Errorf("creating directories: %w", err))
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return core.WrapError(core.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return core.WrapError(core.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return core.WrapError(core.ErrStorage, err)
	}
	return nil
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.Errorf(ErrNotFound, "%s", path)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return data, nil
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := l.resolve(prefix)
	if err != nil {
		return nil, err
	}
	paths := []string{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return core.WrapError(core.ErrStorage, err)
	}
	return nil
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, core.WrapError(core.ErrStorage, err)
	}
	return true, nil
}
