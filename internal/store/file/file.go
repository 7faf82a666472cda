// Package file persists values as JSON files under a root directory, one
// file per key. Key segments separated by ':' become sub-directories.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrSnakeDoc/catalogd/internal/store"
	"github.com/MrSnakeDoc/catalogd/internal/utils"
)

type Backend struct {
	root string
}

func New(root string) *Backend {
	return &Backend{root: root}
}

func (b *Backend) Name() string { return "file" }

func (b *Backend) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	rel := filepath.FromSlash(strings.ReplaceAll(key, ":", "/")) + ".json"
	return filepath.Join(b.root, rel), nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, store.ErrMiss
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set writes through a temp file and rename so readers never see a torn
// value.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		utils.Close(tmp)
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Ping checks that the root directory exists or can be created.
func (b *Backend) Ping(context.Context) error {
	return os.MkdirAll(b.root, 0o755)
}

// Keys walks the root directory and maps every JSON file back to its key.
func (b *Backend) Keys(context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, strings.ReplaceAll(filepath.ToSlash(strings.TrimSuffix(rel, ".json")), "/", ":"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", b.root, err)
	}
	return keys, nil
}
