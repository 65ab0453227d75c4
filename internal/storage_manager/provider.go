// Package storage_manager gives components namespaced file storage on local
// disk or S3. Conversation memory uses it for its file backend and for
// backups.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a file does not exist.
var ErrNotFound = errors.New("file not found")

// ErrInvalidPath is returned for paths that escape the provider root.
var ErrInvalidPath = errors.New("invalid storage path")

// FileProvider is whole-file storage addressed by slash-separated paths.
type FileProvider interface {
	// Read returns the content of path, or an error wrapping ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write creates or replaces path.
	Write(ctx context.Context, path string, data []byte) error
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes path. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error
	// List returns the paths under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// cleanPath normalises p and rejects absolute paths and parent traversal.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	clean := path.Clean(filepath.ToSlash(p))
	if strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// LocalFileProvider stores files under a base directory.
type LocalFileProvider struct {
	baseDir string
}

// NewLocalFileProvider creates a provider rooted at baseDir.
func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{baseDir: baseDir}
}

func (p *LocalFileProvider) resolve(name string) (string, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.baseDir, filepath.FromSlash(clean)), nil
}

// Read reads a file from disk.
func (p *LocalFileProvider) Read(_ context.Context, name string) ([]byte, error) {
	full, err := p.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // G304: path is confined to baseDir
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Write writes a file, creating parent directories.
func (p *LocalFileProvider) Write(_ context.Context, name string, data []byte) error {
	full, err := p.resolve(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// write then rename so readers never see a partial file
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), full)
}

// Exists checks whether a file exists on disk.
func (p *LocalFileProvider) Exists(_ context.Context, name string) (bool, error) {
	full, err := p.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Delete removes a file from disk.
func (p *LocalFileProvider) Delete(_ context.Context, name string) error {
	full, err := p.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the files under prefix, relative to the base directory.
func (p *LocalFileProvider) List(_ context.Context, prefix string) ([]string, error) {
	root, err := p.resolve(prefix)
	if err != nil {
		return nil, err
	}

	result := []string{}
	err = filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		if rel, err := filepath.Rel(p.baseDir, full); err == nil {
			result = append(result, filepath.ToSlash(rel))
		}
		return nil
	})
	return result, err
}

// PrefixedFileProvider scopes another provider to a namespace.
type PrefixedFileProvider struct {
	provider FileProvider
	prefix   string
}

// NewPrefixedFileProvider wraps provider so every path lives under prefix.
func NewPrefixedFileProvider(provider FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{provider: provider, prefix: strings.Trim(prefix, "/")}
}

func (p *PrefixedFileProvider) prefixPath(name string) (string, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return "", err
	}
	if p.prefix == "" {
		return clean, nil
	}
	if clean == "" {
		return p.prefix, nil
	}
	return p.prefix + "/" + clean, nil
}

// Read reads a file inside the namespace.
func (p *PrefixedFileProvider) Read(ctx context.Context, name string) ([]byte, error) {
	full, err := p.prefixPath(name)
	if err != nil {
		return nil, err
	}
	return p.provider.Read(ctx, full)
}

// Write writes a file inside the namespace.
func (p *PrefixedFileProvider) Write(ctx context.Context, name string, data []byte) error {
	full, err := p.prefixPath(name)
	if err != nil {
		return err
	}
	return p.provider.Write(ctx, full, data)
}

// Exists checks a file inside the namespace.
func (p *PrefixedFileProvider) Exists(ctx context.Context, name string) (bool, error) {
	full, err := p.prefixPath(name)
	if err != nil {
		return false, err
	}
	return p.provider.Exists(ctx, full)
}

// Delete removes a file inside the namespace.
func (p *PrefixedFileProvider) Delete(ctx context.Context, name string) error {
	full, err := p.prefixPath(name)
	if err != nil {
		return err
	}
	return p.provider.Delete(ctx, full)
}

// List returns paths under prefix with the namespace stripped.
func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	full, err := p.prefixPath(prefix)
	if err != nil {
		return nil, err
	}
	files, err := p.provider.List(ctx, full)
	if err != nil {
		return nil, err
	}

	result := []string{}
	for _, f := range files {
		if p.prefix == "" {
			result = append(result, f)
			continue
		}
		if rel, ok := strings.CutPrefix(f, p.prefix+"/"); ok {
			result = append(result, rel)
		}
	}
	return result, nil
}
