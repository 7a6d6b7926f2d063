package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const metadataSuffix = ".meta.json"

// LocalArchive stores files in a directory tree with JSON metadata sidecars
type LocalArchive struct {
	basePath string
	logger   *logrus.Logger
}

// NewLocalArchive creates the base directory if needed
func NewLocalArchive(basePath string, logger *logrus.Logger) (*LocalArchive, error) {
	if logger == nil {
		logger = logrus.New()
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, newStorageError("open", "", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, newStorageError("open", "", err)
	}

	return &LocalArchive{basePath: absPath, logger: logger}, nil
}

// BasePath returns the archive root directory
func (l *LocalArchive) BasePath() string {
	return l.basePath
}

// Path returns the filesystem path of key
func (l *LocalArchive) Path(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

// Store writes data atomically through a temp file
func (l *LocalArchive) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return newStorageError("store", key, err)
	}
	if opts == nil {
		opts = &StoreOptions{Overwrite: true}
	}

	filePath := l.Path(key)
	if !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return newStorageError("store", key, ErrFileAlreadyExists)
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return newStorageError("store", key, err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return newStorageError("store", key, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return newStorageError("store", key, err)
	}

	meta := opts.Metadata
	if opts.ContentType != "" {
		meta = withContentType(meta, opts.ContentType)
	}
	if len(meta) > 0 {
		if err := l.writeMetadata(key, meta); err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("Failed to write archive metadata")
		}
	}

	return nil
}

// Retrieve reads a stored file
func (l *LocalArchive) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, newStorageError("retrieve", key, err)
	}

	data, err := os.ReadFile(l.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newStorageError("retrieve", key, ErrFileNotFound)
		}
		return nil, newStorageError("retrieve", key, err)
	}
	return data, nil
}

// Delete removes a file and its metadata sidecar
func (l *LocalArchive) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return newStorageError("delete", key, err)
	}

	if err := os.Remove(l.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newStorageError("delete", key, ErrFileNotFound)
		}
		return newStorageError("delete", key, err)
	}
	os.Remove(l.Path(key) + metadataSuffix)
	return nil
}

// Exists reports whether key is stored
func (l *LocalArchive) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, newStorageError("exists", key, err)
	}

	if _, err := os.Stat(l.Path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, newStorageError("exists", key, err)
	}
	return true, nil
}

// List walks the archive and returns files under prefix, newest first
func (l *LocalArchive) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	files := []FileMetadata{}

	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(path, metadataSuffix) || strings.HasSuffix(path, ".tmp") {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		file := FileMetadata{
			Key:          key,
			Size:         info.Size(),
			ContentType:  contentTypeFor(key),
			LastModified: info.ModTime().UTC(),
		}
		if meta, err := l.readMetadata(key); err == nil {
			file.Metadata = meta
			if ct := meta["content-type"]; ct != "" {
				file.ContentType = ct
			}
		}

		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, newStorageError("list", prefix, err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].LastModified.Equal(files[j].LastModified) {
			return files[i].Key < files[j].Key
		}
		return files[i].LastModified.After(files[j].LastModified)
	})
	return files, nil
}

// Close is a no-op for the local archive
func (l *LocalArchive) Close() error {
	return nil
}

func (l *LocalArchive) writeMetadata(key string, meta map[string]string) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(l.Path(key)+metadataSuffix, data, 0644)
}

func (l *LocalArchive) readMetadata(key string) (map[string]string, error) {
	data, err := os.ReadFile(l.Path(key) + metadataSuffix)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// validateKey rejects empty keys and anything escaping the base directory
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, metadataSuffix) {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func withContentType(meta map[string]string, contentType string) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["content-type"] = contentType
	return out
}
