package offline

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/adapters/remote"
	"cannabistrack-api/internal/adapters/storage"
)

// Downloader fetches rendered exports from the server
type Downloader interface {
	Export(ctx context.Context, entity, format string) (*remote.Download, error)
}

// Exporter downloads server exports into a local archive
type Exporter struct {
	source  Downloader
	archive storage.Archive
	logger  *logrus.Logger
	now     func() time.Time
}

// NewExporter creates an exporter writing into archive
func NewExporter(source Downloader, archive storage.Archive, logger *logrus.Logger) *Exporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Exporter{source: source, archive: archive, logger: logger, now: time.Now}
}

// Export downloads one entity export and stores it under entity/filename.
// It returns the archive key.
func (e *Exporter) Export(ctx context.Context, entity, format string) (string, error) {
	download, err := e.source.Export(ctx, entity, format)
	if err != nil {
		return "", fmt.Errorf("failed to download %s export: %w", entity, err)
	}

	key := path.Join(entity, path.Base(download.Filename))
	err = e.archive.Store(ctx, key, download.Data, &storage.StoreOptions{
		ContentType: download.ContentType,
		Overwrite:   true,
		Metadata: map[string]string{
			"entity":       entity,
			"format":       format,
			"downloadedAt": e.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s export: %w", entity, err)
	}

	e.logger.WithFields(logrus.Fields{
		"entity": entity,
		"format": format,
		"key":    key,
		"bytes":  len(download.Data),
	}).Info("Export archived")
	return key, nil
}

// History lists archived exports of one entity, newest first; an empty entity lists all
func (e *Exporter) History(ctx context.Context, entity string) ([]storage.FileMetadata, error) {
	prefix := ""
	if entity != "" {
		prefix = entity + "/"
	}
	return e.archive.List(ctx, prefix)
}
