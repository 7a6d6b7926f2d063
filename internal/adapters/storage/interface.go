// Package storage keeps downloaded export files on disk.
package storage

import (
	"context"
	"time"
)

// FileMetadata describes an archived file
type FileMetadata struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType"`
	LastModified time.Time         `json:"lastModified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// StoreOptions controls how a file is written
type StoreOptions struct {
	ContentType string
	Metadata    map[string]string
	Overwrite   bool
}

// Archive stores export files under slash-separated keys
type Archive interface {
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the files under prefix, newest first
	List(ctx context.Context, prefix string) ([]FileMetadata, error)
	Close() error
}
