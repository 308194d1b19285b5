// Package filestore reads and writes odatasql config files kept in an
// S3-compatible bucket, so several instances can share one config.
//
//	store, err := minio.New(ctx, cfg.Store)
//	if err != nil { ... }
//	defer store.Close()
//
//	data, err := filestore.ReadAll(ctx, store, "odatasql", "prod.yaml")
package filestore

import "context"

// Store is an object store holding config documents.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// GetObject opens the object at bucket/key. The caller closes it.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns object metadata without reading the body.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PutObject replaces the object at bucket/key with data.
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
}
