// Package minio stores odatasql config files in MinIO or any other
// S3-compatible service.
package minio

import (
	"bytes"
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/odatasql/internal/errs"
	"github.com/koustreak/odatasql/internal/filestore"
)

// Driver implements filestore.Store. Safe for concurrent use.
type Driver struct {
	client *miniogo.Client
}

// New builds a client for cfg and pings the server before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "object store endpoint is not configured")
	}

	host, secure := cfg.HostPort()
	client, err := miniogo.New(host, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to create object store client", err)
	}

	d := &Driver{client: client}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping lists buckets. Credentials scoped to a single bucket are refused
// the listing, but the refusal still proves the server answered.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err = mapError(err, "object store ping failed"); errs.IsPermissionDenied(err) {
		return nil
	}
	return err
}

// Close is a no-op; the client keeps no dedicated connections.
func (d *Driver) Close() error { return nil }

func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get "+key)
	}

	// The request is lazy; Stat surfaces NoSuchKey before the first read.
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapError(err, "failed to get "+key)
	}
	return &object{ReadCloser: obj, info: toInfo(stat)}, nil
}

func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat "+key)
	}
	return toInfo(stat), nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	opts := miniogo.PutObjectOptions{ContentType: contentType}
	if _, err := d.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return mapError(err, "failed to put "+key)
	}
	return nil
}

func toInfo(stat miniogo.ObjectInfo) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }

var _ filestore.Store = (*Driver)(nil)
