package filestore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/odatasql/internal/errs"
)

// MaxConfigSize bounds how much ReadAll will download.
const MaxConfigSize = 1 << 20

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket.
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	ContentType  string
	ETag         string
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// Location addresses one object.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseLocation parses "s3://bucket/key". The key may contain slashes.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errs.Wrap(errs.ErrKindInvalidInput, "invalid object location", err)
	}
	if u.Scheme != "s3" {
		return Location{}, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("object location %q must use the s3:// scheme", raw))
	}

	loc := Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}
	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("object location %q needs both a bucket and a key", raw))
	}
	return loc, nil
}

// ReadAll downloads a whole object of at most MaxConfigSize bytes.
func ReadAll(ctx context.Context, s Store, bucket, key string) ([]byte, error) {
	obj, err := s.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	if info := obj.Info(); info != nil && info.Size > MaxConfigSize {
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("object %s is %d bytes, limit is %d", key, info.Size, MaxConfigSize))
	}

	data, err := io.ReadAll(io.LimitReader(obj, MaxConfigSize+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to read object", err)
	}
	if len(data) > MaxConfigSize {
		return nil, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("object %s exceeds %d bytes", key, MaxConfigSize))
	}
	return data, nil
}
