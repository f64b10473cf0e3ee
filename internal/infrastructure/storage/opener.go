package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"
)

// Location identifies an import source: a local path or an object in a bucket
type Location struct {
	Raw    string
	Bucket string
	Key    string
	Path   string
}

// IsObject reports whether the location names an object-storage key
func (l Location) IsObject() bool {
	return l.Key != ""
}

// Name returns the file name used to pick a reader by extension
func (l Location) Name() string {
	if l.IsObject() {
		return path.Base(l.Key)
	}
	return l.Path
}

// ParseLocation parses "s3://bucket/key" or a local file path
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, errors.New("source location is required")
	}
	if !strings.HasPrefix(strings.ToLower(raw), "s3://") {
		return Location{Raw: raw, Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid object location %q: %w", raw, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Location{}, fmt.Errorf("invalid object location %q: want s3://bucket/key", raw)
	}
	return Location{Raw: raw, Bucket: u.Host, Key: key}, nil
}

// ObjectReader is the object-storage side of an Opener
type ObjectReader interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
}

// Opener opens import sources. Object locations need an ObjectReader.
type Opener struct {
	objects ObjectReader
}

// NewOpener creates an Opener; objects may be nil when only local files are used
func NewOpener(objects ObjectReader) *Opener {
	return &Opener{objects: objects}
}

// Exists reports whether the source can be found. Missing sources return
// false with a nil error.
func (o *Opener) Exists(ctx context.Context, loc Location) (bool, error) {
	if loc.IsObject() {
		if o.objects == nil {
			return false, errObjectStorageDisabled
		}
		return o.objects.ObjectExists(ctx, loc.Bucket, loc.Key)
	}

	info, err := os.Stat(loc.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", loc.Path)
	}
	return true, nil
}

// Open returns a reader over the source
func (o *Opener) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if loc.IsObject() {
		if o.objects == nil {
			return nil, errObjectStorageDisabled
		}
		return o.objects.Open(ctx, loc.Bucket, loc.Key)
	}
	return os.Open(loc.Path)
}

var errObjectStorageDisabled = errors.New("object storage is not configured")
