package storage

import (
	"context"
	"strings"
)

type Reader interface {
	// Exists reports whether an object is present at the given location
	Exists(ctx context.Context, url string) (bool, error)
	// Get retrieves data from the given location
	Get(ctx context.Context, url string) ([]byte, error)
}

type Writer interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
}

type Storage interface {
	Reader
	Writer
}

const s3Scheme = "s3://"

// IsS3 reports whether url addresses an S3 object rather than a local file.
func IsS3(url string) bool {
	return strings.HasPrefix(url, s3Scheme)
}
