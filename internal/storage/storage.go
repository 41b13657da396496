package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file not found")

// Storage holds participant document blobs. Keys are opaque to callers.
type Storage interface {
	// Store saves content under a new key scoped to ownerID and returns the key.
	Store(ctx context.Context, ownerID uuid.UUID, filename string, content io.Reader, contentType string) (string, error)
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// newKey lays keys out as owner/year/month/uuid_filename.
func newKey(ownerID uuid.UUID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%s_%s",
		ownerID.String(),
		now.Year(),
		now.Month(),
		uuid.New().String(),
		sanitizeFilename(filename),
	)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

func sanitizeFilename(filename string) string {
	return filenameReplacer.Replace(filename)
}
