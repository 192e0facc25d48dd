package media

import (
	"context"
	"io"
	"time"
)

// Category is the kind of photo being stored. It becomes the key prefix so
// milestone, POD and receipt photos live in separate folders.
type Category string

const (
	CategoryMilestones Category = "milestones"
	CategoryPOD        Category = "pod"
	CategoryReceipts   Category = "receipts"
)

// Valid reports whether the category is one of the known photo kinds.
func (c Category) Valid() bool {
	switch c {
	case CategoryMilestones, CategoryPOD, CategoryReceipts:
		return true
	}
	return false
}

// StorageDriver defines how we interact with the binary storage
type StorageDriver interface {
	// Save writes the content to the storage under the given key
	Save(ctx context.Context, key string, body io.Reader, contentType string) error

	// Get returns a ReadCloser to stream the file back and its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)

	// Delete removes the file
	Delete(ctx context.Context, key string) error

	// GenerateURL returns a public-facing URL
	GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
