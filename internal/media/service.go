package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
)

// allowedMimeTypes restricts uploads to photos. Trip milestones, PODs and
// fuel receipts are all camera captures.
var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
}

// Photo is the stored photo's metadata.
type Photo struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Key      string    `json:"key"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`
}

// Service stores and serves trip and fuel photos.
type Service struct {
	Driver StorageDriver
}

func NewService(driver StorageDriver) *Service {
	return &Service{Driver: driver}
}

// Store saves a photo under the category prefix and returns its metadata.
// Only image content types are accepted.
func (s *Service) Store(ctx context.Context, category Category, filename string, reader io.Reader, size int64, mime string) (*Photo, error) {
	if !category.Valid() {
		return nil, domain.NewValidationError("category", fmt.Sprintf("unknown photo category %q", category))
	}
	mime = strings.TrimSpace(strings.ToLower(mime))
	if _, ok := allowedMimeTypes[mime]; !ok {
		return nil, domain.NewValidationError("file", fmt.Sprintf("unsupported content type %q, only images are accepted", mime))
	}

	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", category, id.String(), ext)

	if err := s.Driver.Save(ctx, key, reader, mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned photo", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	photo := &Photo{
		ID:       id,
		Name:     filename,
		Key:      key,
		URL:      url,
		Size:     size,
		MimeType: mime,
	}

	slog.InfoContext(ctx, "photo stored", "id", id, "key", key)
	return photo, nil
}

// Open retrieves the photo content and its MIME type.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.Driver.Get(ctx, key)
}
