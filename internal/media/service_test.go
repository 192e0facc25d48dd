package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
)

// MockDriver implements StorageDriver for testing
type MockDriver struct {
	SavedKey       string
	SavedBody      []byte
	GenerateURLErr error
	DeleteCalled   bool
	DeleteKey      string
}

func (m *MockDriver) Save(ctx context.Context, key string, body io.Reader, contentType string) error {
	m.SavedKey = key
	content, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.SavedBody = content
	return nil
}

func (m *MockDriver) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(m.SavedBody)), "image/jpeg", nil
}

func (m *MockDriver) Delete(ctx context.Context, key string) error {
	m.DeleteCalled = true
	m.DeleteKey = key
	return nil
}

func (m *MockDriver) GenerateURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if m.GenerateURLErr != nil {
		return "", m.GenerateURLErr
	}
	return "/media/" + key, nil
}

func TestStore(t *testing.T) {
	mock := &MockDriver{}
	service := NewService(mock)

	ctx := context.Background()
	content := []byte("image data")

	photo, err := service.Store(ctx, CategoryMilestones, "pickup.jpg", bytes.NewReader(content), int64(len(content)), "image/jpeg")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if !strings.HasPrefix(photo.Key, "milestones/") {
		t.Errorf("expected key under milestones/, got %s", photo.Key)
	}
	if !strings.HasSuffix(photo.Key, ".jpg") {
		t.Errorf("expected key to keep the extension, got %s", photo.Key)
	}
	if !bytes.Equal(mock.SavedBody, content) {
		t.Error("saved body does not match input")
	}
	if photo.URL != "/media/"+mock.SavedKey {
		t.Errorf("unexpected URL: %s", photo.URL)
	}
}

func TestStore_RejectsNonImages(t *testing.T) {
	mock := &MockDriver{}
	service := NewService(mock)

	_, err := service.Store(context.Background(), CategoryReceipts, "doc.pdf", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	if err == nil {
		t.Fatal("expected Store to reject a non-image content type")
	}
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected a validation error, got %v", err)
	}
	if mock.SavedKey != "" {
		t.Error("nothing should have been saved")
	}
}

func TestStore_RejectsUnknownCategory(t *testing.T) {
	service := NewService(&MockDriver{})

	_, err := service.Store(context.Background(), Category("selfies"), "a.jpg", bytes.NewReader(nil), 0, "image/jpeg")
	if err == nil {
		t.Fatal("expected Store to reject an unknown category")
	}
}

func TestStore_GenerateURLFailure(t *testing.T) {
	mock := &MockDriver{
		GenerateURLErr: io.ErrUnexpectedEOF,
	}
	service := NewService(mock)

	_, err := service.Store(context.Background(), CategoryPOD, "pod.png", bytes.NewReader([]byte("png")), 3, "image/png")
	if err == nil {
		t.Fatal("expected Store to fail when GenerateURL fails")
	}
	if !mock.DeleteCalled {
		t.Error("expected Delete to be called to cleanup the orphaned photo")
	}
	if mock.DeleteKey != mock.SavedKey {
		t.Errorf("expected Delete to be called with key %s, got %s", mock.SavedKey, mock.DeleteKey)
	}
}

func TestOpen(t *testing.T) {
	mock := &MockDriver{
		SavedBody: []byte("photo content"),
	}
	service := NewService(mock)

	reader, contentType, err := service.Open(context.Background(), "receipts/abc.jpg")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reader.Close()

	if contentType != "image/jpeg" {
		t.Errorf("expected content type image/jpeg, got %s", contentType)
	}
	content, _ := io.ReadAll(reader)
	if !bytes.Equal(content, mock.SavedBody) {
		t.Error("opened content does not match saved body")
	}
}
