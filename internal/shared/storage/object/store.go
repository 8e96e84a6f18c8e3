package object

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"notes-backend/internal/shared/util"
)

// SniffLen is the number of leading bytes read to detect the content type.
const SniffLen = 3072

// Saved describes a stored object.
type Saved struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (Saved, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// NewKey builds a unique storage key of the form namespace/YYYY/MM/DD/<uuid>_<name>.
func NewKey(namespace, fileName string, now time.Time) (string, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	if namespace == "" {
		namespace = "uploads"
	}
	day := now.UTC().Format("2006/01/02")
	return path.Join(namespace, day, uuid.NewString()+"_"+sanitized), nil
}

// DetectMime returns the content type of the sniffed header bytes.
func DetectMime(head []byte) string {
	return mimetype.Detect(head).String()
}
