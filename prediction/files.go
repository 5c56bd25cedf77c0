package prediction

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore keeps raw uploads on local disk.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the uploads directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// SafeName strips any directory components from a client-supplied filename.
func SafeName(filename string) string {
	return filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, "\\", "/")))
}

// Save writes r to <uuid-hex>_<basename> and returns the stored path.
func (f *FileStore) Save(filename string, r io.Reader) (string, error) {
	stored := strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + SafeName(filename)
	path := filepath.Join(f.dir, stored)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", stored, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", stored, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %s: %w", stored, err)
	}

	return path, nil
}
