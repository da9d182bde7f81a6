package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultBaseDir    = "./uploads"
	DefaultStaticBase = "/static/uploads"
)

// LocalStore writes files under baseDir; they are served from staticBase.
type LocalStore struct {
	baseDir    string
	staticBase string
	now        func() time.Time
}

func NewLocalStore(baseDir, staticBase string) *LocalStore {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if staticBase == "" {
		staticBase = DefaultStaticBase
	}
	return &LocalStore{baseDir: baseDir, staticBase: strings.TrimRight(staticBase, "/"), now: time.Now}
}

func (s *LocalStore) BaseDir() string    { return s.baseDir }
func (s *LocalStore) StaticBase() string { return s.staticBase }

func (s *LocalStore) Upload(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	f, err := inspect(fileHeader, s.now())
	if err != nil {
		return "", err
	}
	defer f.body.Close()

	if err := ctx.Err(); err != nil {
		return "", uploadFailed(err)
	}

	absPath := filepath.Join(s.baseDir, filepath.FromSlash(f.key))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", uploadFailed(fmt.Errorf("create upload directory: %w", err))
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return "", uploadFailed(fmt.Errorf("create file: %w", err))
	}
	defer dst.Close()

	if _, err := io.Copy(dst, f.body); err != nil {
		_ = os.Remove(absPath)
		return "", uploadFailed(fmt.Errorf("write file: %w", err))
	}

	return s.staticBase + "/" + f.key, nil
}
