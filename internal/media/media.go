// Package media stores avatar and cover images and returns their public URL.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"tubeauth/internal/pkg/apperr"

	"github.com/google/uuid"
)

const MaxFileSize = 10 * 1024 * 1024 // 10 MB

var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrEmptyFile       = apperr.New(apperr.KindInvalidInput, "Uploaded file is empty")
	ErrFileTooLarge    = apperr.New(apperr.KindInvalidInput, "Uploaded file exceeds 10MB")
	ErrInvalidMimeType = apperr.New(apperr.KindInvalidInput, "Only JPEG, PNG, GIF and WEBP images are allowed")
)

// Store persists an uploaded file and returns the URL it is served from.
type Store interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (string, error)
}

type inspected struct {
	body     multipart.File
	mimeType string
	key      string
}

// inspect validates size and content type and picks the object key
// images/YYYY/MM/DD/<uuid>_<name><ext>. The caller closes body.
func inspect(fileHeader *multipart.FileHeader, now time.Time) (*inspected, error) {
	if fileHeader == nil || fileHeader.Size == 0 {
		return nil, ErrEmptyFile
	}
	if fileHeader.Size > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, uploadFailed(fmt.Errorf("open file: %w", err))
	}

	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	mimeType := strings.Split(http.DetectContentType(buf[:n]), ";")[0]
	ext, ok := allowedMimeTypes[mimeType]
	if !ok {
		_ = file.Close()
		return nil, ErrInvalidMimeType
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, uploadFailed(fmt.Errorf("rewind file: %w", err))
	}

	key := fmt.Sprintf("images/%d/%02d/%02d/%s_%s%s",
		now.Year(), now.Month(), now.Day(), uuid.NewString(), sanitizeName(fileHeader.Filename), ext)

	return &inspected{body: file, mimeType: mimeType, key: key}, nil
}

func uploadFailed(err error) error {
	return apperr.Wrap(apperr.KindUnavailable, "Error while uploading", err)
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "_" {
		return "file"
	}
	return name
}
