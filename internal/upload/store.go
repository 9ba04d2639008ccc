package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypeJPG  = "image/jpg"
	MIMETypePNG  = "image/png"

	filenamePrefix = "image"

	// multipart framing allowed on top of the image size limit
	formOverheadBytes = 1 << 20
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidType      = errors.New("invalid file type")
	ErrInvalidExtension = errors.New("invalid file extension")
)

var (
	allowedTypes = []string{MIMETypeJPEG, MIMETypeJPG, MIMETypePNG}

	allowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
)

// Store writes product images to a local directory served under /uploads/.
type Store struct {
	dir      string
	maxBytes int64
	maxWidth int
	logger   *logrus.Logger
	now      func() time.Time
}

// NewStore creates the upload directory if needed.
// maxWidth of 0 disables downscaling.
func NewStore(dir string, maxBytes int64, maxWidth int, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		maxWidth: maxWidth,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Dir is the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// BodyLimit caps request bodies at the image limit plus form overhead.
// An oversized body fails with the same error as an oversized image.
func (s *Store) BodyLimit() echo.MiddlewareFunc {
	limit := echomw.BodyLimit(fmt.Sprintf("%dB", s.maxBytes+formOverheadBytes))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := limit(next)
		return func(c echo.Context) error {
			return s.TranslateError(h(c))
		}
	}
}

// Save validates the uploaded image and stores it under a generated name, which it returns.
func (s *Store) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fh.Size > s.maxBytes {
		return "", ErrFileTooLarge
	}
	if !isAllowedType(fh.Header.Get("Content-Type")) {
		return "", ErrInvalidType
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", ErrInvalidExtension
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrFileTooLarge
	}

	detected := mimetype.Detect(data)
	var ctype string
	switch {
	case detected.Is(MIMETypeJPEG):
		ctype = MIMETypeJPEG
	case detected.Is(MIMETypePNG):
		ctype = MIMETypePNG
	default:
		return "", ErrInvalidType
	}

	if s.maxWidth > 0 {
		resized, changed, err := downscale(data, ctype, s.maxWidth)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidType, err)
		}
		if changed {
			s.logger.WithFields(logrus.Fields{
				"original_bytes": len(data),
				"resized_bytes":  len(resized),
			}).Debug("upload downscaled")
			data = resized
		}
	}

	filename := fmt.Sprintf("%s-%d-%s%s", filenamePrefix, s.now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
	if err := s.write(filename, data); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *Store) write(filename string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close upload: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod upload: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename upload: %w", err)
	}
	return nil
}

// Remove deletes a stored image. Absolute URLs and missing files are ignored.
func (s *Store) Remove(filename string) error {
	if filename == "" || model.IsAbsoluteURL(filename) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(filename)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// TranslateError turns upload failures into client-facing validation errors.
// Errors it does not recognise are returned unchanged.
func (s *Store) TranslateError(err error) error {
	switch {
	case err == nil:
		return nil
	case tooLarge(err):
		return apperrors.Validation(fmt.Sprintf("File size too large. Maximum size is %dMB", s.maxBytes/(1024*1024)))
	case errors.Is(err, ErrInvalidType):
		return apperrors.Validation("Invalid file type. Allowed types are: " + allowedTypeNames())
	case errors.Is(err, ErrInvalidExtension):
		return apperrors.Validation("Invalid file extension. Allowed extensions are: jpg, jpeg, png")
	default:
		return err
	}
}

func tooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, ErrFileTooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		return true
	case errors.As(err, &maxBytesErr):
		return true
	case errors.As(err, &httpErr):
		return httpErr.Code == http.StatusRequestEntityTooLarge
	}
	return false
}

func isAllowedType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range allowedTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

func allowedTypeNames() string {
	names := make([]string, 0, len(allowedTypes))
	for _, t := range allowedTypes {
		names = append(names, strings.TrimPrefix(t, "image/"))
	}
	return strings.Join(names, ", ")
}
