// Package storage keeps uploaded image files and their thumbnails on local disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"picshare/internal/config"
	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	JPEGQuality = 82
	WebPQuality = 70

	DefaultThumbnailSize = 200
)

var ErrInvalidRef = errors.New("invalid storage reference")

// LocalStore writes files under dir and hands out references of the form
// urlPrefix + "/" + filename, which the HTTP layer serves statically.
type LocalStore struct {
	dir         string
	urlPrefix   string
	thumbSize   int
	thumbFormat string
}

// New creates the upload directory when missing and returns a store rooted there.
func New(dir, urlPrefix string, thumbSize int, thumbFormat string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if thumbSize <= 0 {
		thumbSize = DefaultThumbnailSize
	}
	if thumbFormat != "webp" {
		thumbFormat = "jpg"
	}
	return &LocalStore{
		dir:         dir,
		urlPrefix:   "/" + strings.Trim(urlPrefix, "/"),
		thumbSize:   thumbSize,
		thumbFormat: thumbFormat,
	}, nil
}

// NewFromConfig wires the store from the upload settings in cfg.
func NewFromConfig(cfg *config.Config) (*LocalStore, error) {
	return New(cfg.UploadDir, cfg.UploadURLPrefix, cfg.ThumbnailSize, cfg.ThumbnailFormat)
}

// Dir is the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// URLPrefix is the path under which stored files are served.
func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

// Save sniffs data, rejects anything that is not a JPEG, PNG, GIF or WebP
// image and writes it under a fresh random name keeping a matching extension.
func (s *LocalStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	ext, ok := imageExtension(http.DetectContentType(data))
	if !ok {
		return "", models.NewValidationError("Unsupported image type")
	}

	filename := uuid.New().String() + ext
	if err := writeBytesToFile(filepath.Join(s.dir, filename), data); err != nil {
		return "", models.NewInternalError(err)
	}
	middleware.Logger.Debug("stored upload",
		slog.String("original_name", name),
		slog.String("file", filename),
		slog.Int("bytes", len(data)),
	)
	return s.urlPrefix + "/" + filename, nil
}

// Thumbnail center-crops the stored image to a square and scales it to the
// configured size. Any decode or encode failure is a processing error.
func (s *LocalStore) Thumbnail(ctx context.Context, ref string) (thumbRef string, err error) {
	_, span := observability.StartSpan(ctx, "storage.Thumbnail",
		attribute.String("storage.ref", ref),
		attribute.Int("thumbnail.size", s.thumbSize),
		attribute.String("thumbnail.format", s.thumbFormat),
	)
	defer func() { observability.EndSpan(span, err) }()

	return s.renderThumbnail(ref)
}

func (s *LocalStore) renderThumbnail(ref string) (string, error) {
	src, err := s.resolve(ref)
	if err != nil {
		return "", models.NewProcessingError("Failed to generate thumbnail", err)
	}

	// #nosec G304: src is resolved inside s.dir
	f, err := os.Open(src)
	if err != nil {
		return "", models.NewProcessingError("Failed to generate thumbnail", err)
	}
	defer func() { _ = f.Close() }()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return "", models.NewProcessingError("Failed to generate thumbnail", err)
	}

	thumb := coverSquare(decoded, s.thumbSize)

	var encoded []byte
	switch s.thumbFormat {
	case "webp":
		encoded, err = encodeWebP(thumb, WebPQuality)
	default:
		encoded, err = encodeJPEG(thumb, JPEGQuality)
	}
	if err != nil {
		return "", models.NewProcessingError("Failed to generate thumbnail", err)
	}

	filename := "thumb-" + uuid.New().String() + "." + s.thumbFormat
	if err := writeBytesToFile(filepath.Join(s.dir, filename), encoded); err != nil {
		return "", models.NewProcessingError("Failed to generate thumbnail", err)
	}
	return s.urlPrefix + "/" + filename, nil
}

// Remove deletes the files behind refs. Missing files and foreign references
// are logged and skipped.
func (s *LocalStore) Remove(refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		p, err := s.resolve(ref)
		if err != nil {
			middleware.Logger.Warn("refusing to remove file", slog.String("ref", ref), slog.String("error", err.Error()))
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			middleware.Logger.Warn("failed to remove stored file", slog.String("ref", ref), slog.String("error", err.Error()))
		}
	}
}

// resolve maps a reference back to a path inside s.dir.
func (s *LocalStore) resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, s.urlPrefix+"/") {
		return "", ErrInvalidRef
	}
	name := strings.TrimPrefix(ref, s.urlPrefix+"/")
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.dir, name), nil
}

func imageExtension(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/gif":
		return ".gif", true
	case "image/webp":
		return ".webp", true
	default:
		return "", false
	}
}

func coverSquare(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side <= 0 {
		return image.NewRGBA(image.Rect(0, 0, size, size))
	}
	crop := image.Rect(0, 0, side, side).Add(image.Point{
		X: b.Min.X + (b.Dx()-side)/2,
		Y: b.Min.Y + (b.Dy()-side)/2,
	})

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
