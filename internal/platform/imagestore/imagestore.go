// Package imagestore keeps book cover images on local disk.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/bookshelf-api/internal/platform/logger"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxWidth is the width covers are scaled down to.
const MaxWidth = 500

// jpegQuality is used when re-encoding resized JPEG covers.
const jpegQuality = 80

var (
	// ErrUnsupportedType is returned for files that are not JPEG, PNG or WebP.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrInvalidImage is returned when the content claims an image type but cannot be decoded.
	ErrInvalidImage = errors.New("invalid image data")

	// ErrEmptyImage is returned when no image bytes were provided.
	ErrEmptyImage = errors.New("empty image")
)

// Store persists cover images and returns paths relative to the public upload root.
type Store interface {
	// Save stores the image read from r under a name derived from filename
	// and returns its relative path (e.g. "uploads/1700000000000-dune.jpg").
	Save(ctx context.Context, filename string, r io.Reader) (string, error)

	// Delete removes a previously saved image. Missing files are not an error.
	Delete(ctx context.Context, relPath string) error
}

// DiskStore implements Store on the local filesystem.
type DiskStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
	logger    *slog.Logger
}

// Ensure DiskStore implements Store interface
var _ Store = (*DiskStore)(nil)

// NewDiskStore creates the upload directory if needed and returns a store
// writing into it. Saved paths are prefixed with the directory's base name,
// which is also the URL prefix the files are served under.
func NewDiskStore(dir string, logger *slog.Logger) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStore{
		dir:       dir,
		urlPrefix: filepath.Base(filepath.Clean(dir)),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "image_store")),
	}, nil
}

// Dir returns the directory images are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// URLPrefix returns the first segment of every saved path. The directory
// should be served under "/" + URLPrefix().
func (s *DiskStore) URLPrefix() string {
	return s.urlPrefix
}

// Save implements Store.Save. JPEG and PNG images wider than MaxWidth are
// scaled down preserving the aspect ratio; WebP images are stored as uploaded.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	mtype := mimetype.Detect(data)
	var out []byte
	switch {
	case mtype.Is("image/jpeg"), mtype.Is("image/png"):
		out, err = shrink(data, mtype.Is("image/png"))
	case mtype.Is("image/webp"):
		_, err = webp.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		out = data
	default:
		log.Debug("rejected upload", slog.String("mime", mtype.String()))
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), SanitizeName(filename, mtype.Extension()))
	if err := os.WriteFile(filepath.Join(s.dir, name), out, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	relPath := path.Join(s.urlPrefix, name)
	log.Info("image stored",
		slog.String("path", relPath),
		slog.String("mime", mtype.String()),
		slog.Int("bytes", len(out)))
	return relPath, nil
}

// Delete implements Store.Delete. Only the base name of relPath is used, so
// the call can never reach outside the upload directory.
func (s *DiskStore) Delete(ctx context.Context, relPath string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	name := path.Base(strings.ReplaceAll(relPath, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	log.Debug("image deleted", slog.String("path", relPath))
	return nil
}

// shrink decodes a JPEG or PNG and scales it down to MaxWidth. Images that are
// already narrow enough are returned unchanged.
func shrink(data []byte, isPNG bool) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= MaxWidth {
		return data, nil
	}

	height := bounds.Dy() * MaxWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, MaxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if isPNG {
		err = png.Encode(&buf, dst)
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// SanitizeName reduces a client file name to lower-case letters, digits,
// dots, dashes and underscores, with spaces turned into underscores. The
// extension is replaced by ext when ext is not empty.
func SanitizeName(filename, ext string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if ext != "" {
		base = strings.TrimSuffix(base, path.Ext(base))
	}

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "image"
	}
	return name + ext
}
