package capture

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/eleven-am/shelfscan/internal/detection"
	"github.com/eleven-am/shelfscan/internal/shared"
)

const (
	DefaultDir       = "./static/captures"
	DefaultURLPrefix = "/static/captures"
	filePattern      = "capture_*.png"
)

type Config struct {
	Dir       string
	URLPrefix string
}

// Writer persists annotated captures as PNG files and hands back the URL the
// static file server exposes them under.
type Writer struct {
	dir       string
	urlPrefix string
	logger    *slog.Logger
}

func NewWriter(cfg Config, logger *slog.Logger) (*Writer, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = DefaultURLPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}

	return &Writer{
		dir:       cfg.Dir,
		urlPrefix: "/" + strings.Trim(cfg.URLPrefix, "/"),
		logger:    logger.With("component", "capture-writer"),
	}, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// FileName builds capture_<hex>.png for products and capture_<domain>_<hex>.png
// for every other domain.
func FileName(domain detection.Domain) string {
	prefix := "capture_"
	if domain != detection.DomainProducts && domain != "" {
		prefix += string(domain) + "_"
	}
	return shared.NewID(prefix) + ".png"
}

func (w *Writer) Save(domain detection.Domain, img image.Image, dets []detection.Detection) (string, error) {
	annotated := Annotate(img, dets)
	name := FileName(domain)

	tmp, err := os.CreateTemp(w.dir, ".pending-*.png")
	if err != nil {
		return "", fmt.Errorf("create capture file: %w", err)
	}
	tmpName := tmp.Name()

	if err := png.Encode(tmp, annotated); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("encode capture: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close capture file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(w.dir, name)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("publish capture file: %w", err)
	}

	w.logger.Debug("capture saved", "domain", domain, "file", name, "detections", len(dets))
	return path.Join(w.urlPrefix, name), nil
}
