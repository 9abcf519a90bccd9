package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// extractImage validates the image header then OCRs the single page.
func (e *Extractor) extractImage(ctx context.Context, data []byte, ext string) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", failed("undecodable image", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", failed(fmt.Sprintf("empty %s image", format), nil)
	}

	tmpDir, err := os.MkdirTemp("", "fra-img-*")
	if err != nil {
		return "", err
	}
	defer e.removeAll(tmpDir)

	path := filepath.Join(tmpDir, "page."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	txt, err := e.engine.Recognize(ctx, path)
	if err != nil {
		return "", failed("image ocr", err)
	}
	e.logger.Debug("image ocr ok", "format", format, "width", cfg.Width, "height", cfg.Height, "chars", len(txt))
	return Normalize(txt), nil
}

func (e *Extractor) removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
	}
}
