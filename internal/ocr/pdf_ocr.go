package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// pdfPageCount opens the document structure without rendering it.
// The pdf reader panics on some malformed inputs, so panics become errors.
func pdfPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return r.NumPage(), nil
}

// extractPDF rasterizes and OCRs every page independently. A page that fails
// contributes "" and a warning; results keep page order.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) ([]string, []string, error) {
	n, err := pdfPageCount(data)
	if err != nil {
		return nil, nil, failed("pdf", err)
	}
	if n <= 0 {
		return nil, nil, failed("pdf has no pages", nil)
	}

	var warnings []string
	if e.cfg.MaxPages > 0 && n > e.cfg.MaxPages {
		warnings = append(warnings, fmt.Sprintf("document has %d pages; only the first %d were processed", n, e.cfg.MaxPages))
		n = e.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp("", "fra-pdf-*")
	if err != nil {
		return nil, nil, err
	}
	defer e.removeAll(tmpDir)

	in := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, nil, err
	}

	pages := make([]string, n)
	pageWarn := make([]string, n)

	var g errgroup.Group
	g.SetLimit(e.cfg.PageWorkers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			txt, err := e.ocrPDFPage(ctx, in, tmpDir, i+1)
			if err != nil {
				e.logger.Warn("pdf page ocr failed", "page", i+1, "error", err)
				pageWarn[i] = fmt.Sprintf("page %d: %v", i+1, err)
				return nil
			}
			pages[i] = txt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, failed("pdf ocr interrupted", err)
	}

	for _, w := range pageWarn {
		if w != "" {
			warnings = append(warnings, w)
		}
	}
	return pages, warnings, nil
}

func (e *Extractor) ocrPDFPage(ctx context.Context, in, dir string, page int) (string, error) {
	prefix := filepath.Join(dir, fmt.Sprintf("page-%04d", page))
	p := strconv.Itoa(page)
	// pdftoppm -f k -l k -r 300 -png -singlefile <in.pdf> <prefix>  => <prefix>.png
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", p, "-l", p, "-r", strconv.Itoa(e.cfg.DPI), "-png", "-singlefile", in, prefix)
	if err != nil {
		return "", toolError("pdftoppm", errb, err)
	}
	img := prefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return "", fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	txt, err := e.engine.Recognize(ctx, img)
	if err != nil {
		return "", err
	}
	return Normalize(txt), nil
}
