package ocr

import (
	"context"
	"strconv"
)

// Engine recognizes text in a single rasterized page.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// cliEngine shells out to the tesseract binary.
type cliEngine struct {
	bin         string
	lang        string
	tessdataDir string
	psm, oem    int
	runner      Runner
}

// NewCLIEngine returns an Engine running `tesseract <img> stdout` through r.
func NewCLIEngine(cfg Config, r Runner) Engine {
	if r == nil {
		r = execRunner{}
	}
	bin := cfg.Tesseract
	if bin == "" {
		bin = "tesseract"
	}
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	return &cliEngine{bin: bin, lang: lang, tessdataDir: cfg.TessdataDir, psm: cfg.PSM, oem: cfg.OEM, runner: r}
}

func (c *cliEngine) Name() string { return "tesseract-cli" }

func (c *cliEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", c.lang}
	if c.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(c.psm))
	}
	if c.oem > 0 {
		args = append(args, "--oem", strconv.Itoa(c.oem))
	}
	if c.tessdataDir != "" {
		args = append(args, "--tessdata-dir", c.tessdataDir)
	}
	out, errb, err := c.runner.Run(ctx, c.bin, args...)
	if err != nil {
		return "", toolError("tesseract", errb, err)
	}
	return Normalize(string(out)), nil
}
