package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// AllowedExt checks if a file extension is one of the accepted claim document types.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// ValidateFilename returns the normalized extension of name, or an
// ErrUnsupportedFormat error.
func ValidateFilename(name string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if ext == "" || !AllowedExt(ext) {
		return "", common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrUnsupportedFormat)
	}
	return ext, nil
}

// ReadDocument reads at most maxBytes from r and builds the document and its
// reference. Payloads over the limit fail with ErrFileTooLarge; empty ones
// with ErrInvalidInput.
func ReadDocument(filename string, r io.Reader, maxBytes int64) (entity.RawDocument, entity.DocumentRef, error) {
	ext, err := ValidateFilename(filename)
	if err != nil {
		return entity.RawDocument{}, entity.DocumentRef{}, err
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return entity.RawDocument{}, entity.DocumentRef{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if n > maxBytes {
		return entity.RawDocument{}, entity.DocumentRef{}, common.NewAppError(common.CodeFileTooLarge,
			fmt.Sprintf("%s exceeds %d bytes", filepath.Base(filename), maxBytes), common.ErrFileTooLarge)
	}
	if n == 0 {
		return entity.RawDocument{}, entity.DocumentRef{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("%s is empty", filepath.Base(filename)), common.ErrInvalidInput)
	}

	sum := sha256.Sum256(buf.Bytes())
	doc := entity.RawDocument{Bytes: buf.Bytes(), MediaType: ext}
	ref := entity.DocumentRef{
		Filename:    filepath.Base(filename),
		MediaType:   ext,
		ContentHash: hex.EncodeToString(sum[:]),
		SizeBytes:   n,
	}
	return doc, ref, nil
}

// ReadFile opens path and reads it with ReadDocument. The size check runs on
// the file metadata first so oversized files are never read.
func ReadFile(path string, maxBytes int64) (entity.RawDocument, entity.DocumentRef, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.RawDocument{}, entity.DocumentRef{}, fmt.Errorf("abs path: %w", err)
	}
	if _, err := ValidateFilename(abs); err != nil {
		return entity.RawDocument{}, entity.DocumentRef{}, err
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	info, err := os.Stat(abs)
	if err != nil {
		return entity.RawDocument{}, entity.DocumentRef{}, notFoundOrErr(abs, err)
	}
	if info.IsDir() {
		return entity.RawDocument{}, entity.DocumentRef{}, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("%s is a directory", abs), common.ErrInvalidInput)
	}
	if info.Size() > maxBytes {
		return entity.RawDocument{}, entity.DocumentRef{}, common.NewAppError(common.CodeFileTooLarge,
			fmt.Sprintf("%s exceeds %d bytes", info.Name(), maxBytes), common.ErrFileTooLarge)
	}

	f, err := os.Open(abs)
	if err != nil {
		return entity.RawDocument{}, entity.DocumentRef{}, notFoundOrErr(abs, err)
	}
	defer f.Close()

	doc, ref, err := ReadDocument(abs, f, maxBytes)
	if err != nil {
		return doc, ref, err
	}
	ref.SourcePath = abs
	return doc, ref, nil
}

func notFoundOrErr(path string, err error) error {
	if os.IsNotExist(err) {
		return common.NewAppError(common.CodeNotFound, path, common.ErrNotFound)
	}
	return fmt.Errorf("open %s: %w", path, err)
}
