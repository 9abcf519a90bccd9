package constants

import "strings"

// Formats handled by the text extractor.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// MaxUploadBytes caps a single claim document.
const MaxUploadBytes int64 = 10 << 20

// AllowedExtensions holds the file extensions accepted for claim documents.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
	"tiff": {},
	"gif":  {},
}

var mediaTypeAliases = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpeg",
	"image/jpg":       "jpg",
	"image/png":       "png",
	"image/bmp":       "bmp",
	"image/x-ms-bmp":  "bmp",
	"image/tiff":      "tiff",
	"image/gif":       "gif",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// ParseMediaType maps an extension or MIME type onto a canonical extension.
// ok is false when the type is not one of AllowedExtensions.
func ParseMediaType(mediaType string) (string, bool) {
	mt := NormalizeExt(mediaType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if alias, ok := mediaTypeAliases[mt]; ok {
		mt = alias
	}
	_, ok := AllowedExtensions[mt]
	return mt, ok
}

// MapExtToFormat returns PDF or IMAGE for an allowed extension, "" otherwise.
func MapExtToFormat(ext string) string {
	ext, ok := ParseMediaType(ext)
	if !ok {
		return ""
	}
	if ext == "pdf" {
		return PDF
	}
	return IMAGE
}
