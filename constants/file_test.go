package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"pdf", "pdf", true},
		{"application/pdf", "pdf", true},
		{".JPG", "jpg", true},
		{"image/jpeg", "jpeg", true},
		{"image/png; charset=binary", "png", true},
		{"image/x-ms-bmp", "bmp", true},
		{"image/tiff", "tiff", true},
		{"gif", "gif", true},
		{"tif", "tif", false},
		{"image/tif", "image/tif", false},
		{"heic", "heic", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMediaType(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
	assert.Equal(t, "", MapExtToFormat("tif"))
	assert.Equal(t, IMAGE, MapExtToFormat("tiff"))
	assert.Equal(t, PDF, MapExtToFormat(".pdf"))
}
