package ocr

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	stdout, stderr []byte
	err            error
	name           string
	args           []string
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.name, s.args = name, args
	return s.stdout, s.stderr, s.err
}

func TestCLIEngine_Recognize(t *testing.T) {
	r := &scriptedRunner{stdout: []byte("Name:\tSita Devi\r\n\r\n\r\n\r\nArea 2 acres   \n")}
	eng := NewCLIEngine(Config{Language: "hin+eng", TessdataDir: "/td", PSM: 6}, r)

	txt, err := eng.Recognize(context.Background(), "/tmp/page.png")
	require.NoError(t, err)
	assert.Equal(t, "Name: Sita Devi\n\nArea 2 acres", txt)
	assert.Equal(t, "tesseract", r.name)
	assert.Equal(t, []string{"/tmp/page.png", "stdout", "-l", "hin+eng", "--psm", "6", "--tessdata-dir", "/td"}, r.args)
}

func TestCLIEngine_WhitespaceOnlyIsEmpty(t *testing.T) {
	eng := NewCLIEngine(Config{}, &scriptedRunner{stdout: []byte(" \n\t\f \n")})
	txt, err := eng.Recognize(context.Background(), "x.png")
	require.NoError(t, err)
	assert.Equal(t, "", txt)
}

func TestCLIEngine_Error(t *testing.T) {
	eng := NewCLIEngine(Config{}, &scriptedRunner{stderr: []byte("Error opening data file"), err: errors.New("exit status 1")})
	_, err := eng.Recognize(context.Background(), "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error opening data file")

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "tesseract", te.Tool)
	assert.False(t, te.Missing)
}

func TestCLIEngine_MissingBinary(t *testing.T) {
	eng := NewCLIEngine(Config{}, &scriptedRunner{err: &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}})
	_, err := eng.Recognize(context.Background(), "x.png")

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.Missing)
	assert.Contains(t, err.Error(), "not installed")
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"crlf and tabs", "a\r\nb\tc", "a\nb c"},
		{"ruled lines", "Name: X\n--------\nVillage: Y", "Name: X\n\nVillage: Y"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"form feed", "page1\fpage2", "page1\npage2"},
		{"digits untouched", "Area 05 ha", "Area 05 ha"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}
