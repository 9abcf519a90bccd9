package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/testutil"
)

// fakeRunner emulates pdftoppm by writing the expected output file.
type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	failPage string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if name != "pdftoppm" {
		return nil, nil, fmt.Errorf("unexpected command %s", name)
	}
	if f.failPage != "" && args[1] == f.failPage {
		return nil, []byte("render error"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	return nil, nil, os.WriteFile(prefix+".png", []byte("png"), 0o600)
}

// fakeEngine returns text keyed by the rendered file name.
type fakeEngine struct {
	byFile map[string]string
	text   string
	err    error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if t, ok := f.byFile[filepath.Base(path)]; ok {
		return t, nil
	}
	return f.text, nil
}

func newTestExtractor(cfg Config, r Runner, eng Engine) *Extractor {
	return NewExtractor(cfg, nil, WithRunner(r), WithEngine(eng))
}

func TestExtract_SupportedImageTypes(t *testing.T) {
	eng := &fakeEngine{text: "Name: Ramesh Kumar\n\nVillage: Bhimpur"}
	x := newTestExtractor(Config{}, &fakeRunner{}, eng)

	for _, mt := range []string{"png", "image/png", ".jpg", "jpeg", "image/gif", "bmp", "tiff"} {
		t.Run(mt, func(t *testing.T) {
			format := strings.TrimPrefix(strings.TrimPrefix(mt, "image/"), ".")
			res, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.Image(format), MediaType: mt})
			require.NoError(t, err)
			require.Equal(t, 1, res.PageCount())
			assert.Contains(t, res.Text(), "Ramesh Kumar")
			assert.Equal(t, "image-ocr", res.Method)
			assert.Equal(t, "eng", res.Language)
		})
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	x := newTestExtractor(Config{}, &fakeRunner{}, &fakeEngine{text: "x"})
	for _, mt := range []string{"docx", "text/plain", "", "heic", "tif", "image/tif", ".TIF"} {
		_, err := x.Extract(context.Background(), entity.RawDocument{Bytes: []byte("abc"), MediaType: mt})
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrUnsupportedFormat), mt)
	}
}

func TestExtract_MalformedPayloads(t *testing.T) {
	x := newTestExtractor(Config{}, &fakeRunner{}, &fakeEngine{text: "text"})
	cases := map[string]entity.RawDocument{
		"garbage png":    {Bytes: []byte("definitely not an image"), MediaType: "png"},
		"truncated jpeg": {Bytes: testutil.Image("jpeg")[:4], MediaType: "jpeg"},
		"garbage pdf":    {Bytes: []byte("%PDF-1.4\nbroken"), MediaType: "pdf"},
		"not pdf":        {Bytes: []byte("hello"), MediaType: "application/pdf"},
		"zero-page pdf":  {Bytes: testutil.BuildPDF(0), MediaType: "pdf"},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := x.Extract(context.Background(), doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrExtractionFailed))
		})
	}
}

func TestExtract_BlankImageFails(t *testing.T) {
	x := newTestExtractor(Config{}, &fakeRunner{}, &fakeEngine{text: "  \n\t "})
	_, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.Image("png"), MediaType: "png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed))
}

func TestExtract_EngineFailureOnImage(t *testing.T) {
	x := newTestExtractor(Config{}, &fakeRunner{}, &fakeEngine{err: errors.New("tesseract crashed")})
	_, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.Image("png"), MediaType: "png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed))
}

func TestExtract_PDFPagesKeepOrder(t *testing.T) {
	eng := &fakeEngine{byFile: map[string]string{
		"page-0001.png": "first page",
		"page-0002.png": "second page",
		"page-0003.png": "third page",
	}}
	x := newTestExtractor(Config{PageWorkers: 3}, &fakeRunner{}, eng)

	res, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.BuildPDF(3), MediaType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first page", "second page", "third page"}, res.Pages())
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Empty(t, res.Warnings())
}

func TestExtract_PDFFailingPageContributesEmpty(t *testing.T) {
	eng := &fakeEngine{text: "claim text"}
	r := &fakeRunner{failPage: "2"}
	x := newTestExtractor(Config{}, r, eng)

	res, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.BuildPDF(3), MediaType: "pdf"})
	require.NoError(t, err)
	require.Equal(t, 3, res.PageCount())
	assert.Equal(t, "", res.Pages()[1])
	assert.Equal(t, "claim text", res.Pages()[2])
	require.Len(t, res.Warnings(), 1)
	assert.Contains(t, res.Warnings()[0], "page 2")
}

func TestExtract_PDFMaxPagesTruncates(t *testing.T) {
	r := &fakeRunner{}
	x := newTestExtractor(Config{MaxPages: 2}, r, &fakeEngine{text: "p"})

	res, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.BuildPDF(5), MediaType: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount())
	require.Len(t, res.Warnings(), 1)
	assert.Contains(t, res.Warnings()[0], "only the first 2")
	assert.Len(t, r.calls, 2)
}

func TestExtract_PDFAllPagesBlankFails(t *testing.T) {
	x := newTestExtractor(Config{}, &fakeRunner{}, &fakeEngine{text: "   "})
	_, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.BuildPDF(2), MediaType: "pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExtractionFailed))
}

func TestExtract_PDFRasterizeArgs(t *testing.T) {
	r := &fakeRunner{}
	x := newTestExtractor(Config{DPI: 200}, r, &fakeEngine{text: "p"})
	_, err := x.Extract(context.Background(), entity.RawDocument{Bytes: testutil.BuildPDF(1), MediaType: "pdf"})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	call := r.calls[0]
	assert.Equal(t, []string{"pdftoppm", "-f", "1", "-l", "1", "-r", "200", "-png", "-singlefile"}, call[:9])
}

func TestPDFPageCount(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		got, err := pdfPageCount(testutil.BuildPDF(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

// Run with -race: one Extractor, runner and engine serve every goroutine.
func TestExtract_ConcurrentCallsMatchSerial(t *testing.T) {
	eng := &fakeEngine{
		byFile: map[string]string{
			"page-0001.png": "Name: Sita Devi",
			"page-0002.png": "Village: Kotra",
		},
		text: "Area 2 acres  Status: pending",
	}
	x := newTestExtractor(Config{PageWorkers: 2, MaxPages: 3}, &fakeRunner{failPage: "3"}, eng)

	docs := []struct {
		name string
		doc  entity.RawDocument
	}{
		{"png", entity.RawDocument{Bytes: testutil.Image("png"), MediaType: "png"}},
		{"tiff", entity.RawDocument{Bytes: testutil.Image("tiff"), MediaType: "image/tiff"}},
		{"pdf with failing page", entity.RawDocument{Bytes: testutil.BuildPDF(3), MediaType: "pdf"}},
		{"truncated pdf", entity.RawDocument{Bytes: testutil.BuildPDF(4), MediaType: "pdf"}},
	}

	type result struct {
		pages    []string
		warnings []string
		method   string
	}
	run := func(doc entity.RawDocument) result {
		res, err := x.Extract(context.Background(), doc)
		assert.NoError(t, err)
		return result{pages: res.Pages(), warnings: res.Warnings(), method: res.Method}
	}

	want := make([]result, len(docs))
	for i, d := range docs {
		want[i] = run(d.doc)
	}

	const workers = 16
	got := make([][]result, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := make([]result, len(docs))
			for i := range docs {
				j := (i + w) % len(docs)
				out[j] = run(docs[j].doc)
			}
			got[w] = out
		}(w)
	}
	wg.Wait()

	for w := range got {
		for i, d := range docs {
			assert.Equal(t, want[i], got[w][i], "worker %d %s", w, d.name)
		}
	}
}
