package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/catalog"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/fields"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/recommend"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

const claimForm = `FOREST RIGHTS CLAIM FORM
Name of Claimant: Ramesh Kumar
Village: Bhimpur
Extent of land: 2.5 hectares
Status: Granted`

type fakeOCR struct {
	text  string
	err   error
	calls int
}

func (f *fakeOCR) Extract(_ context.Context, _ entity.RawDocument) (entity.ExtractedText, error) {
	f.calls++
	if f.err != nil {
		return entity.ExtractedText{}, f.err
	}
	return entity.NewExtractedText([]string{f.text}, []string{"page 2: blank"}, "fake", "eng", 0), nil
}

type partialFields struct{}

func (partialFields) Extract(entity.ExtractedText) entity.ClaimFields {
	return entity.ClaimFields{constants.FieldArea: entity.Missing(constants.FieldArea)}
}

func newProcessor(t *testing.T, o *fakeOCR) (*Processor, repository.Store) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	store := repository.NewMemoryStore(nil)
	return NewProcessor(nil, o, fields.NewExtractor(nil), store, recommend.NewEngine(recommend.Config{}, nil), cat), store
}

func pdfDoc() entity.RawDocument {
	return entity.RawDocument{Bytes: []byte("%PDF-1.4"), MediaType: "pdf"}
}

func TestProcessDocument_CreatesClaim(t *testing.T) {
	p, store := newProcessor(t, &fakeOCR{text: claimForm})
	ctx := context.Background()

	res, err := p.ProcessDocument(ctx, pdfDoc(), entity.DocumentRef{Filename: "form.pdf", ContentHash: "h1"})
	require.NoError(t, err)
	require.NotNil(t, res.Claim)
	assert.False(t, res.Deduplicated)
	assert.Equal(t, 1, res.Text.PageCount())
	assert.Equal(t, []string{"page 2: blank"}, res.Claim.Warnings)

	c := res.Claim
	assert.Equal(t, "Ramesh Kumar", c.Fields.ClaimantName())
	assert.Equal(t, "Bhimpur", c.Fields.Village())
	area, ok := c.Fields.Area()
	require.True(t, ok)
	assert.InDelta(t, 2.5, area, 1e-9)
	status, ok := c.Fields.Status()
	require.True(t, ok)
	assert.Equal(t, constants.StatusGranted, status)
	assert.NotEmpty(t, c.Geometry)

	stored, err := store.GetClaim(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
}

func TestProcessDocument_DeduplicatesByHash(t *testing.T) {
	o := &fakeOCR{text: claimForm}
	p, _ := newProcessor(t, o)
	ctx := context.Background()
	ref := entity.DocumentRef{Filename: "form.pdf", ContentHash: "same"}

	first, err := p.ProcessDocument(ctx, pdfDoc(), ref)
	require.NoError(t, err)
	second, err := p.ProcessDocument(ctx, pdfDoc(), ref)
	require.NoError(t, err)

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Claim.ID, second.Claim.ID)
	assert.Equal(t, 1, o.calls)
}

func TestProcessDocument_PropagatesExtractionErrors(t *testing.T) {
	for _, sentinel := range []error{common.ErrUnsupportedFormat, common.ErrExtractionFailed} {
		p, store := newProcessor(t, &fakeOCR{err: common.NewAppError("X", "ocr", sentinel)})
		_, err := p.ProcessDocument(context.Background(), pdfDoc(), entity.DocumentRef{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel))

		all, err := store.ListClaims(context.Background(), repository.ClaimFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	}
}

func TestProcessDocument_RefusesIncompleteRecord(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	store := repository.NewMemoryStore(nil)
	p := NewProcessor(nil, &fakeOCR{text: claimForm}, partialFields{}, store, recommend.NewEngine(recommend.Config{}, nil), cat)

	_, err = p.ProcessDocument(context.Background(), pdfDoc(), entity.DocumentRef{})
	assert.True(t, errors.Is(err, common.ErrIncompleteClaim))
}

func TestProcessDocument_UnreadableTextStillStored(t *testing.T) {
	p, _ := newProcessor(t, &fakeOCR{text: "~~ ## ~~"})
	res, err := p.ProcessDocument(context.Background(), pdfDoc(), entity.DocumentRef{})
	require.NoError(t, err)
	assert.True(t, res.Claim.Fields.Complete())
	assert.False(t, res.Claim.Fields.AnyPopulated())
}

func TestRecommend_PersistsHistory(t *testing.T) {
	p, _ := newProcessor(t, &fakeOCR{text: claimForm})
	ctx := context.Background()
	res, err := p.ProcessDocument(ctx, pdfDoc(), entity.DocumentRef{})
	require.NoError(t, err)

	recs, err := p.Recommend(ctx, res.Claim.ID)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	for i, r := range recs {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, res.Claim.ID, r.ClaimID)
		assert.NotEmpty(t, r.SchemeName)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, p.Score(res.Claim.ID, res.Claim.Fields)[0].SchemeID, recs[0].SchemeID)

	_, err = p.Recommend(ctx, res.Claim.ID)
	require.NoError(t, err)
	history, err := p.History(ctx, res.Claim.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2*len(recs))
}

func TestRecommend_UnknownClaim(t *testing.T) {
	p, _ := newProcessor(t, &fakeOCR{text: claimForm})
	_, err := p.Recommend(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = p.History(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestRecommend_EmptyForUnpopulatedClaim(t *testing.T) {
	p, _ := newProcessor(t, &fakeOCR{text: ""})
	ctx := context.Background()
	res, err := p.ProcessDocument(ctx, pdfDoc(), entity.DocumentRef{})
	require.NoError(t, err)

	recs, err := p.Recommend(ctx, res.Claim.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
