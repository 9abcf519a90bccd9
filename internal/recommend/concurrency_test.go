package recommend

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/catalog"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/fields"
)

// Run with -race: one catalog and one engine are shared by every goroutine.
func TestRecommend_ConcurrentCallsMatchSerial(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	extractor := fields.NewExtractor(nil)
	engine := NewEngine(Config{MinScore: 0.3, Limit: 5}, nil)

	forms := []struct {
		name string
		text string
	}{
		{"granted small holding", "Name of Claimant: Ramesh Kumar\nVillage: Bhimpur\nArea: 1.5 ha\nStatus: Granted"},
		{"pending in acres", "Applicant Name: Sunita Bai\nGram Panchayat: Kotra\nLand 6 acres\nunder review"},
		{"rejected large", "Claimant: Mohan Lal\nVillage: Dhamtari\n12 hectares\nStatus: rejected"},
		{"no usable fields", "#### %%%% ----"},
	}

	type result struct {
		fields entity.ClaimFields
		recs   []entity.Recommendation
	}
	run := func(id uuid.UUID, text string) result {
		f := extractor.Extract(entity.TextFromString(text))
		return result{fields: f, recs: engine.Recommend(id, f, cat.Schemes())}
	}

	ids := make([]uuid.UUID, len(forms))
	want := make([]result, len(forms))
	for i, form := range forms {
		ids[i] = uuid.New()
		want[i] = run(ids[i], form.text)
	}

	const workers = 32
	got := make([][]result, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			out := make([]result, len(forms))
			for i := range forms {
				// vary the order so goroutines hit different forms at once
				j := (i + w) % len(forms)
				out[j] = run(ids[j], forms[j].text)
			}
			got[w] = out
		}(w)
	}
	wg.Wait()

	for w := range got {
		for i, form := range forms {
			assert.Equal(t, want[i].fields, got[w][i].fields, "worker %d %s fields", w, form.name)
			assert.Equal(t, want[i].recs, got[w][i].recs, "worker %d %s recommendations", w, form.name)
		}
	}
	assert.Equal(t, 6, cat.Len(), "catalog is unchanged by concurrent reads")
}
