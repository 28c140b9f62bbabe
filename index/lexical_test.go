package index

import (
	"testing"

	"github.com/poiesic/clausewise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus() ([]core.ID, []Document) {
	texts := []string{
		"The supplier shall indemnify the buyer",
		"the buyer shall pay the supplier",
		"Notices shall be sent by mail",
		"the agreement may terminate on breach",
	}
	ids := make([]core.ID, len(texts))
	docs := make([]Document, len(texts))
	for i, text := range texts {
		ids[i] = core.NewID()
		docs[i] = Document{ID: ids[i], Text: text}
	}
	return ids, docs
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "supplier", "shall"}, Tokenize("  The SUPPLIER\tshall\n"))
	assert.Empty(t, Tokenize("   "))
}

func TestLexical_Scores(t *testing.T) {
	_, docs := corpus()
	l := NewLexical(docs)
	require.Equal(t, 4, l.Len())

	scores := l.Scores(Tokenize("indemnify buyer"))
	require.Len(t, scores, 4)
	assert.InDelta(t, 0.8472978603872037, scores[0], 1e-9)
	assert.Equal(t, 0.0, scores[1])
	assert.Equal(t, 0.0, scores[2])
	assert.Equal(t, 0.0, scores[3])
}

func TestLexical_NegativeIDFReplaced(t *testing.T) {
	_, docs := corpus()
	l := NewLexical(docs)

	// "shall" appears in 3 of 4 documents so its raw idf is negative
	assert.InDelta(t, 0.13239029068550057, l.IDF("shall"), 1e-9)
	assert.InDelta(t, 0.13239029068550057, l.IDF("the"), 1e-9)
	// "buyer" appears in half the corpus so its idf is exactly zero
	assert.Equal(t, 0.0, l.IDF("buyer"))
	assert.Equal(t, 0.0, l.IDF("absent"))
}

func TestLexical_SearchOrdersByScoreThenInsertion(t *testing.T) {
	ids, docs := corpus()
	l := NewLexical(docs)

	hits := l.Search(Tokenize("indemnify buyer"), 2)
	require.Len(t, hits, 2)
	assert.Equal(t, ids[0], hits[0].ID)
	assert.InDelta(t, 0.8472978603872037, hits[0].Score, 1e-9)
	assert.Equal(t, ids[1], hits[1].ID)
	assert.Equal(t, 0.0, hits[1].Score)

	hits = l.Search(Tokenize("shall"), 10)
	require.Len(t, hits, 4)
	assert.Equal(t, []core.ID{ids[0], ids[1], ids[2], ids[3]}, []core.ID{hits[0].ID, hits[1].ID, hits[2].ID, hits[3].ID})
	assert.InDelta(t, hits[0].Score, hits[2].Score, 1e-12)
	assert.Equal(t, 0.0, hits[3].Score)
}

func TestLexical_SearchEdgeCases(t *testing.T) {
	_, docs := corpus()
	l := NewLexical(docs)

	assert.Empty(t, l.Search(Tokenize("indemnify"), 0))
	assert.Len(t, l.Search(nil, 3), 3)

	empty := NewLexical(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Search(Tokenize("anything"), 5))
}

func TestLexical_AllEmptyDocuments(t *testing.T) {
	l := NewLexical([]Document{{ID: core.NewID(), Text: "  "}, {ID: core.NewID(), Text: ""}})
	hits := l.Search(Tokenize("term"), 5)
	require.Len(t, hits, 2)
	assert.Equal(t, 0.0, hits[0].Score)
}
