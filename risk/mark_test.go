package risk

import (
	"testing"

	"github.com/poiesic/clausewise/core"
	"github.com/stretchr/testify/assert"
)

func TestMark(t *testing.T) {
	clause := "Either party may terminate upon breach."
	highlights := []core.RiskHighlight{
		{Text: "breach", Start: 32, End: 38},
		{Text: "terminate", Start: 17, End: 26},
	}

	got := Mark(clause, highlights, DefaultMarker, DefaultMarker)
	assert.Equal(t, "Either party may ***terminate*** upon ***breach***.", got)
}

func TestMark_MergesOverlaps(t *testing.T) {
	got := Mark("aaaa", []core.RiskHighlight{
		{Start: 0, End: 2},
		{Start: 1, End: 3},
		{Start: 3, End: 4},
	}, "[", "]")
	assert.Equal(t, "[aaaa]", got)
}

func TestMark_NoHighlights(t *testing.T) {
	assert.Equal(t, "plain", Mark("plain", nil, "[", "]"))
}

func TestMark_IgnoresBadOffsets(t *testing.T) {
	got := Mark("short", []core.RiskHighlight{{Start: 2, End: 40}, {Start: 0, End: 1}}, "<", ">")
	assert.Equal(t, "<s>hort", got)
}
