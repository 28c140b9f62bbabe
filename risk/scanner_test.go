package risk

import (
	"testing"

	"github.com/poiesic/clausewise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultScanner(t *testing.T) *Scanner {
	t.Helper()
	s, err := NewScanner(DefaultLexicon())
	require.NoError(t, err)
	return s
}

func TestNewScanner_RequiresLexicon(t *testing.T) {
	_, err := NewScanner(nil)
	assert.ErrorIs(t, err, ErrLexiconRequired)
}

func TestScan_NoMatches(t *testing.T) {
	a := newDefaultScanner(t).Scan("The parties met on a sunny afternoon to discuss the weather.")
	assert.Equal(t, core.RiskFloor, a.Score)
	assert.Equal(t, core.SeverityLow, a.Category)
	assert.Empty(t, a.Highlights)
}

func TestScan_IndemnifyAndHoldHarmless(t *testing.T) {
	clause := "The Supplier shall indemnify and hold harmless the Customer from all claims."
	a := newDefaultScanner(t).Scan(clause)

	assert.Equal(t, 0.8, a.Score)
	assert.Equal(t, core.SeverityHigh, a.Category)
	require.Len(t, a.Highlights, 2)
	assert.Equal(t, "indemnify", a.Highlights[0].RiskType)
	assert.Equal(t, "hold harmless", a.Highlights[1].RiskType)
}

func TestScan_CaseInsensitiveLiteralSlice(t *testing.T) {
	clause := "Any BREACH of this clause, or a Breach of another, is material."
	a := newDefaultScanner(t).Scan(clause)

	require.Len(t, a.Highlights, 2)
	assert.Equal(t, "BREACH", a.Highlights[0].Text)
	assert.Equal(t, "Breach", a.Highlights[1].Text)
	for _, h := range a.Highlights {
		assert.Equal(t, h.Text, clause[h.Start:h.End])
		assert.Equal(t, "breach", h.RiskType)
	}
	assert.Equal(t, 0.7, a.Score)
	assert.Equal(t, core.SeverityHigh, a.Category)
}

func TestScan_HighlightOffsetsValidate(t *testing.T) {
	clause := "Notice of default: the Licensee shall forfeit all fees upon IMMEDIATE TERMINATION, and this clause is irrevocable."
	a := newDefaultScanner(t).Scan(clause)
	require.NotEmpty(t, a.Highlights)

	for i := range a.Highlights {
		assert.NoError(t, core.ValidateHighlight(clause, &a.Highlights[i]))
	}
	assert.Equal(t, 0.9, a.Score)
	assert.Equal(t, core.SeverityCritical, a.Category)
}

func TestScan_NonASCIIOffsets(t *testing.T) {
	clause := "Die Vertragsstrafe (penalty) gilt für jeden Verstoß; İSTANBUL courts have jurisdiction."
	a := newDefaultScanner(t).Scan(clause)

	require.Len(t, a.Highlights, 2)
	for i := range a.Highlights {
		assert.NoError(t, core.ValidateHighlight(clause, &a.Highlights[i]))
	}
}

func TestScan_OverlappingOccurrences(t *testing.T) {
	l, err := NewLexicon(core.RiskPattern{Phrase: "aa", Severity: core.SeverityLow, Weight: 0.3})
	require.NoError(t, err)
	s, err := NewScanner(l)
	require.NoError(t, err)

	a := s.Scan("aaaa")
	require.Len(t, a.Highlights, 3)
	assert.Equal(t, 0, a.Highlights[0].Start)
	assert.Equal(t, 1, a.Highlights[1].Start)
	assert.Equal(t, 2, a.Highlights[2].Start)
}

func TestScan_FloorAppliesToLightPatterns(t *testing.T) {
	a := newDefaultScanner(t).Scan("This is the entire agreement between the parties hereto.")
	require.Len(t, a.Highlights, 1)
	assert.Equal(t, 0.2, a.Highlights[0].Score)
	assert.Equal(t, core.RiskFloor, a.Score)
	assert.Equal(t, core.SeverityLow, a.Category)
}

func TestScan_Deterministic(t *testing.T) {
	s := newDefaultScanner(t)
	clause := "Upon breach or default the agreement is void and the exclusive licence shall terminate."
	first := s.Scan(clause)
	for range 20 {
		assert.Equal(t, first, s.Scan(clause))
	}
}

func TestScan_EmptyClause(t *testing.T) {
	a := newDefaultScanner(t).Scan("")
	assert.Equal(t, core.RiskFloor, a.Score)
	assert.Empty(t, a.Highlights)
}

func TestAssessment_Apply(t *testing.T) {
	clause := "Confidential information must be protected."
	a := newDefaultScanner(t).Scan(clause)

	record := &core.ClauseRecord{ID: core.NewID(), Text: clause}
	a.Apply(record)

	assert.Equal(t, 0.5, record.RiskScore)
	assert.Equal(t, core.SeverityMedium, record.RiskCategory)
	assert.NoError(t, core.ValidateClauseRecord(record))
}
