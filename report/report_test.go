package report

import (
	"strings"
	"testing"

	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanned(t *testing.T, index int, section, text string) *core.ClauseRecord {
	t.Helper()
	scanner, err := risk.NewScanner(risk.DefaultLexicon())
	require.NoError(t, err)
	r := &core.ClauseRecord{ID: core.NewID(), Index: index, Text: text, Section: section}
	scanner.Scan(text).Apply(r)
	return r
}

func testRecords(t *testing.T) []*core.ClauseRecord {
	return []*core.ClauseRecord{
		scanned(t, 0, "Indemnification", "The Supplier shall indemnify and hold harmless the Customer against all third party claims."),
		scanned(t, 1, "General", "Notices under this Agreement must be delivered in writing to the registered address."),
		scanned(t, 2, "Liability", "The Guarantor accepts unlimited liability for every obligation of the Supplier hereunder."),
	}
}

func TestFormatClause_Highlights(t *testing.T) {
	r := testRecords(t)[0]
	out := FormatClause(r)

	assert.Contains(t, out, "CLAUSE ANALYSIS")
	assert.Contains(t, out, "Section: Indemnification")
	assert.Contains(t, out, "Risk Level: HIGH (Score: 0.80)")
	assert.Contains(t, out, "Risk Elements Found: 2")
	assert.Contains(t, out, "  • 'indemnify' - HIGH (0.80)")
	assert.Contains(t, out, "CLAUSE TEXT (*** = Risk Element):")
	assert.Contains(t, out, "shall ***indemnify*** and ***hold harmless*** the Customer")
}

func TestFormatClause_NoHighlights(t *testing.T) {
	r := scanned(t, 0, "General", "The parties met on a sunny afternoon to discuss the weather in detail.")
	out := FormatClause(r)

	assert.Contains(t, out, "Risk Level: LOW (Score: 0.30)")
	assert.Contains(t, out, "CLAUSE TEXT:\nThe parties met")
	assert.NotContains(t, out, "***")
}

func TestOverview(t *testing.T) {
	records := testRecords(t)
	out := Overview(clauses.ComputeStats(records), records)

	assert.Contains(t, out, "Total Clauses Analyzed: 3")
	assert.Contains(t, out, "High-Risk Clauses Found: 2")
	assert.Contains(t, out, "Critical Clauses Found: 1")
	assert.Contains(t, out, "CRITICAL=1 HIGH=1 MEDIUM=0 LOW=1")
	assert.Contains(t, out, "HIGH-RISK CLAUSES REQUIRING ATTENTION:")
	assert.Contains(t, out, "1. \n")
	assert.Contains(t, out, "2. \n")
	assert.NotContains(t, out, "Notices under")
}

func TestOverview_LimitsClauses(t *testing.T) {
	var records []*core.ClauseRecord
	for i := 0; i < 8; i++ {
		records = append(records, scanned(t, i, "Termination", "Either party may terminate this Agreement upon written notice to the other party."))
	}
	out := Overview(clauses.ComputeStats(records), records)

	assert.Equal(t, OverviewClauses, strings.Count(out, "CLAUSE ANALYSIS"))
}

func TestBuildContext(t *testing.T) {
	records := testRecords(t)
	long := scanned(t, 3, "Payment", strings.Repeat("Payment is due within thirty days of invoice. ", 10))
	results := []core.CandidateResult{
		{ID: records[1].ID.String(), Clause: records[1]},
		{ID: long.ID.String(), Clause: long},
		{ID: "profile", Profile: &core.Profile{ID: "profile"}},
	}

	req := BuildContext("what must be notified?", clauses.ComputeStats(records), results, records)

	assert.Equal(t, "what must be notified?", req.Query)
	assert.Equal(t, 3, req.Stats.TotalClauses)
	assert.Equal(t, 2, req.Stats.HighRisk)
	assert.Equal(t, 1, req.Stats.Critical)

	assert.Contains(t, req.RelevantClauses, "[1] RISK SCORE: 0.30 | SECTION: General")
	assert.Contains(t, req.RelevantClauses, "[2] RISK SCORE: 0.30 | SECTION: Payment")
	assert.NotContains(t, req.RelevantClauses, "[3]")
	assert.Contains(t, req.RelevantClauses, long.Text[:200]+"...")
	assert.NotContains(t, req.RelevantClauses, long.Text[:201])

	assert.Contains(t, req.RiskClauses, "[1] SCORE: 0.80 | CATEGORY: HIGH")
	assert.Contains(t, req.RiskClauses, "RISKS: 'indemnify' (0.80), 'hold harmless' (0.80)")
	assert.Contains(t, req.RiskClauses, "[2] SCORE: 1.00 | CATEGORY: CRITICAL")
	assert.Contains(t, req.RiskClauses, "SECTION: Liability")
}

func TestBuildContext_Empty(t *testing.T) {
	req := BuildContext("anything", clauses.Stats{}, nil, nil)
	assert.Empty(t, req.RelevantClauses)
	assert.Empty(t, req.RiskClauses)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "ab", clip("abc", 2))
	assert.Equal(t, "éé", clip("ééé", 2))
}
