// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report renders clause collections and retrieval results as plain
// text, both for people and as summarizer input.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/risk"
)

// Limits applied when rendering.
const (
	OverviewClauses   = 5
	ContextResults    = 5
	ContextRisks      = 5
	ContextHighlights = 3
	ResultPreview     = 200
	RiskPreview       = 150
)

// NoMatches is shown when a query retrieves nothing.
const NoMatches = "No relevant clauses found for your query."

const (
	heavyRule = "============================================================"
	rule      = "=================================================="
)

// DocumentStats converts store statistics into the summarizer's counts.
func DocumentStats(st clauses.Stats) ai.DocumentStats {
	return ai.DocumentStats{
		TotalClauses: st.Total,
		HighRisk:     st.HighRisk,
		Critical:     st.Critical,
	}
}

// HighRisk returns records scoring at or above core.HighThreshold, in input order.
func HighRisk(records []*core.ClauseRecord) []*core.ClauseRecord {
	var out []*core.ClauseRecord
	for _, r := range records {
		if r.RiskScore >= core.HighThreshold {
			out = append(out, r)
		}
	}
	return out
}

// FormatClause renders one clause with its risk elements, wrapping every
// highlighted span in risk.DefaultMarker.
func FormatClause(r *core.ClauseRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nCLAUSE ANALYSIS\n%s\n", heavyRule, heavyRule)
	fmt.Fprintf(&b, "Section: %s\n", r.Section)
	fmt.Fprintf(&b, "Risk Level: %s (Score: %.2f)\n", r.RiskCategory, r.RiskScore)
	fmt.Fprintf(&b, "Risk Elements Found: %d\n\n", len(r.Highlights))

	if len(r.Highlights) == 0 {
		b.WriteString("CLAUSE TEXT:\n")
		b.WriteString(r.Text)
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("RISK HIGHLIGHTS:\n")
	for _, h := range r.Highlights {
		fmt.Fprintf(&b, "  • '%s' - %s (%.2f)\n", h.Text, h.Severity, h.Score)
	}
	fmt.Fprintf(&b, "\nCLAUSE TEXT (%s = Risk Element):\n", risk.DefaultMarker)
	b.WriteString(risk.Mark(r.Text, r.Highlights, risk.DefaultMarker, risk.DefaultMarker))
	b.WriteString("\n")
	return b.String()
}

// Overview renders the risk report shown when no query is given: totals,
// the per-category breakdown and the first OverviewClauses high-risk clauses.
func Overview(st clauses.Stats, records []*core.ClauseRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CONTRACT RISK ANALYSIS COMPLETE\n%s\n", rule)
	fmt.Fprintf(&b, "Total Clauses Analyzed: %d\n", st.Total)
	fmt.Fprintf(&b, "High-Risk Clauses Found: %d\n", st.HighRisk)
	fmt.Fprintf(&b, "Critical Clauses Found: %d\n", st.Critical)

	counts := make([]string, 0, len(core.Severities))
	for _, s := range core.Severities {
		counts = append(counts, fmt.Sprintf("%s=%d", s, st.ByCategory[s]))
	}
	fmt.Fprintf(&b, "By Category: %s\n\n", strings.Join(counts, " "))

	high := HighRisk(records)
	if len(high) == 0 {
		return b.String()
	}
	b.WriteString("HIGH-RISK CLAUSES REQUIRING ATTENTION:\n\n")
	for i, r := range high[:min(len(high), OverviewClauses)] {
		fmt.Fprintf(&b, "%d. %s\n", i+1, FormatClause(r))
	}
	return b.String()
}

// BuildContext assembles the summarizer input for query: the top
// ContextResults retrieval results and the first ContextRisks high-risk
// clauses of records, each with up to ContextHighlights highlights.
func BuildContext(query string, st clauses.Stats, results []core.CandidateResult, records []*core.ClauseRecord) ai.SummaryRequest {
	var relevant strings.Builder
	n := 0
	for _, res := range results {
		if res.Clause == nil {
			continue
		}
		if n == ContextResults {
			break
		}
		n++
		fmt.Fprintf(&relevant, "\n[%d] RISK SCORE: %.2f | SECTION: %s\n%s...\n",
			n, res.Clause.RiskScore, res.Clause.Section, clip(res.Clause.Text, ResultPreview))
	}

	var risks strings.Builder
	high := HighRisk(records)
	for i, r := range high[:min(len(high), ContextRisks)] {
		highlights := make([]string, 0, ContextHighlights)
		for _, h := range r.Highlights[:min(len(r.Highlights), ContextHighlights)] {
			highlights = append(highlights, fmt.Sprintf("'%s' (%.2f)", h.Text, h.Score))
		}
		listed := "General risks"
		if len(highlights) > 0 {
			listed = strings.Join(highlights, ", ")
		}
		fmt.Fprintf(&risks, "\n[%d] SCORE: %.2f | CATEGORY: %s\n", i+1, r.RiskScore, r.RiskCategory)
		fmt.Fprintf(&risks, "SECTION: %s\n", r.Section)
		fmt.Fprintf(&risks, "RISKS: %s\n", listed)
		fmt.Fprintf(&risks, "TEXT: %s...\n", clip(r.Text, RiskPreview))
	}

	return ai.SummaryRequest{
		Query:           query,
		Stats:           DocumentStats(st),
		RelevantClauses: relevant.String(),
		RiskClauses:     risks.String(),
	}
}

// clip returns at most n characters of s.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
