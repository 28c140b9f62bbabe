package openai

import (
	"github.com/poiesic/clausewise/ai"
	"github.com/tmc/langchaingo/prompts"
)

const analysisPromptTemplate = `You are a contract risk analyst. Provide a CONCISE, STRUCTURED analysis.

QUERY: "{{.query}}"

DOCUMENT STATS:
- Total Clauses: {{.total}}
- High-Risk (>=0.7): {{.high}}
- Critical Risk (>=0.85): {{.critical}}

RELEVANT CLAUSES:
{{.relevant}}

TOP RISK CLAUSES:
{{.risks}}

Provide analysis in this EXACT format:

DIRECT ANSWER
[2-3 sentences directly answering the query]

RISK BREAKDOWN
Overall Risk Level: [HIGH/MEDIUM/LOW]

Critical Issues (Score >=0.85):
- [Risk description] - Score: X.XX

High Risks (Score 0.70-0.84):
- [Risk description] - Score: X.XX

NEGOTIATION PRIORITIES
1. [Most important clause to change] - Current Risk: X.XX
   -> Suggested change: [Brief alternative]

2. [Second priority] - Current Risk: X.XX
   -> Suggested change: [Brief alternative]

3. [Third priority] - Current Risk: X.XX
   -> Suggested change: [Brief alternative]

RED FLAGS
- [Deal-breaker issue 1]
- [Deal-breaker issue 2]

Keep responses concise. Focus on actionable insights with specific risk scores.`

var analysisPrompt = prompts.NewPromptTemplate(analysisPromptTemplate,
	[]string{"query", "total", "high", "critical", "relevant", "risks"})

// buildAnalysisPrompt renders the analysis prompt for a request.
func buildAnalysisPrompt(req ai.SummaryRequest) (string, error) {
	relevant := req.RelevantClauses
	if relevant == "" {
		relevant = "(none)"
	}
	risks := req.RiskClauses
	if risks == "" {
		risks = "(none)"
	}
	return analysisPrompt.Format(map[string]any{
		"query":    req.Query,
		"total":    req.Stats.TotalClauses,
		"high":     req.Stats.HighRisk,
		"critical": req.Stats.Critical,
		"relevant": relevant,
		"risks":    risks,
	})
}
