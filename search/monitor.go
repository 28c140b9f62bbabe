package search

import (
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during retrieval.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(hits []index.Hit)
	AfterLexicalSearch(hits []index.Hit)
	SubIndexFailed(name string, err error)
	SemanticAndLexicalHit(candidate *core.CandidateResult)
	SemanticHit(candidate *core.CandidateResult)
	LexicalHit(candidate *core.CandidateResult)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                {}
func (n *noopMonitor) AfterSemanticSearch(_ []index.Hit)             {}
func (n *noopMonitor) AfterLexicalSearch(_ []index.Hit)              {}
func (n *noopMonitor) SubIndexFailed(_ string, _ error)              {}
func (n *noopMonitor) SemanticAndLexicalHit(_ *core.CandidateResult) {}
func (n *noopMonitor) SemanticHit(_ *core.CandidateResult)           {}
func (n *noopMonitor) LexicalHit(_ *core.CandidateResult)            {}
func (n *noopMonitor) Finish(_ *Result)                              {}
