package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSegmenter(t *testing.T, opts ...Option) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(opts...)
	require.NoError(t, err)
	return s
}

func TestSegment_Empty(t *testing.T) {
	s := newSegmenter(t)

	for _, text := range []string{"", "   ", "\n\t\n"} {
		clauses, strategy := s.SegmentWithStrategy(text)
		assert.NotNil(t, clauses)
		assert.Empty(t, clauses)
		assert.Empty(t, strategy)
	}
}

func TestSegment_NumberedSubsections(t *testing.T) {
	text := "1.1 The Supplier shall deliver the goods within thirty days of the order date.\n\n" +
		"1.2 The Customer shall pay all invoices within sixty days of receipt of the goods.\n" +
		"1.3 Short one."

	clauses, strategy := newSegmenter(t).SegmentWithStrategy(text)
	assert.Equal(t, "numbered-subsection", strategy)
	assert.Equal(t, []string{
		"1.1 The Supplier shall deliver the goods within thirty days of the order date.",
		"1.2 The Customer shall pay all invoices within sixty days of receipt of the goods.",
	}, clauses)
}

func TestSegment_ProseFallsBackToSentences(t *testing.T) {
	text := "This agreement is made between the parties named below. It governs the supply of goods! Does it cover services? No."

	clauses, strategy := newSegmenter(t).SegmentWithStrategy(text)
	assert.Equal(t, StrategySentence, strategy)
	assert.Equal(t, []string{
		"This agreement is made between the parties named below.",
		"It governs the supply of goods!",
	}, clauses)
}

func TestSegment_LengthBoundary(t *testing.T) {
	fifty := "(a) " + strings.Repeat("x", 46)
	fiftyOne := "(b) " + strings.Repeat("y", 47)
	require.Equal(t, 50, Length(fifty))
	require.Equal(t, 51, Length(fiftyOne))

	clauses, strategy := newSegmenter(t).SegmentWithStrategy(fifty + " " + fiftyOne)
	assert.Equal(t, "lettered-item", strategy)
	assert.Equal(t, []string{fiftyOne}, clauses)
}

func TestSegment_ShortStructuralFragmentsFallThrough(t *testing.T) {
	text := "1. Alpha term applies to every delivery. 2. Beta term applies to every invoice."

	clauses, strategy := newSegmenter(t).SegmentWithStrategy(text)
	assert.Equal(t, StrategySentence, strategy)
	assert.Equal(t, []string{
		"Alpha term applies to every delivery.",
		"Beta term applies to every invoice.",
	}, clauses)
}

func TestSegment_Headers(t *testing.T) {
	text := "DEFINITIONS: The terms below have the meanings given in this part. " +
		"PAYMENT TERMS: The Customer pays every invoice within thirty days."

	clauses, strategy := newSegmenter(t).SegmentWithStrategy(text)
	assert.Equal(t, "header", strategy)
	assert.Equal(t, []string{
		"DEFINITIONS: The terms below have the meanings given in this part.",
		"PAYMENT TERMS: The Customer pays every invoice within thirty days.",
	}, clauses)
}

func TestSegment_SectionsAndArticles(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		strategy string
	}{
		{
			name: "sections",
			parts: []string{
				"Section 1 Definitions apply to this whole agreement and its schedules.",
				"Section 2 Payment terms are net thirty days from invoice date.",
			},
			strategy: "section",
		},
		{
			name: "articles",
			parts: []string{
				"Article 1 The Licensor grants a licence to use the software on site.",
				"Article 2 The Licensee shall not sublicense the software to anyone.",
			},
			strategy: "article",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, strategy := newSegmenter(t).SegmentWithStrategy(strings.Join(tt.parts, " "))
			assert.Equal(t, tt.strategy, strategy)
			assert.Equal(t, tt.parts, clauses)
		})
	}
}

func TestSegment_NormalizesWhitespace(t *testing.T) {
	text := "1.1   The Supplier\tshall deliver the goods\n\nwithin thirty days of the order date.  " +
		"1.2 The Customer shall pay all invoices within sixty days of receipt of the goods."

	clauses := newSegmenter(t).Segment(text)
	require.Len(t, clauses, 2)
	assert.Equal(t, "1.1 The Supplier shall deliver the goods within thirty days of the order date.", clauses[0])
}

func TestSegment_CustomThresholds(t *testing.T) {
	s := newSegmenter(t, WithMinClauseLength(10), WithMinSentenceLength(5))

	clauses, strategy := s.SegmentWithStrategy("(a) first short item (b) second short item")
	assert.Equal(t, "lettered-item", strategy)
	assert.Equal(t, []string{"(a) first short item", "(b) second short item"}, clauses)
}

func TestNewSegmenter_InvalidOptions(t *testing.T) {
	_, err := NewSegmenter(WithMinClauseLength(-1))
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = NewSegmenter(WithMinSentenceLength(-5))
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestStrategies(t *testing.T) {
	assert.Equal(t, []string{
		"numbered-subsection", "numbered-section", "lettered-item",
		"header", "section", "article", StrategySentence,
	}, Strategies())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a \n\t b\r\n\nc  "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestSegment_NumbersInsideProse(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name: "schedule reference",
			parts: []string{
				"The fees payable by the Customer are set out in full in Schedule 2.",
				"The Customer shall pay every invoice within thirty days of the invoice date under this Agreement.",
			},
		},
		{
			name: "decimal amount",
			parts: []string{
				"The Supplier's total liability is capped at USD 1.5 million in aggregate for all claims.",
				"The Customer shall notify the Supplier of any claim within ninety days.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, strategy := newSegmenter(t).SegmentWithStrategy(strings.Join(tt.parts, " "))
			assert.Equal(t, StrategySentence, strategy)
			assert.Equal(t, tt.parts, clauses)
		})
	}
}

func TestSegment_NumberedAfterTerminator(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		strategy string
	}{
		{
			name: "after full stop",
			parts: []string{
				"The Supplier shall deliver the goods in accordance with all claims.",
				"2. The Customer shall pay every invoice within thirty days of receipt.",
			},
			strategy: "numbered-section",
		},
		{
			name: "after semicolon",
			parts: []string{
				"1.1 The Supplier shall deliver the goods within thirty days of the order;",
				"1.2 The Customer shall pay every invoice within sixty days of receipt.",
			},
			strategy: "numbered-subsection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, strategy := newSegmenter(t).SegmentWithStrategy(strings.Join(tt.parts, " "))
			assert.Equal(t, tt.strategy, strategy)
			assert.Equal(t, tt.parts, clauses)
		})
	}
}

func TestFollowsTerminator(t *testing.T) {
	assert.True(t, followsTerminator("2. Foo", 0))
	assert.True(t, followsTerminator("as follows: 1. Foo", 12))
	assert.False(t, followsTerminator("Schedule 2. Foo", 9))
	assert.False(t, followsTerminator("USD 1.5 million", 4))
}
