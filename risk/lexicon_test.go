package risk

import (
	"path/filepath"
	"testing"

	"github.com/poiesic/clausewise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	l := DefaultLexicon()
	require.Equal(t, 24, l.Len())

	p, ok := l.Lookup("Unlimited Liability")
	require.True(t, ok)
	assert.Equal(t, core.SeverityCritical, p.Severity)
	assert.Equal(t, 1.0, p.Weight)

	p, ok = l.Lookup("notice")
	require.True(t, ok)
	assert.Equal(t, core.SeverityLow, p.Severity)
	assert.Equal(t, 0.3, p.Weight)

	_, ok = l.Lookup("force majeure")
	assert.False(t, ok)
}

func TestDefaultLexicon_SeverityOrder(t *testing.T) {
	patterns := DefaultLexicon().Patterns()
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Severity, patterns[i].Severity,
			"pattern %q out of order", patterns[i].Phrase)
	}
	assert.Equal(t, "unlimited liability", patterns[0].Phrase)
	assert.Equal(t, "severability", patterns[len(patterns)-1].Phrase)
}

func TestNewLexicon_Errors(t *testing.T) {
	_, err := NewLexicon()
	assert.ErrorIs(t, err, ErrEmptyLexicon)

	_, err = NewLexicon(
		core.RiskPattern{Phrase: "breach", Severity: core.SeverityHigh, Weight: 0.7},
		core.RiskPattern{Phrase: "BREACH", Severity: core.SeverityLow, Weight: 0.3},
	)
	assert.ErrorIs(t, err, ErrDuplicatePhrase)

	_, err = NewLexicon(core.RiskPattern{Phrase: "breach", Severity: core.SeverityHigh, Weight: 0})
	assert.ErrorIs(t, err, core.ErrInvalidRiskPattern)

	_, err = NewLexicon(core.RiskPattern{Phrase: "breach", Severity: core.SeverityHigh, Weight: 1.5})
	assert.ErrorIs(t, err, core.ErrInvalidRiskPattern)
}

func TestNewLexicon_StableWithinTier(t *testing.T) {
	l, err := NewLexicon(
		core.RiskPattern{Phrase: "b", Severity: core.SeverityLow, Weight: 0.3},
		core.RiskPattern{Phrase: "a", Severity: core.SeverityHigh, Weight: 0.7},
		core.RiskPattern{Phrase: "c", Severity: core.SeverityLow, Weight: 0.3},
		core.RiskPattern{Phrase: "d", Severity: core.SeverityHigh, Weight: 0.8},
	)
	require.NoError(t, err)

	var phrases []string
	for _, p := range l.Patterns() {
		phrases = append(phrases, p.Phrase)
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, phrases)
}

func TestLoadLexicon(t *testing.T) {
	l, err := LoadLexicon(filepath.Join("testdata", "lexicon.yaml"))
	require.NoError(t, err)
	require.Equal(t, 3, l.Len())

	patterns := l.Patterns()
	assert.Equal(t, "sole discretion", patterns[0].Phrase)
	assert.Equal(t, "arbitration", patterns[1].Phrase)
	assert.Equal(t, core.SeverityMedium, patterns[1].Severity)
	assert.Equal(t, "waiver", patterns[2].Phrase)
}

func TestLoadLexicon_MissingFile(t *testing.T) {
	_, err := LoadLexicon(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestParseLexicon_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "unknown severity",
			data:    "patterns:\n  - phrase: x\n    severity: SEVERE\n    weight: 0.5\n",
			wantErr: core.ErrInvalidSeverity,
		},
		{
			name:    "empty",
			data:    "patterns: []\n",
			wantErr: ErrEmptyLexicon,
		},
		{
			name:    "bad weight",
			data:    "patterns:\n  - phrase: x\n    severity: LOW\n    weight: 2\n",
			wantErr: core.ErrInvalidRiskPattern,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLexicon([]byte(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ParseLexicon([]byte("patterns: [unterminated"))
	assert.Error(t, err)
}
