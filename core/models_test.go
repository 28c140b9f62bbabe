package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestFingerprintFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "The Supplier shall indemnify and hold harmless the Customer against all claims."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FingerprintFromContent(tt.content)
			b := FingerprintFromContent(tt.content)
			if a != b {
				t.Errorf("FingerprintFromContent() produced different values for same content: %d vs %d", a, b)
			}
		})
	}
}

func TestFingerprintFromContent_Different(t *testing.T) {
	if FingerprintFromContent("content1") == FingerprintFromContent("content2") {
		t.Errorf("FingerprintFromContent() produced same value for different content")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[ID]bool)
	for range 100 {
		id := NewID()
		if id.IsNil() {
			t.Fatal("NewID() returned the nil ID")
		}
		if seen[id] {
			t.Fatalf("NewID() returned duplicate %s", id)
		}
		seen[id] = true
	}
}

func TestParseID_RoundTrip(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	if err != nil {
		t.Fatalf("ParseID() error = %v", err)
	}
	if parsed != id {
		t.Errorf("ParseID() = %s, want %s", parsed, id)
	}

	if _, err := ParseID("not-an-id"); err == nil {
		t.Error("ParseID() expected error for malformed input")
	}
}

func TestCategoryForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{1.0, SeverityCritical},
		{0.85, SeverityCritical},
		{0.849999, SeverityHigh},
		{0.7, SeverityHigh},
		{0.6999, SeverityMedium},
		{0.5, SeverityMedium},
		{0.4999, SeverityLow},
		{0.3, SeverityLow},
	}

	for _, tt := range tests {
		if got := CategoryForScore(tt.score); got != tt.want {
			t.Errorf("CategoryForScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	for _, s := range Severities {
		got, err := ParseSeverity(s.String())
		if err != nil {
			t.Fatalf("ParseSeverity(%q) error = %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseSeverity(%q) = %s, want %s", s.String(), got, s)
		}
	}

	got, err := ParseSeverity(" high ")
	if err != nil || got != SeverityHigh {
		t.Errorf("ParseSeverity(\" high \") = %s, %v", got, err)
	}

	if _, err := ParseSeverity("severe"); !errors.Is(err, ErrInvalidSeverity) {
		t.Errorf("ParseSeverity(\"severe\") error = %v, want ErrInvalidSeverity", err)
	}
}

func TestProvenance_String(t *testing.T) {
	tests := []struct {
		p    Provenance
		want string
	}{
		{ProvenanceLexical, "lexical"},
		{ProvenanceSemantic, "semantic"},
		{ProvenanceLexical | ProvenanceSemantic, "semantic+lexical"},
		{0, "none"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Provenance(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestClauseRecord_WithEmbedding(t *testing.T) {
	original := &ClauseRecord{ID: NewID(), Text: "clause"}
	updated := original.WithEmbedding([]float32{0.1, 0.2})

	if original.HasEmbedding() {
		t.Error("WithEmbedding() mutated the receiver")
	}
	if !updated.HasEmbedding() {
		t.Error("WithEmbedding() result has no embedding")
	}
	if updated.ID != original.ID {
		t.Error("WithEmbedding() changed the ID")
	}
}

func TestClauseRecordMUS_RoundTrip(t *testing.T) {
	text := "The Supplier shall indemnify the Customer."
	record := ClauseRecord{
		ID:           NewID(),
		Index:        7,
		Text:         text,
		Section:      "Indemnification",
		RiskScore:    0.8,
		RiskCategory: SeverityHigh,
		Highlights: []RiskHighlight{
			{Text: "indemnify", Start: 19, End: 28, RiskType: "indemnify", Severity: SeverityHigh, Score: 0.8},
		},
		Embedding: []float32{0.25, -1.5, float32(math.Pi)},
	}

	buf := make([]byte, ClauseRecordMUS.Size(record))
	n := ClauseRecordMUS.Marshal(record, buf)
	if n != len(buf) {
		t.Fatalf("Marshal() wrote %d bytes, Size() reported %d", n, len(buf))
	}

	got, m, err := ClauseRecordMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m != n {
		t.Errorf("Unmarshal() consumed %d bytes, want %d", m, n)
	}
	if got.ID != record.ID || got.Index != record.Index || got.Text != record.Text || got.Section != record.Section {
		t.Errorf("Unmarshal() = %+v, want %+v", got, record)
	}
	if got.RiskScore != record.RiskScore || got.RiskCategory != record.RiskCategory {
		t.Errorf("Unmarshal() risk = %v/%s, want %v/%s", got.RiskScore, got.RiskCategory, record.RiskScore, record.RiskCategory)
	}
	if len(got.Highlights) != 1 || got.Highlights[0] != record.Highlights[0] {
		t.Errorf("Unmarshal() highlights = %+v", got.Highlights)
	}
	if len(got.Embedding) != 3 || got.Embedding[2] != float32(math.Pi) {
		t.Errorf("Unmarshal() embedding = %v", got.Embedding)
	}
}

func TestClauseRecordMUS_Truncated(t *testing.T) {
	record := ClauseRecord{ID: NewID(), Text: "clause text", RiskScore: 0.3, RiskCategory: SeverityLow}
	buf := make([]byte, ClauseRecordMUS.Size(record))
	ClauseRecordMUS.Marshal(record, buf)

	if _, _, err := ClauseRecordMUS.Unmarshal(buf[:8]); err == nil {
		t.Error("Unmarshal() expected error for truncated data")
	}
}

func TestProfileMUS_RoundTrip(t *testing.T) {
	profile := Profile{
		ID:              "lawyer-1",
		Name:            "Jane Doe",
		Summary:         "Commercial litigator",
		Expertise:       []string{"contracts", "arbitration"},
		Achievements:    "Won a landmark arbitration",
		ExperienceYears: 12,
		Reputation:      4.5,
		Embedding:       []float32{1, 0, 0},
		InsertedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	buf := make([]byte, ProfileMUS.Size(profile))
	ProfileMUS.Marshal(profile, buf)
	got, _, err := ProfileMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != profile.ID || got.Name != profile.Name || got.Achievements != profile.Achievements {
		t.Errorf("Unmarshal() = %+v, want %+v", got, profile)
	}
	if len(got.Expertise) != 2 || got.Expertise[1] != "arbitration" {
		t.Errorf("Unmarshal() expertise = %v", got.Expertise)
	}
	if got.ExperienceYears != 12 || got.Reputation != 4.5 {
		t.Errorf("Unmarshal() numbers = %v/%v", got.ExperienceYears, got.Reputation)
	}
	if !got.InsertedAt.Equal(profile.InsertedAt) {
		t.Errorf("Unmarshal() inserted = %v, want %v", got.InsertedAt, profile.InsertedAt)
	}
}

func TestSnapshotMUS_RoundTrip(t *testing.T) {
	snapshot := Snapshot{
		ID:            NewID(),
		Source:        "contract.pdf",
		Fingerprint:   FingerprintFromContent("contract"),
		ClauseCount:   42,
		EmbeddedCount: 40,
		CreatedAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	buf := make([]byte, SnapshotMUS.Size(snapshot))
	SnapshotMUS.Marshal(snapshot, buf)
	got, _, err := SnapshotMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got != snapshot {
		t.Errorf("Unmarshal() = %+v, want %+v", got, snapshot)
	}
}
