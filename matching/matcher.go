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

// Package matching recommends profiles for a free-text case description.
//
// Profiles are embedded once when added. A recommendation embeds the
// description, takes the most similar profiles and re-ranks them with a
// scoring.Scorer over similarity, years of experience and reputation.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/scoring"
	"github.com/poiesic/clausewise/storage"
)

// Feature saturation points and default weights.
const (
	DefaultExperienceCap = 30.0
	DefaultReputationCap = 5.0
	DefaultTopK          = 3
)

// DefaultWeights weight similarity, experience and reputation.
var DefaultWeights = []float64{0.5, 0.3, 0.2}

// Breakdown keys besides scoring.SimilarityComponent.
const (
	ComponentExperience = "experience"
	ComponentReputation = "reputation"
)

// anySimilarity accepts every stored profile regardless of cosine score.
const anySimilarity = -2

var (
	// ErrProfileRepositoryRequired is returned when a profile repository is not provided.
	ErrProfileRepositoryRequired = errors.New("profile repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")
)

// Matcher ranks stored profiles against case descriptions.
type Matcher struct {
	profiles      storage.ProfileRepository
	embedder      ai.Embedder
	scorer        *scoring.Scorer
	experienceCap float64
	reputationCap float64
	logger        *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithWeights sets the similarity, experience and reputation weights.
// Default is DefaultWeights.
func WithWeights(similarity, experience, reputation float64) Option {
	return func(m *Matcher) error {
		s, err := scoring.NewScorer(similarity, experience, reputation)
		if err != nil {
			return err
		}
		m.scorer = s
		return nil
	}
}

// WithFeatureCaps sets the values at which experience and reputation saturate.
// Defaults are DefaultExperienceCap and DefaultReputationCap.
func WithFeatureCaps(experience, reputation float64) Option {
	return func(m *Matcher) error {
		if experience <= 0 || reputation <= 0 {
			return fmt.Errorf("%w: experience %v, reputation %v", scoring.ErrInvalidMax, experience, reputation)
		}
		m.experienceCap = experience
		m.reputationCap = reputation
		return nil
	}
}

// NewMatcher creates a new matcher.
func NewMatcher(profiles storage.ProfileRepository, embedder ai.Embedder, opts ...Option) (*Matcher, error) {
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	m := &Matcher{
		profiles:      profiles,
		embedder:      embedder,
		experienceCap: DefaultExperienceCap,
		reputationCap: DefaultReputationCap,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.scorer == nil {
		s, err := scoring.NewScorer(DefaultWeights...)
		if err != nil {
			return nil, err
		}
		m.scorer = s
	}
	m.logger = m.logger.With("component", "matcher")
	return m, nil
}

// ProfileText composes the text a profile is embedded from.
func ProfileText(p *core.Profile) string {
	return fmt.Sprintf("Name: %s. Expertise: %s. Summary: %s Achievements: %s Experience: %s years.",
		p.Name, strings.Join(p.Expertise, ", "), p.Summary, p.Achievements, formatYears(p.ExperienceYears))
}

func formatYears(y float64) string {
	if y == float64(int64(y)) {
		return fmt.Sprintf("%d", int64(y))
	}
	return fmt.Sprintf("%g", y)
}

// AddProfiles embeds and stores profiles whose ID is not already stored.
// Existing IDs are skipped without calling the embedder. Returns the
// profiles that were added.
func (m *Matcher) AddProfiles(ctx context.Context, profiles ...*core.Profile) ([]*core.Profile, error) {
	fresh := make([]*core.Profile, 0, len(profiles))
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		if err := core.ValidateProfile(p); err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		exists, err := m.profiles.HasProfile(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			m.logger.Debug("skipping existing profile", "id", p.ID, "name", p.Name)
			continue
		}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return []*core.Profile{}, nil
	}

	texts := make([]string, len(fresh))
	for i, p := range fresh {
		texts[i] = ProfileText(p)
	}
	vectors, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding profiles: %w", err)
	}
	if len(vectors) != len(fresh) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(fresh), len(vectors))
	}

	stored := make([]*core.Profile, len(fresh))
	for i, p := range fresh {
		clone := *p
		clone.Embedding = vectors[i]
		stored[i] = &clone
	}

	added, err := m.profiles.AddProfiles(ctx, stored...)
	if err != nil {
		return nil, err
	}
	m.logger.Info("added profiles", "added", len(added), "skipped", len(profiles)-len(added))
	return added, nil
}

// Recommend returns up to topK profiles for description, best first. Each
// result carries the final score and its weighted breakdown. An empty
// profile collection yields an empty result.
func (m *Matcher) Recommend(ctx context.Context, description string, topK int) ([]core.CandidateResult, error) {
	if topK <= 0 || strings.TrimSpace(description) == "" {
		return []core.CandidateResult{}, nil
	}

	count, err := m.profiles.CountProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		m.logger.Debug("no profiles stored")
		return []core.CandidateResult{}, nil
	}

	vector, err := m.embedder.EmbedText(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("embedding description: %w", err)
	}

	matches, err := m.profiles.FindSimilar(ctx, vector, anySimilarity, topK)
	if err != nil {
		return nil, err
	}

	results := make([]core.CandidateResult, 0, len(matches))
	for _, match := range matches {
		p := match.Profile
		b, err := m.scorer.Score(float64(match.Score),
			scoring.Feature{Name: ComponentExperience, Value: p.ExperienceYears, Max: m.experienceCap},
			scoring.Feature{Name: ComponentReputation, Value: p.Reputation, Max: m.reputationCap},
		)
		if err != nil {
			return nil, err
		}
		results = append(results, core.CandidateResult{
			ID:            p.ID,
			Profile:       p,
			Score:         b.Total,
			Provenance:    core.ProvenanceSemantic,
			SemanticScore: float64(match.Score),
			Breakdown:     b.Map(),
		})
	}

	slices.SortStableFunc(results, func(a, b core.CandidateResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return results, nil
}
