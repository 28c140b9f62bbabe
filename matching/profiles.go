package matching

import (
	"fmt"
	"os"

	"github.com/poiesic/clausewise/core"
	"gopkg.in/yaml.v3"
)

// profileEntry is the on-disk form of a profile. JSON files parse as well,
// since every JSON document is valid YAML.
type profileEntry struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Summary         string   `yaml:"professional_summary"`
	Expertise       []string `yaml:"expertise"`
	ExperienceYears float64  `yaml:"experience_years"`
	Achievements    string   `yaml:"achievements"`
	Reputation      float64  `yaml:"reputation_score"`
}

// ParseProfiles reads a YAML or JSON list of profiles.
func ParseProfiles(data []byte) ([]*core.Profile, error) {
	var entries []profileEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}

	profiles := make([]*core.Profile, 0, len(entries))
	for i, e := range entries {
		p := &core.Profile{
			ID:              e.ID,
			Name:            e.Name,
			Summary:         e.Summary,
			Expertise:       e.Expertise,
			Achievements:    e.Achievements,
			ExperienceYears: e.ExperienceYears,
			Reputation:      e.Reputation,
		}
		if err := core.ValidateProfile(p); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// LoadProfiles reads profiles from a YAML or JSON file.
func LoadProfiles(path string) ([]*core.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProfiles(data)
}
