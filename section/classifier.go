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

// Package section assigns a topical label to a clause from an ordered keyword table.
package section

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/poiesic/clausewise/core"
	"gopkg.in/yaml.v3"
)

// General is the label used when no rule matches.
const General = "General"

var (
	// ErrNoRules is returned when a classifier is built from an empty table.
	ErrNoRules = errors.New("section table has no rules")

	// ErrInvalidRule is returned for a rule without a name or keywords.
	ErrInvalidRule = errors.New("invalid section rule")
)

// Rule maps a set of keywords to a section label.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules is the built-in table. Order matters: the first rule with a
// matching keyword wins, so "comply" labels a clause Performance even though
// Compliance also lists it.
var DefaultRules = []Rule{
	{Name: "Termination", Keywords: []string{"terminate", "termination", "end", "expire", "dissolution", "cancel"}},
	{Name: "Liability", Keywords: []string{"liability", "liable", "damages", "loss", "harm", "responsible"}},
	{Name: "Indemnification", Keywords: []string{"indemnify", "indemnification", "hold harmless", "protect"}},
	{Name: "Payment", Keywords: []string{"payment", "pay", "invoice", "fee", "amount", "cost", "price"}},
	{Name: "Confidentiality", Keywords: []string{"confidential", "non-disclosure", "proprietary", "secret", "private"}},
	{Name: "Intellectual Property", Keywords: []string{"intellectual property", "copyright", "trademark", "patent", "ip"}},
	{Name: "Governing Law", Keywords: []string{"governing law", "jurisdiction", "court", "legal", "dispute"}},
	{Name: "Force Majeure", Keywords: []string{"force majeure", "act of god", "unforeseeable", "extraordinary"}},
	{Name: "Warranty", Keywords: []string{"warranty", "warrant", "guarantee", "representation"}},
	{Name: "Performance", Keywords: []string{"performance", "obligation", "duty", "comply", "fulfill"}},
	{Name: "Compliance", Keywords: []string{"comply", "compliance", "regulation", "law", "legal requirement"}},
}

// Classifier labels clauses by keyword. Matching is ASCII case-insensitive
// substring search. A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier from rules, in order. With no rules the
// default table is used.
func NewClassifier(rules ...Rule) (*Classifier, error) {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	owned := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("%w: rule %d has no name", ErrInvalidRule, i)
		}
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = core.LowerASCII(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("%w: %q has no keywords", ErrInvalidRule, r.Name)
		}
		owned = append(owned, Rule{Name: r.Name, Keywords: keywords})
	}
	return &Classifier{rules: owned}, nil
}

// Default returns a classifier over DefaultRules.
func Default() *Classifier {
	c, err := NewClassifier()
	if err != nil {
		panic(fmt.Sprintf("section: invalid default table: %v", err))
	}
	return c
}

// Classify returns the label of the first rule with a keyword found in
// clause, or General.
func (c *Classifier) Classify(clause string) string {
	if clause == "" {
		return General
	}
	lower := core.LowerASCII(clause)
	for _, r := range c.rules {
		if slices.ContainsFunc(r.Keywords, func(k string) bool { return strings.Contains(lower, k) }) {
			return r.Name
		}
	}
	return General
}

// Names returns the section labels in rule order.
func (c *Classifier) Names() []string {
	names := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		names = append(names, r.Name)
	}
	return names
}

type tableFile struct {
	Sections []Rule `yaml:"sections"`
}

// ParseRules reads a section table from YAML data.
func ParseRules(data []byte) ([]Rule, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing section YAML: %w", err)
	}
	if len(file.Sections) == 0 {
		return nil, ErrNoRules
	}
	return file.Sections, nil
}

// LoadClassifier reads a YAML section table from path and builds a classifier.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading section table %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return NewClassifier(rules...)
}
