package snippet

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Polarity is the direction a category is expressed in a snippet.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
)

// ParsePolarity accepts "positive" or "negative" in any case.
func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(strings.ToLower(strings.TrimSpace(s))); p {
	case Positive, Negative:
		return p, nil
	default:
		return "", fmt.Errorf("invalid polarity %q: must be %q or %q", s, Positive, Negative)
	}
}

// Valid reports whether p is one of the two polarities.
func (p Polarity) Valid() bool {
	return p == Positive || p == Negative
}

// Category is one authored, correct classification of a snippet.
type Category struct {
	Name     string   `json:"category"`
	Polarity Polarity `json:"polarity"`
	Score    int      `json:"score"`
}

// Snippet is a single line of authored dialogue for one speaker in one topic.
type Snippet struct {
	ID          string `json:"id"`
	CharacterID string `json:"character_id"`
	Text        string `json:"text"`
	Topic       string `json:"topic"`
	// Tier is the minimum speaker tier required to unlock the snippet.
	Tier                     int            `json:"tier"`
	RelationshipRequirements map[string]int `json:"relationship_requirements,omitempty"`
	Categories               []Category     `json:"categories,omitempty"`
	// NoMore marks the terminal line shown once a speaker's pool for a
	// topic is exhausted.
	NoMore bool `json:"no_more,omitempty"`
}

// Match returns the authored category matching name and polarity exactly.
func (s Snippet) Match(name string, polarity Polarity) (Category, bool) {
	for _, c := range s.Categories {
		if c.Name == name && c.Polarity == polarity {
			return c, true
		}
	}
	return Category{}, false
}

// Clone returns a copy that shares no slices or maps with s.
func (s Snippet) Clone() Snippet {
	s.RelationshipRequirements = maps.Clone(s.RelationshipRequirements)
	s.Categories = slices.Clone(s.Categories)
	return s
}
