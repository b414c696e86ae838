package character

import (
	"maps"
	"strings"
)

// Shared relational metrics.
const (
	Trust            = "trust"
	Alliance         = "alliance"
	InsightAgreement = "insightAgreement"
)

// Relationship holds the shared attributes between two characters.
// Nothing in the conversation flow writes to it; it gates content only.
type Relationship struct {
	Partners   [2]string      `json:"partners"`
	Attributes map[string]int `json:"attributes"`
}

// NewRelationship builds a relationship between a and b. Partner order is
// normalized so the pair is unordered.
func NewRelationship(a, b string, attrs map[string]int) *Relationship {
	if b < a {
		a, b = b, a
	}
	if attrs == nil {
		attrs = make(map[string]int)
	}
	return &Relationship{
		Partners:   [2]string{a, b},
		Attributes: attrs,
	}
}

// PairKey returns a stable key for the unordered pair (a, b).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, ":")
}

// Key returns the relationship's pair key.
func (r *Relationship) Key() string {
	return PairKey(r.Partners[0], r.Partners[1])
}

// Involves reports whether characterID is one of the partners.
func (r *Relationship) Involves(characterID string) bool {
	return r.Partners[0] == characterID || r.Partners[1] == characterID
}

// Meets reports whether every requirement is satisfied. Missing
// attributes count as zero. An empty requirement set always passes.
func (r *Relationship) Meets(requirements map[string]int) bool {
	for attr, minimum := range requirements {
		if r.Attributes[attr] < minimum {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	return &Relationship{
		Partners:   r.Partners,
		Attributes: maps.Clone(r.Attributes),
	}
}
