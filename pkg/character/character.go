package character

import (
	"maps"
	"slices"
)

// Attribute is a named psychological score tracked per character.
type Attribute string

const (
	Differentiation   Attribute = "differentiation"
	Enmeshment        Attribute = "enmeshment"
	AnxietyManagement Attribute = "anxietyManagement"
	Projection        Attribute = "projection"
	ValidationSeeking Attribute = "validationSeeking"
	Triangulation     Attribute = "triangulation"
	BoundaryClarity   Attribute = "boundaryClarity"
)

// Attributes lists every individual attribute in display order.
var Attributes = []Attribute{
	Differentiation,
	Enmeshment,
	AnxietyManagement,
	Projection,
	ValidationSeeking,
	Triangulation,
	BoundaryClarity,
}

// IsKnown reports whether a is one of the fixed individual attributes.
func (a Attribute) IsKnown() bool {
	return slices.Contains(Attributes, a)
}

// Requirements maps attributes to the minimum value each must reach.
type Requirements map[Attribute]int

// Character is a speaker in the session along with their mutable
// psychological state.
type Character struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	CurrentTier int               `json:"current_tier"`
	Attributes  map[Attribute]int `json:"attributes"`
	// Thresholds maps a tier number (2, 3, ...) to the requirements that
	// must all hold at once to unlock it.
	Thresholds map[int]Requirements `json:"thresholds,omitempty"`
}

// MeetsTier reports whether the character has reached the required tier.
func (c *Character) MeetsTier(required int) bool {
	return c.CurrentTier >= required
}

// Attribute returns the current value of attr.
func (c *Character) Attribute(attr Attribute) (int, bool) {
	v, ok := c.Attributes[attr]
	return v, ok
}

// ApplyAttributeDelta adds delta to attr and then checks whether the next
// tier has unlocked. Unknown attributes are ignored and report applied=false;
// loosely typed content may name categories with no attribute counterpart.
// At most one tier step is taken per call.
func (c *Character) ApplyAttributeDelta(attr Attribute, delta int) (applied bool, advanced bool) {
	if _, ok := c.Attributes[attr]; !ok {
		return false, false
	}
	c.Attributes[attr] += delta
	return true, c.checkTierProgression()
}

// NextTierRequirements returns the thresholds for CurrentTier+1, if any.
func (c *Character) NextTierRequirements() (Requirements, bool) {
	req, ok := c.Thresholds[c.CurrentTier+1]
	return req, ok
}

func (c *Character) checkTierProgression() bool {
	next := c.CurrentTier + 1
	req, ok := c.Thresholds[next]
	if !ok {
		return false
	}
	for attr, minimum := range req {
		if c.Attributes[attr] < minimum {
			return false
		}
	}
	c.CurrentTier = next
	return true
}

// Clone returns a deep copy safe to hand to callers.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	clone := &Character{
		ID:          c.ID,
		Name:        c.Name,
		CurrentTier: c.CurrentTier,
		Attributes:  maps.Clone(c.Attributes),
		Thresholds:  make(map[int]Requirements, len(c.Thresholds)),
	}
	for tier, req := range c.Thresholds {
		clone.Thresholds[tier] = maps.Clone(req)
	}
	return clone
}
