package character

import "fmt"

const (
	ZaraID = "zara"
	FinnID = "finn"
)

// DefaultCast returns fresh seed state for Zara and Finn and the
// relationship between them. Every call returns new values.
func DefaultCast() ([]*Character, *Relationship) {
	zara := &Character{
		ID:          ZaraID,
		Name:        "Zara",
		CurrentTier: 1,
		Attributes: map[Attribute]int{
			Differentiation:   2,
			Enmeshment:        6,
			AnxietyManagement: 3,
			Projection:        5,
			ValidationSeeking: 4,
			Triangulation:     2,
			BoundaryClarity:   3,
		},
		Thresholds: map[int]Requirements{
			2: {Differentiation: 5, BoundaryClarity: 5},
			3: {Differentiation: 10, BoundaryClarity: 8, AnxietyManagement: 7},
		},
	}

	finn := &Character{
		ID:          FinnID,
		Name:        "Finn",
		CurrentTier: 1,
		Attributes: map[Attribute]int{
			Differentiation:   3,
			Enmeshment:        5,
			AnxietyManagement: 2,
			Projection:        3,
			ValidationSeeking: 6,
			Triangulation:     4,
			BoundaryClarity:   2,
		},
		Thresholds: map[int]Requirements{
			2: {AnxietyManagement: 5, ValidationSeeking: 8},
			3: {AnxietyManagement: 9, Differentiation: 8, BoundaryClarity: 6},
		},
	}

	rel := NewRelationship(ZaraID, FinnID, map[string]int{
		Trust:            35,
		Alliance:         20,
		InsightAgreement: 0,
	})

	return []*Character{zara, finn}, rel
}

// Validate checks that a character is usable by the engine.
func (c *Character) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if c.CurrentTier < 1 {
		return fmt.Errorf("character %s: tier must be at least 1, got %d", c.ID, c.CurrentTier)
	}
	for attr := range c.Attributes {
		if !attr.IsKnown() {
			return fmt.Errorf("character %s: unknown attribute %q", c.ID, attr)
		}
	}
	for tier, req := range c.Thresholds {
		if tier < 2 {
			return fmt.Errorf("character %s: threshold defined for tier %d", c.ID, tier)
		}
		for attr := range req {
			if !attr.IsKnown() {
				return fmt.Errorf("character %s: tier %d threshold uses unknown attribute %q", c.ID, tier, attr)
			}
		}
	}
	return nil
}
