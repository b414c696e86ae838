package character

import "testing"

func TestRelationship_Meets(t *testing.T) {
	rel := NewRelationship("zara", "finn", map[string]int{Trust: 20, Alliance: 10})

	tests := []struct {
		name string
		req  map[string]int
		want bool
	}{
		{"empty requirements", nil, true},
		{"trust below minimum", map[string]int{Trust: 30}, false},
		{"trust at minimum", map[string]int{Trust: 20}, true},
		{"one of two fails", map[string]int{Trust: 10, Alliance: 15}, false},
		{"missing attribute counts as zero", map[string]int{InsightAgreement: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rel.Meets(tt.req); got != tt.want {
				t.Errorf("Meets(%v) = %v, want %v", tt.req, got, tt.want)
			}
		})
	}

	rel.Attributes[Trust] = 30
	if !rel.Meets(map[string]int{Trust: 30}) {
		t.Error("expected trust requirement to pass once trust reaches 30")
	}
}

func TestPairKey_Unordered(t *testing.T) {
	if PairKey("zara", "finn") != PairKey("finn", "zara") {
		t.Error("PairKey should not depend on argument order")
	}

	rel := NewRelationship("zara", "finn", nil)
	if rel.Key() != "finn:zara" {
		t.Errorf("Key() = %q, want %q", rel.Key(), "finn:zara")
	}
	if rel.Attributes == nil {
		t.Error("expected attributes map to be initialized")
	}
}
