package snippet

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
)

// categoryAttributes maps folded category names to the character attribute
// a successful insight adjusts.
var categoryAttributes = map[string]character.Attribute{
	"differentiation":   character.Differentiation,
	"enmeshment":        character.Enmeshment,
	"anxietymanagement": character.AnxietyManagement,
	"projection":        character.Projection,
	"validationseeking": character.ValidationSeeking,
	"triangulation":     character.Triangulation,
	"boundaryclarity":   character.BoundaryClarity,
}

// relationshipCategories are valid categories that describe the pair rather
// than one speaker. They have no character attribute counterpart.
var relationshipCategories = map[string]string{
	"trust":            character.Trust,
	"alliance":         character.Alliance,
	"insightagreement": character.InsightAgreement,
}

// CategoryKey folds case and strips whitespace so "Anxiety Management",
// "anxiety management" and "AnxietyManagement" share a key.
func CategoryKey(name string) string {
	folded := cases.Fold().String(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// AttributeFor returns the character attribute a category adjusts.
// Relationship-level categories return false.
func AttributeFor(category string) (character.Attribute, bool) {
	attr, ok := categoryAttributes[CategoryKey(category)]
	return attr, ok
}

// IsKnownCategory reports whether category appears in either table.
func IsKnownCategory(category string) bool {
	key := CategoryKey(category)
	if _, ok := categoryAttributes[key]; ok {
		return true
	}
	_, ok := relationshipCategories[key]
	return ok
}

// CategoryNames returns display names for every individual attribute
// category, in attribute order.
func CategoryNames() []string {
	caser := cases.Title(language.English)
	names := make([]string, 0, len(character.Attributes))
	for _, attr := range character.Attributes {
		names = append(names, DisplayName(string(attr), caser))
	}
	return names
}

// DisplayName turns a camelCase attribute key into a title-cased label,
// e.g. "anxietyManagement" becomes "Anxiety Management".
func DisplayName(key string, caser cases.Caser) string {
	var b strings.Builder
	for i, r := range key {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return caser.String(b.String())
}
