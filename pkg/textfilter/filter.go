package textfilter

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rating is a content rating for delivered dialogue.
type Rating string

const (
	RatingG    Rating = "G"
	RatingPG   Rating = "PG"
	RatingPG13 Rating = "PG13"
	RatingR    Rating = "R"
)

// ParseRating normalizes a rating string. Unknown values fall back to R,
// which leaves text untouched.
func ParseRating(s string) Rating {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "") {
	case "G":
		return RatingG
	case "PG":
		return RatingPG
	case "PG13":
		return RatingPG13
	default:
		return RatingR
	}
}

// Filters reports whether text is rewritten at this rating.
func (r Rating) Filters() bool {
	return r != RatingR
}

// Replacements for language a dragon and her partner tend to use when the
// session gets heated. Keys are lowercase.
var replacements = map[string]string{
	"damn":     "dang",
	"damned":   "darned",
	"hell":     "heck",
	"crap":     "crud",
	"bastard":  "brute",
	"bitch":    "jerk",
	"ass":      "fool",
	"asshole":  "jerk",
	"shit":     "shoot",
	"bullshit": "nonsense",
	"fuck":     "fudge",
	"fucking":  "flipping",
	"piss":     "tick",
	"pissed":   "ticked",
	"goddamn":  "gosh-darn",
}

// Filter rewrites coarse language to mild alternatives.
type Filter struct {
	rating  Rating
	pattern *regexp.Regexp
}

// New builds a filter for rating.
func New(rating Rating) *Filter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, regexp.QuoteMeta(w))
	}
	// Longest first so "asshole" wins over "ass".
	slices.SortFunc(words, func(a, b string) int { return len(b) - len(a) })

	return &Filter{
		rating:  rating,
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`),
	}
}

// Rating returns the filter's rating.
func (f *Filter) Rating() Rating {
	return f.rating
}

// Apply returns text rewritten for the filter's rating.
func (f *Filter) Apply(text string) string {
	if !f.rating.Filters() {
		return text
	}
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return matchCase(match, replacements[strings.ToLower(match)])
	})
}

// Contains reports whether text has any filtered word.
func (f *Filter) Contains(text string) bool {
	return f.pattern.MatchString(text)
}

// matchCase copies the casing style of original onto replacement.
func matchCase(original, replacement string) string {
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return replacement
	}

	first := []rune(original)[0]
	if unicode.IsUpper(first) {
		return cases.Title(language.English).String(replacement)
	}
	return replacement
}
