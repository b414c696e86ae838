package main

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
	"github.com/jwebster45206/freud-of-the-dark/pkg/textfilter"
)

var (
	strict bool
	rating string
)

var rootCmd = &cobra.Command{
	Use:   "validate <snippets.json|snippets.yaml>...",
	Short: "Validate snippet data files",
	Long: `Load each snippet file the way the game does and report problems.

Load errors (bad JSON/YAML, missing ids, unknown categories, bad polarity,
duplicate ids) always fail. With --strict the validator also checks:
  - ids are lowercase snake_case
  - every speaker belongs to the cast
  - every topic has a fallback line for every cast member
  - tiers do not exceed the speaker's highest tier`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runValidate,
}

func init() {
	rootCmd.Flags().BoolVar(&strict, "strict", false, "apply authoring conventions as errors")
	rootCmd.Flags().StringVar(&rating, "rating", "", "warn about text rewritten at this content rating (G, PG, PG13)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, path := range args {
		fmt.Fprintf(out, "Validating %s...\n", path)

		report, err := validateFile(path, strict, textfilter.ParseRating(rating))
		if err != nil {
			fmt.Fprintf(out, "  error: %v\n", err)
			failed++
			continue
		}
		for _, w := range report.warnings {
			fmt.Fprintf(out, "  warning: %s\n", w)
		}
		for _, e := range report.errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
		if len(report.errors) > 0 {
			failed++
			continue
		}
		fmt.Fprintf(out, "  ok: %d topics, %d snippets\n", report.topics, report.snippets)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(args))
	}
	return nil
}

type report struct {
	topics   int
	snippets int
	errors   []string
	warnings []string
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func validateFile(path string, strict bool, rating textfilter.Rating) (*report, error) {
	catalog, err := snippet.LoadFile(path)
	if err != nil {
		return nil, err
	}

	r := &report{topics: len(catalog.ListTopics()), snippets: catalog.Len()}
	if strict {
		r.errors = checkConventions(catalog)
	}
	if rating.Filters() {
		filter := textfilter.New(rating)
		for _, s := range catalog.All() {
			if filter.Contains(s.Text) {
				r.warnings = append(r.warnings, fmt.Sprintf("%s: text is rewritten at rating %s", s.ID, rating))
			}
		}
	}
	return r, nil
}

func checkConventions(catalog *snippet.Catalog) []string {
	cast, _ := character.DefaultCast()
	maxTier := make(map[string]int, len(cast))
	for _, c := range cast {
		top := 1
		for tier := range c.Thresholds {
			top = max(top, tier)
		}
		maxTier[c.ID] = top
	}

	var problems []string
	for _, s := range catalog.All() {
		if !s.NoMore && !validIDRegex.MatchString(s.ID) {
			problems = append(problems, fmt.Sprintf("snippet id %q should be lowercase snake_case", s.ID))
		}
		top, ok := maxTier[s.CharacterID]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: speaker %q is not in the cast", s.ID, s.CharacterID))
			continue
		}
		if s.Tier > top {
			problems = append(problems, fmt.Sprintf("%s: tier %d is unreachable (highest is %d)", s.ID, s.Tier, top))
		}
	}

	for _, topic := range catalog.ListTopics() {
		for _, c := range cast {
			if _, ok := catalog.FindFallback(c.ID, topic, c.CurrentTier); !ok {
				problems = append(problems, fmt.Sprintf("topic %q has no fallback line for %s", topic, c.ID))
			}
		}
	}

	slices.Sort(problems)
	return problems
}
