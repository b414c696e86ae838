package conversation

import (
	"fmt"

	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/session"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

// InsightResult is the outcome of an insight proposal.
type InsightResult struct {
	Success bool   `json:"success"`
	Score   int    `json:"score,omitempty"`
	Reason  string `json:"reason,omitempty"`

	CharacterID string              `json:"character_id,omitempty"`
	Attribute   character.Attribute `json:"attribute,omitempty"`
	// AttributeApplied is false for categories with no character attribute,
	// such as relationship-level categories.
	AttributeApplied bool `json:"attribute_applied,omitempty"`
	TierAdvanced     bool `json:"tier_advanced,omitempty"`
	Tier             int  `json:"tier,omitempty"`
}

// Categorize records the player's label for a snippet. Repeating the call
// for the same category keeps a single entry and takes the latest polarity.
// A category that already scored can no longer be relabelled.
func (e *Engine) Categorize(snippetID, category string, polarity snippet.Polarity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.catalog.Get(snippetID); !ok {
		return fmt.Errorf("categorize %q: snippet not found: %w", snippetID, ErrMissingData)
	}
	if category == "" {
		return fmt.Errorf("categorize %q: category is required: %w", snippetID, ErrMissingData)
	}
	if !polarity.Valid() {
		return fmt.Errorf("categorize %q: %q: %w", snippetID, polarity, ErrInvalidPolarity)
	}

	rec := e.categorizations.GetOrCreate(snippetID)
	if !rec.Upsert(category, polarity) {
		return fmt.Errorf("categorize %q as %q: %w", snippetID, category, ErrAlreadyUsed)
	}
	return nil
}

// Categorization returns a copy of the record for snippetID.
func (e *Engine) Categorization(snippetID string) (*session.Categorization, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.categorizations.Get(snippetID)
	return rec.Clone(), ok
}

// ProposeInsight commits a categorization for scoring. The category must
// have been assigned with Categorize first. An exact (category, polarity)
// match against the authored categories succeeds once, applies the authored
// score to the speaker's attribute and may advance their tier. Incorrect
// proposals can be retried; successful ones cannot.
//
// Business failures come back as a result with Success=false and a Reason.
// Missing data and repeat successes also return ErrMissingData or
// ErrAlreadyUsed; an incorrect guess returns a nil error.
func (e *Engine) ProposeInsight(snippetID, category string, polarity snippet.Polarity) (InsightResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.catalog.Get(snippetID)
	if !ok {
		return InsightResult{Reason: ReasonSnippetNotFound},
			fmt.Errorf("propose insight on %q: %w", snippetID, ErrMissingData)
	}

	rec, ok := e.categorizations.Get(snippetID)
	if !ok {
		return InsightResult{Reason: ReasonCategoryNotAssigned},
			fmt.Errorf("propose insight on %q: no categorization: %w", snippetID, ErrMissingData)
	}
	i := rec.Find(category)
	if i < 0 {
		return InsightResult{Reason: ReasonCategoryNotAssigned},
			fmt.Errorf("propose insight on %q: category %q not assigned: %w", snippetID, category, ErrMissingData)
	}
	if rec.Entries[i].Succeeded() {
		return InsightResult{Reason: ReasonAlreadyUsed},
			fmt.Errorf("propose insight on %q as %q: %w", snippetID, category, ErrAlreadyUsed)
	}
	if !polarity.Valid() {
		return InsightResult{Reason: ReasonInvalidPolarity},
			fmt.Errorf("propose insight on %q: %q: %w", snippetID, polarity, ErrInvalidPolarity)
	}

	match, ok := s.Match(category, polarity)
	rec.MarkProposed(i, polarity, ok)
	if !ok {
		e.logger.Debug("Insight incorrect", "snippet_id", snippetID, "category", category, "polarity", polarity)
		return InsightResult{Reason: ReasonIncorrect, CharacterID: s.CharacterID}, nil
	}

	result := InsightResult{
		Success:     true,
		Score:       match.Score,
		CharacterID: s.CharacterID,
	}

	c, ok := e.cast[s.CharacterID]
	if !ok {
		return result, nil
	}
	result.Tier = c.CurrentTier

	attr, ok := snippet.AttributeFor(match.Name)
	if !ok {
		e.logger.Debug("Category has no character attribute", "snippet_id", snippetID, "category", match.Name)
		return result, nil
	}

	result.Attribute = attr
	result.AttributeApplied, result.TierAdvanced = c.ApplyAttributeDelta(attr, match.Score)
	result.Tier = c.CurrentTier

	e.logger.Info("Insight scored",
		"snippet_id", snippetID,
		"character_id", c.ID,
		"attribute", attr,
		"score", match.Score,
		"tier", c.CurrentTier)
	if result.TierAdvanced {
		e.logger.Info("Tier advanced", "character_id", c.ID, "tier", c.CurrentTier)
	}

	return result, nil
}
