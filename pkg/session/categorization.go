package session

import (
	"slices"

	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

// Entry is the player's label for one category on a snippet.
type Entry struct {
	Category string           `json:"category"`
	Polarity snippet.Polarity `json:"polarity"`
	Proposed bool             `json:"proposed"`
	// Successful is nil until the entry has been proposed.
	Successful *bool `json:"successful,omitempty"`
}

// Succeeded reports whether the entry was proposed and scored.
func (e Entry) Succeeded() bool {
	return e.Successful != nil && *e.Successful
}

// Categorization holds every category the player has assigned to a snippet.
type Categorization struct {
	SnippetID string  `json:"snippet_id"`
	Entries   []Entry `json:"entries"`
}

// Find returns the index of the entry for category, or -1.
func (c *Categorization) Find(category string) int {
	return slices.IndexFunc(c.Entries, func(e Entry) bool {
		return e.Category == category
	})
}

// Upsert sets the polarity for category, adding the entry if needed.
// Entries that already succeeded keep their polarity; it returns false
// in that case.
func (c *Categorization) Upsert(category string, polarity snippet.Polarity) bool {
	i := c.Find(category)
	if i < 0 {
		c.Entries = append(c.Entries, Entry{Category: category, Polarity: polarity})
		return true
	}
	if c.Entries[i].Succeeded() {
		return false
	}
	c.Entries[i].Polarity = polarity
	return true
}

// MarkProposed records the outcome of an insight proposal.
func (c *Categorization) MarkProposed(i int, polarity snippet.Polarity, successful bool) {
	c.Entries[i].Polarity = polarity
	c.Entries[i].Proposed = true
	c.Entries[i].Successful = &successful
}

// Clone returns a deep copy.
func (c *Categorization) Clone() *Categorization {
	if c == nil {
		return nil
	}
	clone := &Categorization{
		SnippetID: c.SnippetID,
		Entries:   make([]Entry, len(c.Entries)),
	}
	for i, e := range c.Entries {
		clone.Entries[i] = e
		if e.Successful != nil {
			v := *e.Successful
			clone.Entries[i].Successful = &v
		}
	}
	return clone
}

// Categorizations stores records keyed by snippet id.
type Categorizations map[string]*Categorization

// Get returns the record for snippetID, if any.
func (cs Categorizations) Get(snippetID string) (*Categorization, bool) {
	c, ok := cs[snippetID]
	return c, ok
}

// GetOrCreate returns the record for snippetID, creating an empty one.
func (cs Categorizations) GetOrCreate(snippetID string) *Categorization {
	if c, ok := cs[snippetID]; ok {
		return c
	}
	c := &Categorization{SnippetID: snippetID}
	cs[snippetID] = c
	return c
}
