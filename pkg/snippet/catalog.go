package snippet

import (
	"fmt"
	"slices"
)

// Catalog is the complete snippet table. It is read-only once built.
type Catalog struct {
	snippets []Snippet
	byID     map[string]int
	topics   []string
	source   string
}

func newCatalog(snippets []Snippet) (*Catalog, error) {
	c := &Catalog{
		snippets: snippets,
		byID:     make(map[string]int, len(snippets)),
	}

	for i, s := range snippets {
		if s.ID == "" {
			continue
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate snippet id %q", s.ID)
		}
		c.byID[s.ID] = i
		if !s.NoMore && !slices.Contains(c.topics, s.Topic) {
			c.topics = append(c.topics, s.Topic)
		}
	}
	slices.Sort(c.topics)

	return c, nil
}

// Source is the file the catalog was loaded from, or "builtin".
func (c *Catalog) Source() string {
	return c.source
}

// Len returns the number of snippets, fallbacks included.
func (c *Catalog) Len() int {
	return len(c.snippets)
}

// ListTopics returns the sorted distinct topics of all regular snippets.
func (c *Catalog) ListTopics() []string {
	return slices.Clone(c.topics)
}

// Get looks up a snippet by id.
func (c *Catalog) Get(id string) (Snippet, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Snippet{}, false
	}
	return c.snippets[i].Clone(), true
}

// Snippets returns the regular snippets for a speaker and topic in source
// order. Fallback snippets are excluded.
func (c *Catalog) Snippets(characterID, topic string) []Snippet {
	var out []Snippet
	for _, s := range c.snippets {
		if !s.NoMore && s.CharacterID == characterID && s.Topic == topic {
			out = append(out, s.Clone())
		}
	}
	return out
}

// FindFallback returns the NoMore snippet for a speaker and topic whose tier
// requirement is met by tier.
func (c *Catalog) FindFallback(characterID, topic string, tier int) (Snippet, bool) {
	for _, s := range c.snippets {
		if s.NoMore && s.CharacterID == characterID && s.Topic == topic && s.Tier <= tier {
			return s.Clone(), true
		}
	}
	return Snippet{}, false
}

// Speakers returns the sorted distinct character ids that have content.
func (c *Catalog) Speakers() []string {
	var speakers []string
	for _, s := range c.snippets {
		if !slices.Contains(speakers, s.CharacterID) {
			speakers = append(speakers, s.CharacterID)
		}
	}
	slices.Sort(speakers)
	return speakers
}

// All returns copies of every snippet in catalog order.
func (c *Catalog) All() []Snippet {
	out := make([]Snippet, len(c.snippets))
	for i, s := range c.snippets {
		out[i] = s.Clone()
	}
	return out
}
