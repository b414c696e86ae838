package snippet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a snippet source file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// noMoreKey is the topic-group key holding per-speaker fallback lines.
const noMoreKey = "noMore"

type sourceCategory struct {
	Category string `json:"category"`
	Polarity string `json:"polarity"`
	Score    int    `json:"score"`
}

type sourceSnippet struct {
	ID                       string           `json:"id"`
	Text                     string           `json:"text"`
	Tier                     int              `json:"tier"`
	TrustRequired            int              `json:"trustRequired"`
	RelationshipRequirements map[string]int   `json:"relationshipRequirements"`
	Categories               []sourceCategory `json:"categories"`
}

// FormatForPath picks a format from the file extension. Anything other than
// .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and parses a snippet source file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DataLoadError{Source: path, Err: fmt.Errorf("file not found")}
		}
		return nil, &DataLoadError{Source: path, Err: err}
	}

	c, err := Parse(data, FormatForPath(path))
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Source = path
		}
		return nil, err
	}
	c.source = path
	return c, nil
}

// LoadOrBuiltin loads path and falls back to the built-in snippet set when
// the data is missing or malformed. It never fails.
func LoadOrBuiltin(path string, logger *slog.Logger) *Catalog {
	c, err := LoadFile(path)
	if err != nil {
		logger.Warn("Snippet data unavailable, using built-in snippets", "path", path, "error", err)
		return Builtin()
	}
	logger.Info("Snippet data loaded", "path", path, "snippets", c.Len(), "topics", len(c.ListTopics()))
	return c
}

// Parse decodes topic-grouped snippet data:
//
//	{"Topic": {"zara": [{...}], "finn": [{...}], "noMore": {"zara": "...", "finn": "..."}}}
//
// One NoMore snippet is synthesized per (speaker, topic) from the noMore pair.
func Parse(data []byte, format Format) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DataLoadError{Err: fmt.Errorf("no snippet data")}
	}

	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &DataLoadError{Err: err}
		}
		data = converted
	}

	var topics map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, &DataLoadError{Err: fmt.Errorf("invalid snippet data: %w", err)}
	}
	if len(topics) == 0 {
		return nil, &DataLoadError{Err: fmt.Errorf("no topics defined")}
	}

	var snippets []Snippet
	var problems []string
	fallbackTopics := make(map[string]string)

	topicNames := sortedKeys(topics)
	for _, topic := range topicNames {
		group := topics[topic]

		var noMore map[string]string
		if raw, ok := group[noMoreKey]; ok {
			if err := json.Unmarshal(raw, &noMore); err != nil {
				problems = append(problems, fmt.Sprintf("topic %q: invalid noMore block: %v", topic, err))
			}
		}

		for _, speaker := range sortedKeys(group) {
			if speaker == noMoreKey {
				continue
			}
			var entries []sourceSnippet
			if err := json.Unmarshal(group[speaker], &entries); err != nil {
				problems = append(problems, fmt.Sprintf("topic %q speaker %q: %v", topic, speaker, err))
				continue
			}
			for _, e := range entries {
				s, errs := e.toSnippet(speaker, topic)
				problems = append(problems, errs...)
				snippets = append(snippets, s)
			}
		}

		for _, speaker := range sortedKeys(noMore) {
			text := strings.TrimSpace(noMore[speaker])
			if text == "" {
				problems = append(problems, fmt.Sprintf("topic %q: empty noMore text for %q", topic, speaker))
				continue
			}
			id := FallbackID(speaker, topic)
			if other, ok := fallbackTopics[id]; ok {
				problems = append(problems, fmt.Sprintf("topics %q and %q both produce fallback id %q for %q; rename one topic", other, topic, id, speaker))
				continue
			}
			fallbackTopics[id] = topic
			snippets = append(snippets, Snippet{
				ID:          id,
				CharacterID: speaker,
				Text:        text,
				Topic:       topic,
				Tier:        1,
				NoMore:      true,
			})
		}
	}

	c, err := newCatalog(snippets)
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return nil, &DataLoadError{Err: errors.New(strings.Join(problems, "; "))}
	}
	return c, nil
}

func (e sourceSnippet) toSnippet(speaker, topic string) (Snippet, []string) {
	var problems []string
	where := fmt.Sprintf("topic %q speaker %q snippet %q", topic, speaker, e.ID)

	if e.ID == "" {
		problems = append(problems, fmt.Sprintf("topic %q speaker %q: snippet without id", topic, speaker))
	}
	if strings.TrimSpace(e.Text) == "" {
		problems = append(problems, where+": empty text")
	}
	tier := e.Tier
	if tier == 0 {
		tier = 1
	}
	if tier < 0 {
		problems = append(problems, fmt.Sprintf("%s: negative tier %d", where, e.Tier))
	}

	var reqs map[string]int
	if len(e.RelationshipRequirements) > 0 || e.TrustRequired > 0 {
		reqs = make(map[string]int, len(e.RelationshipRequirements)+1)
		for k, v := range e.RelationshipRequirements {
			reqs[k] = v
		}
		if e.TrustRequired > 0 {
			reqs["trust"] = e.TrustRequired
		}
	}

	cats := make([]Category, 0, len(e.Categories))
	for _, sc := range e.Categories {
		p, err := ParsePolarity(sc.Polarity)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
		}
		if !IsKnownCategory(sc.Category) {
			problems = append(problems, fmt.Sprintf("%s: unknown category %q", where, sc.Category))
		}
		cats = append(cats, Category{Name: sc.Category, Polarity: p, Score: sc.Score})
	}

	return Snippet{
		ID:                       e.ID,
		CharacterID:              speaker,
		Text:                     e.Text,
		Topic:                    topic,
		Tier:                     tier,
		RelationshipRequirements: reqs,
		Categories:               cats,
	}, problems
}

// FallbackID is the synthesized id of the NoMore snippet for a speaker and topic.
func FallbackID(speaker, topic string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(topic))
	return speaker + "_nomore_" + slug
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid snippet yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert snippet yaml: %w", err)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
