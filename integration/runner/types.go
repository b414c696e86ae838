package runner

import (
	"time"

	"github.com/google/uuid"
)

// Actions a step can take against a game.
const (
	ActionDeliver    = "deliver"
	ActionCategorize = "categorize"
	ActionInsight    = "insight"
	ActionNotes      = "notes"
	ActionNewSession = "new_session"
)

// LastDelivered in a step's snippet_id refers to the most recent delivery.
const LastDelivered = "$last"

// TestSuite is one scripted playthrough against a fresh game.
type TestSuite struct {
	Name  string     `yaml:"name"`
	Steps []TestStep `yaml:"steps"`
}

// TestStep is a single API call and what it should produce.
type TestStep struct {
	Name      string       `yaml:"name,omitempty"`
	Action    string       `yaml:"action"`
	Character string       `yaml:"character,omitempty"`
	Topic     string       `yaml:"topic,omitempty"`
	SnippetID string       `yaml:"snippet_id,omitempty"`
	Category  string       `yaml:"category,omitempty"`
	Polarity  string       `yaml:"polarity,omitempty"`
	Expect    Expectations `yaml:"expect"`
}

// Expectations are checked after a step. Unset fields are not checked.
type Expectations struct {
	Status *int `yaml:"status,omitempty"` // defaults to 200

	// Delivery
	SnippetID string   `yaml:"snippet_id,omitempty"`
	SnippetIn []string `yaml:"snippet_in,omitempty"`
	Fallback  *bool    `yaml:"fallback,omitempty"`
	NoContent *bool    `yaml:"no_content,omitempty"`
	// SessionComplete expects the delivery to reach the session cap.
	SessionComplete *bool `yaml:"session_complete,omitempty"`

	// Insight
	Success *bool  `yaml:"success,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
	Score   *int   `yaml:"score,omitempty"`

	// Read back after the step
	Notes      *int                      `yaml:"notes,omitempty"`
	Tiers      map[string]int            `yaml:"tiers,omitempty"`
	Attributes map[string]map[string]int `yaml:"attributes,omitempty"`
}

// TestResult is the outcome of one step.
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestRunResult is the outcome of one suite.
type TestRunResult struct {
	Name     string
	GameID   uuid.UUID
	Results  []TestResult
	Error    error
	Duration time.Duration
}
