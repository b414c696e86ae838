package conversation

import "errors"

var (
	// ErrNoContentAvailable means neither a regular nor a fallback snippet
	// exists for the requested speaker and topic. Callers should route the
	// player to another topic.
	ErrNoContentAvailable = errors.New("no content available")

	// ErrMissingData means an insight or categorization named a snippet or
	// category the engine is not tracking.
	ErrMissingData = errors.New("missing data")

	// ErrAlreadyUsed means the (snippet, category) pair already scored.
	ErrAlreadyUsed = errors.New("already successfully used")

	ErrUnknownCharacter = errors.New("unknown character")

	ErrInvalidPolarity = errors.New("invalid polarity")

	// ErrSessionComplete means the session reached its delivery cap. Notes
	// can still be categorized and proposed; StartNewSession reopens
	// delivery.
	ErrSessionComplete = errors.New("session complete")
)

// Reasons carried by failed insight results.
const (
	ReasonSnippetNotFound     = "Snippet not found"
	ReasonCategoryNotAssigned = "Category not assigned"
	ReasonAlreadyUsed         = "Already successfully used"
	ReasonIncorrect           = "Incorrect categorization"
	ReasonInvalidPolarity     = "Invalid polarity"
)
