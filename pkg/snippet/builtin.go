package snippet

import "fmt"

const builtinSource = `{
  "Getting Started": {
    "zara": [
      {
        "id": "builtin_zara_001",
        "text": "I am not sure why I am here. Finn thinks we need help. I think we need a bigger cave.",
        "tier": 1,
        "categories": [{"category": "Projection", "polarity": "negative", "score": 1}]
      }
    ],
    "finn": [
      {
        "id": "builtin_finn_001",
        "text": "Every time I bring up the hoard she changes the subject. I just want to know where I stand.",
        "tier": 1,
        "categories": [{"category": "Validation Seeking", "polarity": "negative", "score": 1}]
      }
    ],
    "noMore": {
      "zara": "Zara folds her wings. She has nothing more to say about that today.",
      "finn": "Finn shrugs. He has said all he can about that for now."
    }
  }
}`

// Builtin returns the minimal snippet set used when no data can be loaded.
func Builtin() *Catalog {
	c, err := Parse([]byte(builtinSource), FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("builtin snippets are invalid: %v", err))
	}
	c.source = "builtin"
	return c
}
