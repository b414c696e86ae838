package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/session"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
)

const helpText = `Commands:
• /topics - List topics
• /topic <n|name> - Choose a topic
• /speaker <zara|finn> - Choose who speaks (Tab toggles)
• /ask - Hear from the speaker on the topic (or press Enter on an empty line)
• /tag <note> <category> <+|-> - Categorize a note
• /propose <note> <category> <+|-> - Propose an insight
• /notes - Review this session's notes
• /copy - Copy notes to the clipboard
• /new - Start a new session
• /help - Show this help
• Ctrl+C - Quit`

// command is a parsed console command.
type command struct {
	name     string
	arg      string
	note     int // 1-based note number for tag/propose
	category string
	polarity snippet.Polarity
}

var errUsage = errors.New("usage")

// parseCommand splits an input line such as "/tag 2 Validation Seeking -".
func parseCommand(input string) (command, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return command{}, fmt.Errorf("commands start with /: %w", errUsage)
	}
	name, rest, _ := strings.Cut(input[1:], " ")
	cmd := command{name: strings.ToLower(name), arg: strings.TrimSpace(rest)}

	switch cmd.name {
	case "tag", "propose":
		fields := strings.Fields(cmd.arg)
		if len(fields) < 3 {
			return cmd, fmt.Errorf("/%s <note> <category> <+|->: %w", cmd.name, errUsage)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 1 {
			return cmd, fmt.Errorf("note number %q: %w", fields[0], errUsage)
		}
		p, err := parseSign(fields[len(fields)-1])
		if err != nil {
			return cmd, err
		}
		cmd.note = n
		cmd.category = strings.Join(fields[1:len(fields)-1], " ")
		cmd.polarity = p
	case "speaker", "topic":
		if cmd.arg == "" {
			return cmd, fmt.Errorf("/%s needs an argument: %w", cmd.name, errUsage)
		}
	case "topics", "ask", "notes", "copy", "new", "help":
	default:
		return cmd, fmt.Errorf("unknown command /%s: %w", cmd.name, errUsage)
	}
	return cmd, nil
}

// parseSign accepts +/- shorthands as well as the full polarity names.
func parseSign(s string) (snippet.Polarity, error) {
	switch s {
	case "+":
		return snippet.Positive, nil
	case "-":
		return snippet.Negative, nil
	}
	return snippet.ParsePolarity(s)
}

// resolveTopic accepts a 1-based index into topics or a case-insensitive name.
func resolveTopic(topics []string, arg string) (string, bool) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(topics) {
			return topics[n-1], true
		}
		return "", false
	}
	for _, t := range topics {
		if strings.EqualFold(t, arg) {
			return t, true
		}
	}
	return "", false
}

// formatNotes renders session notes as plain text for review and copying.
func formatNotes(notes []session.Note, names map[string]string, rewrite func(string) string) string {
	if len(notes) == 0 {
		return "No notes yet this session."
	}
	var b strings.Builder
	for i, n := range notes {
		speaker := names[n.CharacterID]
		if speaker == "" {
			speaker = n.CharacterID
		}
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, n.Topic, speaker, rewrite(n.Text))
		if n.Categorization == nil {
			continue
		}
		for _, e := range n.Categorization.Entries {
			status := "untested"
			switch {
			case e.Succeeded():
				status = "insight"
			case e.Proposed:
				status = "missed"
			}
			fmt.Fprintf(&b, "   - %s (%s) %s\n", e.Category, e.Polarity, status)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var displayCategories = func() map[string]string {
	caser := cases.Title(language.English)
	m := make(map[string]string)
	for _, name := range snippet.CategoryNames() {
		m[snippet.CategoryKey(name)] = name
	}
	for _, key := range []string{character.Trust, character.Alliance, character.InsightAgreement} {
		name := snippet.DisplayName(key, caser)
		m[snippet.CategoryKey(name)] = name
	}
	return m
}()

// canonicalCategory maps loose player input such as "validation seeking"
// onto the authored label. Unknown names pass through unchanged.
func canonicalCategory(name string) string {
	if display, ok := displayCategories[snippet.CategoryKey(name)]; ok {
		return display
	}
	return name
}
