package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/freud-of-the-dark/pkg/character"
	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
	"github.com/jwebster45206/freud-of-the-dark/pkg/textfilter"
)

const (
	AgentName       = "Dr. Freud"
	PlaceHolderText = "Type a /command, or press Enter to hear from the speaker..."
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

type entryKind int

const (
	entrySnippet entryKind = iota
	entryNarrator
	entryError
)

// entry is one transcript item. Entries are re-wrapped on resize.
type entry struct {
	kind    entryKind
	speaker string
	text    string
}

// ConsoleUI is the BubbleTea model that runs the session.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	engine *conversation.Engine
	filter *textfilter.Filter
	names  map[string]string

	speaker string
	topic   string

	transcript   []entry
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	showQuitModal bool
}

type clipboardMsg struct {
	err error
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(engine *conversation.Engine, filter *textfilter.Filter) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	names := make(map[string]string)
	for _, c := range engine.Characters() {
		names[c.ID] = c.Name
	}

	m := ConsoleUI{
		engine:       engine,
		filter:       filter,
		names:        names,
		speaker:      character.ZaraID,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: viewport.New(20, 20),
	}
	m.narrate("Welcome. Zara and Finn are on the couch. Pick a topic with /topics, then press Enter to listen.")
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth, metaWidth := m.panelWidths()
		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyTab:
			m.toggleSpeaker()
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				input = "/ask"
			}
			cmd := m.run(input)
			m.refresh()
			return m, cmd
		}

	case clipboardMsg:
		if msg.err != nil {
			m.fail(fmt.Errorf("copy notes: %w", msg.err))
		} else {
			m.narrate("Notes copied to the clipboard.")
		}
		m.refresh()
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// run executes one input line against the engine.
func (m *ConsoleUI) run(input string) tea.Cmd {
	cmd, err := parseCommand(input)
	if err != nil {
		m.fail(err)
		return nil
	}

	switch cmd.name {
	case "help":
		m.narrate(helpText)

	case "topics":
		topics := m.engine.AvailableTopics()
		var b strings.Builder
		b.WriteString("Topics:")
		for i, t := range topics {
			fmt.Fprintf(&b, "\n%d. %s", i+1, t)
		}
		m.narrate(b.String())

	case "topic":
		topic, ok := resolveTopic(m.engine.AvailableTopics(), cmd.arg)
		if !ok {
			m.fail(fmt.Errorf("no topic %q; try /topics", cmd.arg))
			return nil
		}
		m.topic = topic
		m.narrate("Let's talk about " + topic + ".")

	case "speaker":
		id := strings.ToLower(cmd.arg)
		if _, ok := m.engine.Character(id); !ok {
			m.fail(fmt.Errorf("no one called %q here", cmd.arg))
			return nil
		}
		m.speaker = id
		m.narrate(m.names[id] + ", what do you think?")

	case "ask":
		m.ask()

	case "tag", "propose":
		notes := m.engine.CurrentSessionSnippets()
		if cmd.note > len(notes) {
			m.fail(fmt.Errorf("there is no note %d; this session has %d", cmd.note, len(notes)))
			return nil
		}
		note := notes[cmd.note-1]
		category := canonicalCategory(cmd.category)
		if cmd.name == "tag" {
			if err := m.engine.Categorize(note.SnippetID, category, cmd.polarity); err != nil {
				m.fail(err)
				return nil
			}
			m.narrate(fmt.Sprintf("Note %d tagged %s (%s).", cmd.note, category, cmd.polarity))
			return nil
		}
		m.propose(cmd.note, note.SnippetID, category, cmd.polarity)

	case "notes":
		m.narrate(formatNotes(m.engine.CurrentSessionSnippets(), m.names, m.filter.Apply))

	case "copy":
		text := formatNotes(m.engine.CurrentSessionSnippets(), m.names, m.filter.Apply)
		return func() tea.Msg {
			return clipboardMsg{err: copyToClipboard(text)}
		}

	case "new":
		m.engine.StartNewSession()
		m.transcript = nil
		m.narrate("A new session begins. Everything is on the table again.")
	}
	return nil
}

func (m *ConsoleUI) ask() {
	if m.topic == "" {
		m.fail(errors.New("choose a topic first with /topic"))
		return
	}
	d, err := m.engine.DeliverSnippet(m.speaker, m.topic)
	if errors.Is(err, conversation.ErrNoContentAvailable) {
		m.narrate(fmt.Sprintf("%s has nothing to say about %s. Try another topic.", m.names[m.speaker], m.topic))
		return
	}
	if errors.Is(err, conversation.ErrSessionComplete) {
		m.narrate("Our time is up for today. Review your notes with /tag and /propose, then /new to begin again.")
		return
	}
	if err != nil {
		m.fail(err)
		return
	}

	n := len(m.engine.CurrentSessionSnippets())
	m.transcript = append(m.transcript, entry{
		kind:    entrySnippet,
		speaker: fmt.Sprintf("%s (note %d)", m.names[m.speaker], n),
		text:    m.filter.Apply(d.Snippet.Text),
	})
	if d.Fallback() {
		m.narrate("That topic is spent for " + m.names[m.speaker] + " this session.")
	}
	if d.SessionComplete {
		m.review()
	}
}

// review closes a capped session by walking the player through its notes.
func (m *ConsoleUI) review() {
	m.narrate("That's our time. Session review:\n\n" +
		formatNotes(m.engine.CurrentSessionSnippets(), m.names, m.filter.Apply) +
		"\n\nTag and propose insights on these notes, then /new for the next session.")
}

func (m *ConsoleUI) propose(noteNum int, snippetID, category string, polarity snippet.Polarity) {
	result, err := m.engine.ProposeInsight(snippetID, category, polarity)
	switch {
	case result.Success:
		msg := fmt.Sprintf("Insight! Note %d really is %s (%s).", noteNum, category, polarity)
		if result.AttributeApplied {
			label := snippet.DisplayName(string(result.Attribute), cases.Title(language.English))
			msg += fmt.Sprintf(" %s's %s shifts by %+d.", m.names[result.CharacterID], label, result.Score)
		}
		if result.TierAdvanced {
			msg += fmt.Sprintf(" %s reaches tier %d.", m.names[result.CharacterID], result.Tier)
		}
		m.narrate(msg)
	case result.Reason == conversation.ReasonIncorrect:
		m.narrate(fmt.Sprintf("Hmm. I don't think note %d is %s (%s). Think again.", noteNum, category, polarity))
	case err != nil:
		m.fail(fmt.Errorf("%s: %w", result.Reason, err))
	}
}

func (m *ConsoleUI) toggleSpeaker() {
	if m.speaker == character.ZaraID {
		m.speaker = character.FinnID
	} else {
		m.speaker = character.ZaraID
	}
}

func (m *ConsoleUI) narrate(text string) {
	m.transcript = append(m.transcript, entry{kind: entryNarrator, speaker: AgentName, text: text})
}

func (m *ConsoleUI) fail(err error) {
	m.transcript = append(m.transcript, entry{kind: entryError, text: "Error: " + err.Error()})
}

func (m ConsoleUI) panelWidths() (int, int) {
	chatWidth := int(float64(m.width)*0.75) - 4
	return chatWidth, m.width - chatWidth - 6
}

// refresh re-renders both panels for the current width.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	m.chatViewport.SetContent(m.writeChatContent(m.chatViewport.Width - 6))
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) writeChatContent(width int) string {
	width = max(width, 20)

	var content strings.Builder
	content.WriteString(titleStyle.Render("FREUD OF THE DARK") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, e := range m.transcript {
		switch e.kind {
		case entrySnippet:
			content.WriteString(speakerStyle.Render(e.speaker+":") + "\n")
			content.WriteString(wordwrap.String(e.text, width) + "\n\n")
		case entryNarrator:
			content.WriteString(narratorStyle.Render(e.speaker+":") + "\n")
			content.WriteString(wordwrap.String(e.text, width) + "\n\n")
		case entryError:
			content.WriteString(errorStyle.Render(wordwrap.String(e.text, width)) + "\n\n")
		}
	}
	return content.String()
}

func (m ConsoleUI) writeMetadata() string {
	caser := cases.Title(language.English)

	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	if id, ok := m.engine.SessionID(); ok {
		content.WriteString("ID: " + id.String()[:8] + "...\n")
	} else {
		content.WriteString("ID: not started\n")
	}
	if limit := m.engine.MaxDeliveries(); limit > 0 {
		fmt.Fprintf(&content, "Interactions: %d/%d\n", len(m.engine.CurrentSessionSnippets()), limit)
		if m.engine.SessionComplete() {
			content.WriteString("Status: review\n")
		}
	} else {
		fmt.Fprintf(&content, "Notes: %d\n", len(m.engine.CurrentSessionSnippets()))
	}
	content.WriteString("Speaker: " + m.names[m.speaker] + "\n")
	topic := m.topic
	if topic == "" {
		topic = "none"
	}
	content.WriteString("Topic: " + topic + "\n\n")

	for _, c := range m.engine.Characters() {
		content.WriteString(titleStyle.Render(strings.ToUpper(c.Name)) + "\n")
		fmt.Fprintf(&content, "Tier %d\n", c.CurrentTier)
		for _, attr := range character.Attributes {
			fmt.Fprintf(&content, "• %s: %d\n", snippet.DisplayName(string(attr), caser), c.Attributes[attr])
		}
		content.WriteString("\n")
	}

	rel := m.engine.Relationship()
	content.WriteString(titleStyle.Render("RELATIONSHIP") + "\n")
	for _, key := range []string{character.Trust, character.Alliance, character.InsightAgreement} {
		fmt.Fprintf(&content, "• %s: %d\n", snippet.DisplayName(key, caser), rel.Attributes[key])
	}

	content.WriteString("\nKeys:\n")
	content.WriteString("• Enter: Listen\n")
	content.WriteString("• Tab: Switch speaker\n")
	content.WriteString("• /help: Commands\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("End Session?"))
	content.WriteString("\n\n")
	content.WriteString("Progress is not saved between runs.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth, metaWidth := m.panelWidths()

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
