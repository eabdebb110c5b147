package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// Style definitions for the chat session.
var (
	chatTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	chatUserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	chatBotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	chatResultOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	chatResultWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	chatResultErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	chatPromptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	chatHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type chatLine struct {
	speaker string
	text    string
	results []models.ToolCallResult
}

type chatModel struct {
	userID         string
	conversationID string
	width          int

	lines   []chatLine
	input   []rune
	waiting bool
	err     error
}

// turnMsg carries one resolved turn back to the model.
type turnMsg struct {
	conversationID string
	reply          string
	results        []models.ToolCallResult
	err            error
}

func newChatModel(userID string) chatModel {
	return chatModel{userID: userID}
}

func (m chatModel) Init() tea.Cmd {
	return nil
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case turnMsg:
		m.waiting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.conversationID = msg.conversationID
		m.lines = append(m.lines, chatLine{speaker: "tdc", text: msg.reply, results: msg.results})
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(string(m.input))
			if text == "" {
				return m, nil
			}
			if text == "quit" || text == "exit" {
				return m, tea.Quit
			}
			m.input = nil
			m.waiting = true
			m.lines = append(m.lines, chatLine{speaker: m.userID, text: text})
			return m, sendTurn(m.userID, m.conversationID, text)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		case tea.KeySpace:
			m.input = append(m.input, ' ')
			return m, nil
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
			return m, nil
		}
	}
	return m, nil
}

// sendTurn runs one turn through the pipeline off the UI goroutine.
func sendTurn(userID, conversationID, text string) tea.Cmd {
	return func() tea.Msg {
		turn, err := Pipeline.ResolveAndExecute(context.Background(), userID, conversationID, text)
		if err != nil {
			return turnMsg{err: err}
		}
		return turnMsg{
			conversationID: turn.ConversationID,
			reply:          turn.Reply,
			results:        turn.Results,
		}
	}
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(chatTitleStyle.Render("todo-chat"))
	b.WriteString("\n\n")

	for _, line := range m.lines {
		if line.speaker == "tdc" {
			b.WriteString(chatBotStyle.Render(line.text))
			b.WriteString("\n")
			for _, r := range line.results {
				b.WriteString("  " + renderResultBadge(r) + "\n")
			}
		} else {
			b.WriteString(chatUserStyle.Render(line.speaker+"> ") + line.text + "\n")
		}
	}

	if m.err != nil {
		b.WriteString(chatResultErr.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.waiting {
		b.WriteString(chatHelpStyle.Render("thinking..."))
	} else {
		b.WriteString(chatPromptStyle.Render("> ") + string(m.input) + "█")
	}
	b.WriteString("\n\n")
	b.WriteString(chatHelpStyle.Render("enter: send  •  esc: quit"))
	return b.String()
}

func renderResultBadge(r models.ToolCallResult) string {
	label := fmt.Sprintf("[%s] %s", r.Status, r.Command.Intent)
	switch r.Status {
	case models.ResultSuccess:
		return chatResultOK.Render(label)
	case models.ResultNotFound, models.ResultValidationFailed:
		return chatResultWarn.Render(label)
	default:
		return chatResultErr.Render(label)
	}
}

// runChatUI starts the interactive chat session.
func runChatUI(userID string) error {
	p := tea.NewProgram(newChatModel(userID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running chat session: %w", err)
	}
	return nil
}
