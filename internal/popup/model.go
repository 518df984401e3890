package popup

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	mutedButton  = buttonStyle.Background(lipgloss.Color("240"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	contentFrame = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var modeHelp = map[string]string{
	"readability": "Attempts to identify and extract the main article content.",
	"basic":       "Extracts all text after removing common noise elements.",
	"reader":      "Fetches the page through a remote reader service.",
}

// extractedMsg carries the outcome of an extraction request
type extractedMsg struct {
	content string
	err     error
}

// Model is the popup surface
type Model struct {
	client Extractor
	modes  []string
	mode   int

	extracting bool
	content    string
	errMsg     string

	spinner  spinner.Model
	viewport viewport.Model
}

func NewModel(client Extractor, settings Settings) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		client:   client,
		modes:    settings.Modes,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}
	for i, mode := range settings.Modes {
		if strings.EqualFold(mode, settings.DefaultMode) {
			m.mode = i
		}
	}
	return m
}

// Mode returns the selected extraction mode
func (m Model) Mode() string {
	if len(m.modes) == 0 {
		return ""
	}
	return m.modes[m.mode]
}

func (m Model) Content() string { return m.content }

func (m Model) Err() string { return m.errMsg }

func (m Model) Extracting() bool { return m.extracting }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "enter", "e":
			if m.extracting {
				return m, nil
			}
			m.extracting = true
			return m, tea.Batch(m.spinner.Tick, m.extract(m.Mode()))
		case "m":
			if !m.extracting && len(m.modes) > 0 {
				m.mode = (m.mode + 1) % len(m.modes)
			}
			return m, nil
		}

	case extractedMsg:
		m.extracting = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Error: %v", msg.err)
			m.content = ""
		} else {
			m.errMsg = ""
			m.content = msg.content
		}
		m.viewport.SetContent(m.render())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.extracting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = max(msg.Height-14, 3)
		m.viewport.SetContent(m.render())
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// render word-wraps the extracted text for the viewport. The text is shown
// verbatim; it is not markup.
func (m Model) render() string {
	return wordwrap.String(m.content, max(m.viewport.Width-2, 20))
}

func (m Model) extract(mode string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		content, err := client.Extract(context.Background(), mode)
		return extractedMsg{content: content, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Content Extractor"))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Extracts content from the current page using the selected mode:"))
	b.WriteString("\n")
	for _, mode := range m.modes {
		if help, ok := modeHelp[strings.ToLower(mode)]; ok {
			b.WriteString(helpStyle.Render(fmt.Sprintf("  • %s: %s", mode, help)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	extractLabel := "Extract Content"
	style := buttonStyle
	if m.extracting {
		extractLabel = "Extracting..."
		style = mutedButton
	}
	b.WriteString(style.Render("[enter] " + extractLabel))
	b.WriteString("  ")
	b.WriteString(mutedButton.Render(fmt.Sprintf("[m] Mode: %s", strings.ToLower(m.Mode()))))
	b.WriteString("\n\n")

	switch {
	case m.extracting:
		b.WriteString(infoStyle.Render(m.spinner.View() + " Extracting content from the active page..."))
	case m.errMsg != "":
		b.WriteString(errorStyle.Render(m.errMsg))
	case m.content != "":
		b.WriteString("Extracted Content:\n")
		b.WriteString(contentFrame.Render(m.viewport.View()))
	default:
		b.WriteString(helpStyle.Render(`Press enter to "Extract Content" from the current page.`))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("q: quit • ↑/↓: scroll"))
	return b.String()
}
