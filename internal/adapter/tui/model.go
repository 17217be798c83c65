// Package tui runs the chat playground as a bubbletea terminal program
// over a single local conversation.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/usecase/chat"
)

// SessionID is the conversation the terminal program drives.
const SessionID = "tui"

const userColor = "#f1c40f"

// Chat is the exchange contract the terminal program drives.
type Chat interface {
	Submit(ctx context.Context, sessionID, text string) (domain.Turn, error)
	Reset(sessionID string)
	Turns(sessionID string) []domain.Turn
	Status() error
	Vendor() config.VendorConfig
}

type exchangeDoneMsg struct {
	err error
}

type theme struct {
	title     lipgloss.Style
	tagline   lipgloss.Style
	connected lipgloss.Style
	failed    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	time      lipgloss.Style
	help      lipgloss.Style
}

func newTheme(vendor config.VendorConfig) theme {
	accent := lipgloss.Color(vendor.Color)
	return theme{
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		tagline:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888")),
		connected: lipgloss.NewStyle().Foreground(lipgloss.Color("#1e7e34")).Bold(true),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#a71d2a")).Bold(true),
		user: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(userColor)).
			Padding(0, 1),
		assistant: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		time: lipgloss.NewStyle().Faint(true),
		help: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

type Model struct {
	chat   Chat
	ctx    context.Context
	vendor config.VendorConfig
	theme  theme

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model

	width, height int
	inFlight      bool
	pending       string
	lastErr       string
}

func New(ctx context.Context, svc Chat) Model {
	vendor := svc.Vendor()

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = vendor.Placeholder
	if svc.Status() == nil {
		input.Focus()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(vendor.Color))

	transcript := viewport.New(80, 20)
	transcript.MouseWheelEnabled = true

	m := Model{
		chat:       svc,
		ctx:        ctx,
		vendor:     vendor,
		theme:      newTheme(vendor),
		input:      input,
		transcript: transcript,
		spinner:    sp,
	}
	m.renderTranscript()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) connected() bool {
	return m.chat.Status() == nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderTranscript()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case exchangeDoneMsg:
		m.inFlight = false
		m.pending = ""
		m.lastErr = ""
		if msg.err != nil && !errors.Is(msg.err, chat.ErrEmptyMessage) {
			m.lastErr = "Response generation failed: " + domain.Diagnostic(msg.err)
		}
		m.renderTranscript()
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			if m.inFlight || !m.connected() {
				return m, nil
			}
			m.chat.Reset(SessionID)
			m.lastErr = ""
			m.renderTranscript()
			return m, nil
		case tea.KeyEnter:
			if m.inFlight || !m.connected() {
				return m, nil
			}
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			m.inFlight = true
			m.pending = text
			m.lastErr = ""
			m.renderTranscript()
			return m, m.submitCmd(text)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
		if m.connected() {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// submitCmd runs the exchange off the update loop.
func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.chat.Submit(m.ctx, SessionID, text)
		return exchangeDoneMsg{err: err}
	}
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.transcript.Width = m.width
	m.transcript.Height = max(m.height-7, 3)
	m.input.Width = max(m.width-4, 10)
}

func (m *Model) renderTranscript() {
	width := m.transcript.Width
	bubbleWidth := max(width*3/4, 20)

	turns := m.chat.Turns(SessionID)
	// The exchange may not have recorded the user turn yet.
	if m.inFlight {
		n := len(turns)
		if n == 0 || turns[n-1].Role != domain.RoleUser || turns[n-1].Content != m.pending {
			turns = append(turns, domain.Turn{Role: domain.RoleUser, Content: m.pending})
		}
	}

	var sb strings.Builder
	for _, t := range turns {
		var name, emoji string
		var style lipgloss.Style
		align := lipgloss.Left
		if t.Role == domain.RoleUser {
			name, emoji, style, align = "You", "👤", m.theme.user, lipgloss.Right
		} else {
			name, emoji, style = m.vendor.DisplayName, m.vendor.Emoji, m.theme.assistant
		}

		stamp := "…"
		if !t.Timestamp.IsZero() {
			stamp = t.Clock()
		}
		body := fmt.Sprintf("%s %s\n%s\n%s", lipgloss.NewStyle().Bold(true).Render(name), emoji, t.Content, m.theme.time.Render(stamp))
		rendered := style.MaxWidth(bubbleWidth).Render(body)
		sb.WriteString(lipgloss.PlaceHorizontal(width, align, rendered))
		sb.WriteString("\n")
	}

	m.transcript.SetContent(sb.String())
	m.transcript.GotoBottom()
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.theme.title.Render(fmt.Sprintf("%s %s API test", m.vendor.Emoji, m.vendor.DisplayName)))
	if m.vendor.Tagline != "" {
		sb.WriteString("  " + m.theme.tagline.Render(m.vendor.Tagline))
	}
	sb.WriteString("\n")

	if err := m.chat.Status(); err != nil {
		sb.WriteString(m.theme.failed.Render(fmt.Sprintf("❌ %s API connection failed: %s", m.vendor.DisplayName, domain.Diagnostic(err))))
		sb.WriteString("\n")
		sb.WriteString(m.theme.help.Render(fmt.Sprintf("Check the API key (%s) and restart. esc quits.", m.vendor.KeyEnv)))
		sb.WriteString("\n")
		return sb.String()
	}
	sb.WriteString(m.theme.connected.Render(fmt.Sprintf("✅ %s API connected", m.vendor.DisplayName)))
	sb.WriteString("\n\n")

	sb.WriteString(m.transcript.View())
	sb.WriteString("\n")

	switch {
	case m.inFlight:
		sb.WriteString(m.spinner.View() + " waiting for " + m.vendor.DisplayName + "...")
	case m.lastErr != "":
		sb.WriteString(m.theme.failed.Render(m.lastErr))
	}
	sb.WriteString("\n")

	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(m.theme.help.Render("enter send · ctrl+r clear · pgup/pgdn scroll · esc quit"))
	return sb.String()
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, svc Chat) error {
	p := tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
