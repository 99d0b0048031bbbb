package chatcmder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/conversation"
	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/logger"
)

const (
	inputHeight = 3
	headerLines = 2
	bubbleInset = 4
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userBubble     = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("24")).Padding(0, 1)
	lillyBubble    = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("219")).Padding(0, 1)
	thinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	inputFrame     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color("240"))
	newlineKeys    = map[string]bool{"alt+enter": true, "ctrl+j": true}
	quitKeys       = map[string]bool{"ctrl+c": true, "esc": true}
	defaultTUISize = tea.WindowSizeMsg{Width: cliui.DefaultWidth, Height: 24}
)

type tuiConfig struct {
	Sender      conversation.Sender
	RevealDelay time.Duration
	Nickname    string
	Logger      *slog.Logger
}

// replyMsg carries the outcome of one chat request.
type replyMsg struct {
	reply string
	err   error
}

// revealMsg asks the model to reveal the next line.
type revealMsg struct{}

type chatModel struct {
	ctx      context.Context
	cfg      tuiConfig
	view     *conversation.View
	input    textarea.Model
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	ready    bool

	// rendered caches glamour output for finished assistant turns by index.
	rendered map[int]string
}

func newChatModel(ctx context.Context, cfg tuiConfig) chatModel {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	ta := textarea.New()
	ta.Placeholder = "Share what's on your mind…"
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	m := chatModel{
		ctx:     ctx,
		cfg:     cfg,
		view:    conversation.NewView(conversation.WithReveal(cfg.RevealDelay > 0)),
		input:   ta,
		spinner: sp,
	}
	m.resize(defaultTUISize)
	return m
}

func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		if msg.err != nil {
			m.cfg.Logger.Debug("chat request failed", "error", msg.err)
			m.view.Fail()
			m.refresh()
			return m, nil
		}
		m.view.Receive(msg.reply)
		m.refresh()
		return m, m.nextReveal()

	case revealMsg:
		m.view.Tick()
		m.refresh()
		return m, m.nextReveal()

	case spinner.TickMsg:
		if !m.view.Thinking() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case quitKeys[key]:
		return m, tea.Quit

	case newlineKeys[key]:
		// Terminals cannot report shift+enter, so these keys stand in for it.
		var cmd tea.Cmd
		m.input.KeyMap.InsertNewline.SetEnabled(true)
		m.input, cmd = m.input.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.input.KeyMap.InsertNewline.SetEnabled(false)
		return m, cmd

	case key == conversation.KeyEnter:
		m.view.SetInput(m.input.Value())
		conv, ok := m.view.HandleKey(conversation.Key{Name: conversation.KeyEnter})
		if !ok {
			return m, nil
		}
		m.input.Reset()
		m.refresh()
		return m, tea.Batch(m.send(conv), m.spinner.Tick)

	case key == "pgup" || key == "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send posts conv off the update loop.
func (m chatModel) send(conv llm.Conversation) tea.Cmd {
	ctx, sender := m.ctx, m.cfg.Sender
	return func() tea.Msg {
		reply, err := sender.Chat(ctx, conv)
		return replyMsg{reply: reply, err: err}
	}
}

// nextReveal schedules the next line while a reply is being revealed.
func (m chatModel) nextReveal() tea.Cmd {
	if m.view.Remaining() == 0 {
		return nil
	}
	return tea.Tick(m.cfg.RevealDelay, func(time.Time) tea.Msg { return revealMsg{} })
}

func (m *chatModel) resize(size tea.WindowSizeMsg) {
	if size.Width != m.width {
		// Markdown is wrapped to the old width.
		m.rendered = map[int]string{}
	}
	m.width = size.Width
	m.input.SetWidth(size.Width)

	height := size.Height - headerLines - inputHeight - 2
	if height < 1 {
		height = 1
	}
	if !m.ready {
		m.viewport = viewport.New(size.Width, height)
		m.ready = true
	} else {
		m.viewport.Width = size.Width
		m.viewport.Height = height
	}
	m.refresh()
}

// refresh re-renders the transcript into the viewport and keeps the latest
// turn in view.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m *chatModel) transcript() string {
	conv := m.view.Conversation()
	bubbleWidth := m.width - bubbleInset
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	var b strings.Builder
	for i, msg := range conv {
		switch msg.Role {
		case llm.RoleUser:
			bubble := userBubble.MaxWidth(bubbleWidth).Render(msg.Content)
			b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble))
		case llm.RoleAssistant:
			b.WriteString(lillyBubble.MaxWidth(bubbleWidth).Render(m.assistantText(i, msg.Content, bubbleWidth)))
		default:
			continue
		}
		b.WriteString("\n\n")
	}

	if m.view.Thinking() {
		b.WriteString(m.spinner.View() + " " + thinkingStyle.Render("Lilly is thinking…"))
	}
	return b.String()
}

// assistantText renders finished turns as markdown. The turn still being
// revealed stays plain so lines appear without re-flowing.
func (m *chatModel) assistantText(i int, content string, width int) string {
	conv := m.view.Conversation()
	if i == len(conv)-1 && m.view.State() == conversation.StateRevealing {
		return content
	}
	if out, ok := m.rendered[i]; ok {
		return out
	}

	out, err := cliui.RenderMarkdown(content, width-bubbleInset)
	if err != nil {
		out = content
	}
	out = strings.Trim(out, "\n")
	m.rendered[i] = out
	return out
}

func (m chatModel) View() string {
	title := titleStyle.Render("Lilly")
	if m.cfg.Nickname != "" {
		title += helpStyle.Render(fmt.Sprintf("  talking with %s", m.cfg.Nickname))
	}
	help := helpStyle.Render("enter send • alt+enter newline • esc quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		inputFrame.Render(m.input.View()),
		help,
	)
}

func runTUI(ctx context.Context, cfg tuiConfig) error {
	program := tea.NewProgram(newChatModel(ctx, cfg),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat ui: %w", err)
	}
	return nil
}
