package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/conversation"
	"github.com/lillylive/lilly/pkg/llm"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("219")).Render("lilly> ")
	continuePrompt  = strings.Repeat(" ", lipgloss.Width(assistantPrompt))
)

const exitCommand = "/exit"

type lineConfig struct {
	In          io.Reader
	Out         io.Writer
	Sender      conversation.Sender
	RevealDelay time.Duration
	Nickname    string
	Logger      *slog.Logger
}

// runLines is the non-interactive front end: one message per input line,
// a trailing backslash joins the next line.
func runLines(ctx context.Context, cfg lineConfig) error {
	ctrl := conversation.NewController(conversation.ControllerConfig{
		Sender:      cfg.Sender,
		RevealDelay: cfg.RevealDelay,
		Logger:      cfg.Logger,
	})
	printer := &linePrinter{w: cfg.Out}

	fmt.Fprintln(cfg.Out)
	if cfg.Nickname != "" {
		fmt.Fprintf(cfg.Out, "  %s %s\n", cliui.KeyStyle.Render("Signed in as"), cliui.NameStyle.Render(cfg.Nickname))
	}
	fmt.Fprintf(cfg.Out, "  %s\n\n", cliui.DimStyle.Render(`One message per line, end a line with \ to continue. /exit or Ctrl+D to quit.`))
	printer.render(ctrl.View())

	scanner := bufio.NewScanner(cfg.In)
	var pending []string
	for {
		if len(pending) == 0 {
			fmt.Fprint(cfg.Out, userPrompt)
		}
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		if strings.HasSuffix(line, `\`) {
			pending = append(pending, strings.TrimSuffix(line, `\`))
			continue
		}
		pending = append(pending, line)
		input := strings.Join(pending, "\n")
		pending = nil

		if strings.TrimSpace(input) == exitCommand {
			break
		}
		ctrl.Exchange(ctx, input, printer.render)

		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(cfg.Out)

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// linePrinter writes assistant turns as they become visible, never
// repeating a line already written.
type linePrinter struct {
	w        io.Writer
	next     int
	lines    int
	thinking bool
}

func (p *linePrinter) render(v *conversation.View) {
	if v.Thinking() {
		if !p.thinking {
			fmt.Fprintf(p.w, "  %s\n", cliui.DimStyle.Render("Lilly is thinking…"))
			p.thinking = true
		}
	} else {
		p.thinking = false
	}

	conv := v.Conversation()
	for p.next < len(conv) {
		msg := conv[p.next]
		if msg.Role != llm.RoleAssistant {
			p.next++
			continue
		}

		var lines []string
		if msg.Content != "" {
			lines = strings.Split(msg.Content, "\n")
		}
		for ; p.lines < len(lines); p.lines++ {
			prefix := continuePrompt
			if p.lines == 0 {
				prefix = assistantPrompt
			}
			fmt.Fprintf(p.w, "%s%s\n", prefix, lines[p.lines])
		}

		if p.next == len(conv)-1 && v.State() == conversation.StateRevealing {
			return
		}
		p.next++
		p.lines = 0
		fmt.Fprintln(p.w)
	}
}
