package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/lillylive/lilly/pkg/llm"
)

// DefaultRevealDelay is the pause between revealed lines.
const DefaultRevealDelay = 50 * time.Millisecond

// Sender delivers a conversation to the chat endpoint.
type Sender interface {
	Chat(ctx context.Context, conv llm.Conversation) (string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Controller runs one submission at a time against a View for line-based
// front ends. The bubbletea view drives View directly.
type Controller struct {
	view   *View
	sender Sender
	delay  time.Duration
	sleep  SleepFunc
	logger *slog.Logger
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Sender Sender

	// RevealDelay is the pause between lines. Zero appends replies at once.
	RevealDelay time.Duration

	Sleep  SleepFunc
	Logger *slog.Logger
}

// NewController creates a controller with a fresh View.
func NewController(c ControllerConfig) *Controller {
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Controller{
		view:   NewView(WithReveal(c.RevealDelay > 0)),
		sender: c.Sender,
		delay:  c.RevealDelay,
		sleep:  sleep,
		logger: logger,
	}
}

// View returns the controlled view.
func (c *Controller) View() *View { return c.view }

// Exchange submits input and blocks until the reply is fully shown. render
// is called after every visible change. It returns false when the input was
// not submitted.
func (c *Controller) Exchange(ctx context.Context, input string, render func(*View)) bool {
	c.view.SetInput(input)
	conv, ok := c.view.Submit()
	if !ok {
		return false
	}
	render(c.view)

	reply, err := c.sender.Chat(ctx, conv)
	if err != nil {
		c.logger.Debug("chat request failed", "error", err)
		c.view.Fail()
		render(c.view)
		return true
	}

	c.view.Receive(reply)
	render(c.view)

	for c.view.Remaining() > 0 {
		if err := c.sleep(ctx, c.delay); err != nil {
			// Finish at once rather than leave a partial turn.
			for c.view.Tick() {
			}
			render(c.view)
			return true
		}
		c.view.Tick()
		render(c.view)
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
