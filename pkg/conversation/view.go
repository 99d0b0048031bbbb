// Package conversation holds the client side of a chat: the local
// Conversation, the input buffer and the Idle/Sending/Revealing state
// machine that allows one request in flight at a time.
package conversation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lillylive/lilly/pkg/llm"
)

// Greeting is the assistant turn every conversation starts with.
const Greeting = "Hi there! How can I support you today?"

// State is the submission state of a View.
type State int

const (
	StateIdle State = iota
	StateSending
	StateRevealing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateRevealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// KeyEnter names the Enter key in a Key.
const KeyEnter = "enter"

// Key is a key press relevant to submission.
type Key struct {
	Name  string
	Shift bool
}

// View is the client-side conversation state. It is not safe for concurrent
// use; the owning loop serializes access.
type View struct {
	conv   llm.Conversation
	input  string
	state  State
	reveal bool

	lines []string
	full  string
	shown int
}

// Option configures a View.
type Option func(*View)

// WithReveal enables line-by-line reveal of replies.
func WithReveal(enabled bool) Option {
	return func(v *View) { v.reveal = enabled }
}

// NewView returns an idle view holding only the greeting.
func NewView(opts ...Option) *View {
	v := &View{
		conv: llm.Conversation{llm.NewTextMessage(llm.RoleAssistant, Greeting)},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Conversation returns a copy of the turns shown so far.
func (v *View) Conversation() llm.Conversation {
	return append(llm.Conversation(nil), v.conv...)
}

// State returns the current state.
func (v *View) State() State { return v.state }

// Thinking reports whether a reply is awaited.
func (v *View) Thinking() bool { return v.state == StateSending }

// Input returns the unsent input.
func (v *View) Input() string { return v.input }

// SetInput replaces the unsent input.
func (v *View) SetInput(s string) { v.input = s }

// CanSubmit reports whether Submit would send.
func (v *View) CanSubmit() bool {
	return v.state == StateIdle && strings.TrimSpace(v.input) != ""
}

// HandleKey applies Enter semantics: plain Enter submits, Shift+Enter
// inserts a newline. It returns the conversation to send when a submission
// happened.
func (v *View) HandleKey(k Key) (llm.Conversation, bool) {
	if k.Name != KeyEnter {
		return nil, false
	}
	if k.Shift {
		v.input += "\n"
		return nil, false
	}
	return v.Submit()
}

// Submit appends the input as a user turn, clears the input and enters
// Sending. It is a no-op while not idle or when the input is blank. The
// returned conversation is what must be sent.
func (v *View) Submit() (llm.Conversation, bool) {
	if !v.CanSubmit() {
		return nil, false
	}

	v.conv = append(v.conv, llm.NewTextMessage(llm.RoleUser, v.input))
	v.input = ""
	v.state = StateSending
	return v.Conversation(), true
}

// Receive accepts the reply to the in-flight submission. Without reveal the
// turn is appended and the view returns to Idle. With reveal an empty
// placeholder is appended and Tick fills it in. Receive outside Sending is
// ignored.
func (v *View) Receive(reply string) bool {
	if v.state != StateSending {
		return false
	}

	text := Normalize(reply)
	if !v.reveal {
		v.conv = append(v.conv, llm.NewTextMessage(llm.RoleAssistant, text))
		v.state = StateIdle
		return true
	}

	v.conv = append(v.conv, llm.NewTextMessage(llm.RoleAssistant, ""))
	v.full = text
	v.lines = strings.Split(text, "\n")
	v.shown = 0
	v.state = StateRevealing
	return true
}

// Tick reveals one more line of the pending reply. It returns false when
// nothing is being revealed. After the last line the placeholder holds the
// full text and the view is idle again.
func (v *View) Tick() bool {
	if v.state != StateRevealing {
		return false
	}

	v.shown++
	last := len(v.conv) - 1
	if v.shown >= len(v.lines) {
		v.conv[last].Content = v.full
		v.lines, v.full, v.shown = nil, "", 0
		v.state = StateIdle
		return true
	}

	v.conv[last].Content = strings.Join(v.lines[:v.shown], "\n")
	return true
}

// Remaining is the number of Tick calls left to finish the reveal.
func (v *View) Remaining() int {
	if v.state != StateRevealing {
		return 0
	}
	return len(v.lines) - v.shown
}

// Fail ends the in-flight submission with the generic error turn.
func (v *View) Fail() bool {
	if v.state != StateSending {
		return false
	}
	v.conv = append(v.conv, llm.NewTextMessage(llm.RoleAssistant, llm.GenericFailureReply))
	v.state = StateIdle
	return true
}

// Normalize trims a reply and capitalizes its first letter. Blank replies
// become the fallback text.
func Normalize(reply string) string {
	text := strings.TrimSpace(reply)
	if text == "" {
		return llm.FallbackReply
	}

	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}
