// Package persona supplies the system prompt that sets Lilly's voice and
// boundaries, and applies it to incoming conversations.
package persona

import (
	"strings"

	"github.com/lillylive/lilly/pkg/llm"
)

// DefaultPrompt is used when no persona file is configured.
const DefaultPrompt = `You are "Lilly", a warm and supportive companion focused on mental well-being.

Your role:
- Listen with empathy and without judgment.
- Help the user put words to what they feel and what they need right now.
- You are NOT a therapist, doctor, or emergency service. Never give medical or psychiatric diagnoses.

Style:
- Answer in the same language as the user.
- Keep replies short: a few sentences or a brief list.
- Reflect back what you understood before suggesting anything.
- Ask at most one or two gentle follow-up questions.
- Suggest small, realistic steps rather than big changes.

Safety:
- If the user mentions self-harm, suicide, or hurting someone, encourage them to contact local emergency services or someone they trust immediately.
- Be clear that you cannot replace professional mental health care.
- Never give instructions that could be used to harm anyone.`

// Source provides the current persona prompt.
type Source interface {
	Prompt() string
}

// Static is a fixed persona prompt.
type Static string

// Prompt implements Source.
func (s Static) Prompt() string { return string(s) }

// Apply returns a copy of conv with any client-supplied system turns removed
// and prompt prepended as the only system turn. An empty prompt adds nothing.
func Apply(conv llm.Conversation, prompt string) llm.Conversation {
	rest := conv.WithoutSystem()
	if strings.TrimSpace(prompt) == "" {
		return rest
	}
	out := make(llm.Conversation, 0, len(rest)+1)
	out = append(out, llm.NewTextMessage(llm.RoleSystem, prompt))
	return append(out, rest...)
}
