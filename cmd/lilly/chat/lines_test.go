package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/conversation"
	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/logger"
)

var _ = Describe("runLines", func() {
	var (
		sender *scriptedSender
		out    *bytes.Buffer
	)

	run := func(input string) {
		Expect(runLines(context.Background(), lineConfig{
			In:     strings.NewReader(input),
			Out:    out,
			Sender: sender,
			Logger: logger.Nop(),
		})).To(Succeed())
	}

	BeforeEach(func() {
		sender = &scriptedSender{}
		out = &bytes.Buffer{}
	})

	It("greets first", func() {
		run("")
		Expect(out.String()).To(ContainSubstring(conversation.Greeting))
	})

	It("sends each line with the whole conversation", func() {
		sender.replies = []string{"that sounds hard.", "I'm here."}
		run("rough day\nthanks\n")

		Expect(sender.sent).To(HaveLen(2))
		Expect(sender.sent[1]).To(HaveLen(4))
		Expect(sender.sent[1][0].Content).To(Equal(conversation.Greeting))
		Expect(sender.sent[1][1]).To(Equal(llm.NewTextMessage(llm.RoleUser, "rough day")))
		Expect(sender.sent[1][2]).To(Equal(llm.NewTextMessage(llm.RoleAssistant, "That sounds hard.")))
		Expect(out.String()).To(ContainSubstring("I'm here."))
	})

	It("joins lines ending in a backslash", func() {
		sender.replies = []string{"ok"}
		run("first\\\nsecond\n")

		Expect(sender.sent).To(HaveLen(1))
		last, _ := sender.sent[0].Last()
		Expect(last.Content).To(Equal("first\nsecond"))
	})

	It("skips blank lines", func() {
		run("   \n\n")
		Expect(sender.sent).To(BeEmpty())
	})

	It("stops at /exit", func() {
		sender.replies = []string{"ok"}
		run("/exit\nnever sent\n")
		Expect(sender.sent).To(BeEmpty())
	})

	It("shows the generic failure turn when the request fails", func() {
		sender.err = errors.New("connection refused")
		run("hello\n")

		Expect(out.String()).To(ContainSubstring(llm.GenericFailureReply))
		Expect(out.String()).NotTo(ContainSubstring("connection refused"))
	})

	It("shows the fallback for a blank reply", func() {
		sender.replies = []string{"   "}
		run("hello\n")
		Expect(out.String()).To(ContainSubstring(llm.FallbackReply))
	})

	It("shows the signed-in nickname", func() {
		Expect(runLines(context.Background(), lineConfig{
			In:       strings.NewReader(""),
			Out:      out,
			Sender:   sender,
			Nickname: "sam",
			Logger:   logger.Nop(),
		})).To(Succeed())
		Expect(out.String()).To(ContainSubstring("sam"))
	})
})

var _ = Describe("linePrinter", func() {
	It("prints revealed lines once each", func() {
		view := conversation.NewView(conversation.WithReveal(true))
		out := &bytes.Buffer{}
		p := &linePrinter{w: out}
		p.render(view)

		view.SetInput("hi")
		_, ok := view.Submit()
		Expect(ok).To(BeTrue())
		p.render(view)
		Expect(out.String()).To(ContainSubstring("Lilly is thinking"))

		view.Receive("one\ntwo\nthree")
		p.render(view)
		for view.Tick() {
			p.render(view)
		}

		text := out.String()
		for _, line := range []string{"One", "two", "three"} {
			Expect(strings.Count(text, line)).To(Equal(1), line)
		}
		Expect(strings.Index(text, "One")).To(BeNumerically("<", strings.Index(text, "three")))
	})
})
