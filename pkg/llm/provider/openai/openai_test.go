package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/llm/provider/openai"
	"github.com/lillylive/lilly/pkg/logger"
)

// fakeUpstream imitates the subset of the OpenAI API the client uses.
type fakeUpstream struct {
	mu sync.Mutex

	chatStatus int
	chatBody   string
	chatCalls  int
	chatReq    map[string]any

	threadStatus   int
	runStatuses    []string
	runPolls       int
	threadMessages string
	appended       []string
	betaHeaders    []string
	authHeaders    []string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	if strings.HasPrefix(r.URL.Path, "/threads") {
		f.betaHeaders = append(f.betaHeaders, r.Header.Get("OpenAI-Beta"))
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/chat/completions":
		f.chatCalls++
		_ = json.NewDecoder(r.Body).Decode(&f.chatReq)
		w.WriteHeader(f.chatStatus)
		_, _ = w.Write([]byte(f.chatBody))

	case r.Method == http.MethodPost && r.URL.Path == "/threads":
		if f.threadStatus != http.StatusOK {
			w.WriteHeader(f.threadStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"thread_1"}`))

	case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/messages":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body["role"]+":"+body["content"])
		_, _ = w.Write([]byte(`{"id":"msg_x"}`))

	case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs":
		_, _ = w.Write([]byte(`{"id":"run_1","status":"queued"}`))

	case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_1/runs/run_1":
		i := f.runPolls
		f.runPolls++
		if i >= len(f.runStatuses) {
			i = len(f.runStatuses) - 1
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "run_1", "status": f.runStatuses[i]})

	case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_1/messages":
		_, _ = w.Write([]byte(f.threadMessages))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func choicesBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"model": "gpt-4.1-2025",
		"choices": []any{
			map[string]any{"index": 0, "message": map[string]string{"role": "assistant", "content": text}},
		},
	})
	return string(b)
}

var _ = Describe("Client", func() {
	var (
		fake   *fakeUpstream
		server *httptest.Server
		sleeps int
		conv   llm.Conversation
	)

	newClient := func(assistantID string) *openai.Client {
		c, err := openai.New(openai.Options{
			APIKey:      "sk-test",
			AssistantID: assistantID,
			BaseURL:     server.URL,
			Logger:      logger.Nop(),
			Sleep: func(context.Context, time.Duration) error {
				sleeps++
				return nil
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	BeforeEach(func() {
		fake = &fakeUpstream{
			chatStatus:   http.StatusOK,
			chatBody:     choicesBody("Hello from completions"),
			threadStatus: http.StatusOK,
			runStatuses:  []string{"completed"},
		}
		server = httptest.NewServer(fake)
		sleeps = 0
		conv = llm.Conversation{
			llm.NewTextMessage(llm.RoleSystem, "You are Lilly."),
			llm.NewTextMessage(llm.RoleAssistant, "Hi there! How can I support you today?"),
			llm.NewTextMessage(llm.RoleUser, "I feel anxious"),
			llm.NewTextMessage(llm.RoleAssistant, "I'm here for you."),
			llm.NewTextMessage(llm.RoleUser, "about work"),
		}
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := openai.New(openai.Options{APIKey: "  "})
		Expect(errors.Is(err, openai.ErrMissingAPIKey)).To(BeTrue())
	})

	Describe("stateless strategy", func() {
		It("returns the first choice and sends the documented parameters", func() {
			reply, err := newClient("").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal("Hello from completions"))
			Expect(reply.Strategy).To(Equal(llm.StrategyCompletion))
			Expect(reply.Model).To(Equal("gpt-4.1-2025"))

			Expect(fake.chatReq["model"]).To(Equal("gpt-4.1"))
			Expect(fake.chatReq["temperature"]).To(BeNumerically("==", 0.7))
			Expect(fake.chatReq["max_tokens"]).To(BeNumerically("==", 800))
			msgs := fake.chatReq["messages"].([]any)
			Expect(msgs).To(HaveLen(len(conv)))
			Expect(msgs[0].(map[string]any)["role"]).To(Equal("system"))
			Expect(msgs[4].(map[string]any)["content"]).To(Equal("about work"))
			Expect(fake.authHeaders).To(ConsistOf("Bearer sk-test"))
		})

		It("falls back to the apology text when there are no choices", func() {
			fake.chatBody = `{"choices":[]}`

			reply, err := newClient("").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal(llm.FallbackReply))
		})

		It("falls back to the apology text when content is blank", func() {
			fake.chatBody = choicesBody("   ")

			reply, err := newClient("").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal(llm.FallbackReply))
		})

		It("surfaces non-2xx responses as upstream errors", func() {
			fake.chatStatus = http.StatusTooManyRequests
			fake.chatBody = `{"error":"rate limited"}`

			_, err := newClient("").Complete(context.Background(), conv)

			var upstream *openai.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusTooManyRequests))
		})

		It("never touches the thread endpoints", func() {
			_, err := newClient("").Complete(context.Background(), conv)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.betaHeaders).To(BeEmpty())
		})
	})

	Describe("stateful strategy", func() {
		BeforeEach(func() {
			fake.runStatuses = []string{"queued", "in_progress", "completed"}
			fake.threadMessages = `{"data":[
				{"id":"m1","role":"assistant","created_at":100,"content":[{"type":"text","text":{"value":"older reply"}}]},
				{"id":"m3","role":"user","created_at":300,"content":[{"type":"text","text":{"value":"about work"}}]},
				{"id":"m2","role":"assistant","created_at":200,"content":[
					{"type":"image_file"},
					{"type":"text","text":{"value":"newest reply"}},
					{"type":"text","text":{"value":"second segment"}}
				]}
			]}`
		})

		It("returns the first text of the newest assistant message", func() {
			reply, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal("newest reply"))
			Expect(reply.Strategy).To(Equal(llm.StrategyAssistant))
			Expect(fake.runPolls).To(Equal(3))
			Expect(sleeps).To(Equal(3))
			Expect(fake.chatCalls).To(BeZero())
		})

		It("appends only user turns, in order", func() {
			_, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(fake.appended).To(Equal([]string{"user:I feel anxious", "user:about work"}))
		})

		It("sends the assistants beta header on every thread call", func() {
			_, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(fake.betaHeaders).NotTo(BeEmpty())
			for _, h := range fake.betaHeaders {
				Expect(h).To(Equal("assistants=v2"))
			}
		})

		It("falls back to chat completions after 30 polls without completion", func() {
			fake.runStatuses = []string{"queued", "in_progress"}

			reply, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(fake.runPolls).To(Equal(30))
			Expect(sleeps).To(Equal(30))
			Expect(fake.chatCalls).To(Equal(1))
			Expect(reply.Text).To(Equal("Hello from completions"))
			Expect(reply.Strategy).To(Equal(llm.StrategyCompletion))
		})

		It("falls back to chat completions when the run fails", func() {
			fake.runStatuses = []string{"queued", "failed"}

			reply, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Strategy).To(Equal(llm.StrategyCompletion))
		})

		It("falls back to chat completions when thread creation is rejected", func() {
			fake.threadStatus = http.StatusUnauthorized

			reply, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(fake.runPolls).To(BeZero())
			Expect(reply.Text).To(Equal("Hello from completions"))
		})

		It("returns the apology text when a completed run has no assistant message", func() {
			fake.threadMessages = `{"data":[{"id":"m3","role":"user","created_at":300,"content":[]}]}`

			reply, err := newClient("asst_1").Complete(context.Background(), conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(reply.Text).To(Equal(llm.FallbackReply))
			Expect(reply.Strategy).To(Equal(llm.StrategyAssistant))
			Expect(fake.chatCalls).To(BeZero())
		})

		It("propagates the error when both strategies fail", func() {
			fake.threadStatus = http.StatusInternalServerError
			fake.chatStatus = http.StatusBadGateway

			_, err := newClient("asst_1").Complete(context.Background(), conv)

			var upstream *openai.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})
})
