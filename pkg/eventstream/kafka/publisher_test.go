package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/lillylive/lilly/pkg/eventstream"
	"github.com/lillylive/lilly/pkg/eventstream/kafka"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(MatchError(kafka.ErrNoBrokers))
	})

	It("builds a lazy writer without dialing", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("writes events as JSON keyed by event id", func() {
		w := &fakeWriter{}
		p := kafka.NewPublisherWithWriter(w)
		event := eventstream.NewChatReplyEvent(time.Unix(1735689600, 0))
		event.Strategy = "assistant"

		Expect(p.Publish(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal(event.EventID))
		var decoded eventstream.ChatReplyEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.Strategy).To(Equal("assistant"))
		Expect(w.msgs[0].Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("lilly.chat.reply")}))
	})

	It("rejects nil events", func() {
		p := kafka.NewPublisherWithWriter(&fakeWriter{})
		Expect(p.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("wraps writer failures", func() {
		p := kafka.NewPublisherWithWriter(&fakeWriter{err: errors.New("broker down")})
		err := p.Publish(context.Background(), eventstream.NewChatReplyEvent(time.Now()))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		w := &fakeWriter{}
		Expect(kafka.NewPublisherWithWriter(w).Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
