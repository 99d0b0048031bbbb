package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lillylive/lilly/pkg/eventstream"
	"github.com/lillylive/lilly/pkg/logger"
)

// recordingPublisher keeps every published event. When block is non-nil each
// publish waits for it to close.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.ChatReplyEvent
	err    error
	block  chan struct{}
}

func (r *recordingPublisher) Publish(_ context.Context, e *eventstream.ChatReplyEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var _ = Describe("Worker Pool", func() {
	var publisher *recordingPublisher

	BeforeEach(func() {
		publisher = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults", func() {
		wp, err := NewPool(&Config{Publisher: publisher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(wp.config.PublishTimeout).To(Equal(defaultPublishTimeout))
	})

	It("publishes every enqueued event before Close returns", func() {
		wp, err := NewPool(&Config{Publisher: publisher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			Expect(wp.Enqueue(Job{Event: eventstream.NewChatReplyEvent(time.Now())})).To(BeTrue())
		}
		wp.Close()

		Expect(publisher.count()).To(Equal(10))
	})

	It("drops events when the queue is full", func() {
		publisher.block = make(chan struct{})
		wp, err := NewPool(&Config{Publisher: publisher, NumWorkers: 1, QueueSize: 1, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		// The first job occupies the worker, the second fills the queue.
		Expect(wp.Enqueue(Job{Event: eventstream.NewChatReplyEvent(time.Now())})).To(BeTrue())
		Eventually(func() int { return len(wp.queue) }).Should(BeZero())
		Expect(wp.Enqueue(Job{Event: eventstream.NewChatReplyEvent(time.Now())})).To(BeTrue())
		Expect(wp.Enqueue(Job{Event: eventstream.NewChatReplyEvent(time.Now())})).To(BeFalse())

		close(publisher.block)
		wp.Close()
		Expect(publisher.count()).To(Equal(2))
	})

	It("keeps going after a publish failure", func() {
		publisher.err = errors.New("broker down")
		wp, err := NewPool(&Config{Publisher: publisher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(Job{Event: eventstream.NewChatReplyEvent(time.Now())})).To(BeTrue())
		Expect(func() { wp.Close() }).NotTo(Panic())
	})
})
