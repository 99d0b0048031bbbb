package kafka

// NewPublisherWithWriter exposes the writer seam to tests.
var NewPublisherWithWriter = newPublisher

// MessageWriter exposes the writer interface to tests.
type MessageWriter = messageWriter
