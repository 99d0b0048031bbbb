// Package open builds the configured eventstream.Publisher.
package open

import (
	"fmt"

	"github.com/lillylive/lilly/pkg/eventstream"
	"github.com/lillylive/lilly/pkg/eventstream/kafka"
	"github.com/lillylive/lilly/pkg/eventstream/nop"
)

const (
	ProviderNone  = "none"
	ProviderKafka = "kafka"
)

// Options selects the publisher backend.
type Options struct {
	Provider string
	Brokers  []string
	Topic    string
}

// NewPublisher returns the publisher for opts. Empty or "none" disables
// publishing.
func NewPublisher(opts Options) (eventstream.Publisher, error) {
	switch opts.Provider {
	case "", ProviderNone:
		return nop.NewPublisher(), nil
	case ProviderKafka:
		return kafka.NewPublisher(kafka.Config{Brokers: opts.Brokers, Topic: opts.Topic})
	}
	return nil, fmt.Errorf("unknown eventstream provider %q", opts.Provider)
}
