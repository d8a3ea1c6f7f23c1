package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/jsonx"
)

type keyed interface {
	PartitionKey() string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends ledger events to Kafka. The topic is chosen per message so
// one writer serves both transfer and approval topics.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
}

// batchTimeout bounds how long a single event waits for a batch to fill.
// kafka-go defaults to one second, which every synchronous Publish would pay.
const batchTimeout = 10 * time.Millisecond

// NewPublisher builds a publisher over a hash-balanced writer, so events of
// one sender land on one partition in order.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
		timeout: 5 * time.Second,
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	msg, err := newMessage(topic, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(topic string, event any) (kafka.Message, error) {
	data, err := jsonx.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	msg := kafka.Message{
		Topic: topic,
		Value: data,
	}
	if k, ok := event.(keyed); ok {
		msg.Key = []byte(k.PartitionKey())
	}
	return msg, nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
