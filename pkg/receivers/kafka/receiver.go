// Package kafka consumes the topics declared by the kafka events of registered models and
// dispatches each record as kafka:<topic>.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/dukex/eca/pkg/models"
	kafkaevent "github.com/dukex/eca/pkg/triggers/kafka"
	"github.com/dukex/eca/pkg/workflow"
)

const (
	DefaultConsumerGroup = "eca-receiver"
	DefaultResync        = 30 * time.Second

	sessionTimeout    = 10 * time.Second
	heartbeatInterval = 3 * time.Second
	retryInterval     = 5 * time.Second
)

// ModelSource lists the registered models.
type ModelSource interface {
	Models() []*workflow.ProcessModel
}

// Dispatcher is the engine entry point.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventName string, instance any) *models.ExecutionReport
}

// GroupFactory opens a consumer group.
type GroupFactory func(brokers []string, group string, config *sarama.Config) (sarama.ConsumerGroup, error)

type Option func(*KafkaReceiver)

func WithConsumerGroup(group string) Option {
	return func(r *KafkaReceiver) {
		r.group = group
	}
}

func WithResync(interval time.Duration) Option {
	return func(r *KafkaReceiver) {
		r.resync = interval
	}
}

func WithGroupFactory(factory GroupFactory) Option {
	return func(r *KafkaReceiver) {
		r.newGroup = factory
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *KafkaReceiver) {
		r.now = now
	}
}

// KafkaReceiver runs one consumer group over the topics of the kafka events found on
// enabled models. The group is restarted whenever that topic set changes.
type KafkaReceiver struct {
	logger     *slog.Logger
	models     ModelSource
	dispatcher Dispatcher
	brokers    []string
	group      string
	resync     time.Duration
	newGroup   GroupFactory
	now        func() time.Time

	mutex    sync.Mutex
	topics   []string
	consumer *consumer
	stop     chan struct{}
	stopped  chan struct{}
}

type consumer struct {
	group  sarama.ConsumerGroup
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKafkaReceiver(logger *slog.Logger, brokers []string, source ModelSource, dispatcher Dispatcher, opts ...Option) *KafkaReceiver {
	r := &KafkaReceiver{
		logger:     logger.With("module", "kafka_receiver"),
		models:     source,
		dispatcher: dispatcher,
		brokers:    brokers,
		group:      DefaultConsumerGroup,
		resync:     DefaultResync,
		newGroup:   sarama.NewConsumerGroup,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start consumes the current topics and keeps them in sync with the registered models
// until Stop is called or ctx is done.
func (r *KafkaReceiver) Start(ctx context.Context) error {
	if len(r.brokers) == 0 {
		return errors.New("no Kafka brokers configured")
	}

	if err := r.Sync(ctx); err != nil {
		return err
	}

	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})

	go r.loop(ctx)

	r.logger.InfoContext(ctx, "Kafka receiver started", "topics", r.Topics())

	return nil
}

func (r *KafkaReceiver) loop(ctx context.Context) {
	defer close(r.stopped)

	ticker := time.NewTicker(r.resync)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Failed to synchronize Kafka topics", "error", err)
			}
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sync restarts the consumer group when the declared topics changed.
func (r *KafkaReceiver) Sync(ctx context.Context) error {
	topics := r.collect()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if slices.Equal(topics, r.topics) && (r.consumer != nil || len(topics) == 0) {
		return nil
	}

	r.halt()
	r.topics = topics

	if len(topics) == 0 {
		r.logger.InfoContext(ctx, "No Kafka topics to consume")

		return nil
	}

	group, err := r.newGroup(r.brokers, r.group, r.saramaConfig())
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	r.consumer = &consumer{group: group, cancel: cancel, done: make(chan struct{})}

	go r.consume(consumeCtx, r.consumer, topics)

	r.logger.InfoContext(ctx, "Consuming Kafka topics", "topics", topics, "consumer_group", r.group)

	return nil
}

func (r *KafkaReceiver) saramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Session.Timeout = sessionTimeout
	config.Consumer.Group.Heartbeat.Interval = heartbeatInterval
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	return config
}

func (r *KafkaReceiver) collect() []string {
	topics := []string{}

	for _, model := range r.models.Models() {
		if !model.Enabled {
			continue
		}

		for _, node := range model.Nodes {
			if node.Kind() != models.PluginKindEvent || node.Plugin.PluginID != kafkaevent.PluginID {
				continue
			}

			if topic := node.Plugin.Config["topic"]; topic != "" && !slices.Contains(topics, topic) {
				topics = append(topics, topic)
			}
		}
	}

	slices.Sort(topics)

	return topics
}

func (r *KafkaReceiver) consume(ctx context.Context, c *consumer, topics []string) {
	defer close(c.done)

	defer func() {
		if err := c.group.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Error closing Kafka consumer group", "error", err)
		}
	}()

	handler := &claimHandler{receiver: r}

	for {
		err := c.group.Consume(ctx, topics, handler)
		if ctx.Err() != nil {
			return
		}

		if err == nil {
			continue
		}

		r.logger.ErrorContext(ctx, "Kafka consumer error", "error", err)

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return
		}
	}
}

// halt stops the running consumer group. The caller holds the mutex.
func (r *KafkaReceiver) halt() {
	if r.consumer == nil {
		return
	}

	r.consumer.cancel()
	<-r.consumer.done
	r.consumer = nil
}

// Topics returns the topics currently consumed.
func (r *KafkaReceiver) Topics() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return slices.Clone(r.topics)
}

// Stop stops the resync loop and the consumer group.
func (r *KafkaReceiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping Kafka receiver")

	if r.stop != nil {
		close(r.stop)
		<-r.stopped
		r.stop = nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.halt()

	return nil
}

type claimHandler struct {
	receiver *KafkaReceiver
}

func (h *claimHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.receiver.logger.DebugContext(session.Context(), "Kafka consumer group session started")

	return nil
}

func (h *claimHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.receiver.logger.DebugContext(session.Context(), "Kafka consumer group session ended")

	return nil
}

// ConsumeClaim dispatches records one at a time and marks each one once its dispatch returned.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()

	for record := range claim.Messages() {
		msg := kafkaevent.NewMessage(record, h.receiver.now())

		report := h.receiver.dispatcher.Dispatch(ctx, kafkaevent.EventName(record.Topic), msg)

		logger := h.receiver.logger.With("topic", record.Topic, "partition", record.Partition, "offset", record.Offset,
			"dispatch_id", report.ID)
		if report.Failed() {
			logger.WarnContext(ctx, "Kafka record dispatched with failures", "failures", len(report.Failures()))
		} else {
			logger.DebugContext(ctx, "Kafka record dispatched", "models", len(report.Models))
		}

		session.MarkMessage(record, "")
	}

	return nil
}
