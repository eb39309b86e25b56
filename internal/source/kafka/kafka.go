// Package kafka consumes JSON records from Kafka topics as a consumer group.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shopify/sarama"
	"github.com/aevon-lab/jfrtel/internal/source"
)

const component = "KafkaSource"

// Options configures the consumer group.
type Options struct {
	Brokers        []string
	Topics         []string
	GroupID        string
	Version        string
	ClientID       string
	OffsetsInitial string // "newest" or "oldest"
	CommitInterval time.Duration
}

// Source feeds every message value of the subscribed topics to an ingester.
// Offsets are marked after the record is handed over, malformed ones
// included, so a poisoned message is not redelivered.
type Source struct {
	opts     Options
	ingester source.Ingester
	group    sarama.ConsumerGroup
	counters source.Counters
}

// NewConfig maps opts onto a sarama configuration.
func NewConfig(opts Options) (*sarama.Config, error) {
	config := sarama.NewConfig()

	version := opts.Version
	if version == "" {
		version = "2.4.0"
	}
	v, err := sarama.ParseKafkaVersion(version)
	if err != nil {
		return nil, fmt.Errorf("kafka version %q: %w", version, err)
	}
	config.Version = v

	if opts.ClientID != "" {
		config.ClientID = opts.ClientID
	}
	config.Consumer.Return.Errors = true

	switch opts.OffsetsInitial {
	case "", "oldest":
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	case "newest":
		config.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		return nil, fmt.Errorf("offsets_initial must be newest or oldest, got %q", opts.OffsetsInitial)
	}
	if opts.CommitInterval > 0 {
		config.Consumer.Offsets.AutoCommit.Interval = opts.CommitInterval
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("kafka config: %w", err)
	}
	return config, nil
}

// New connects a consumer group.
func New(opts Options, ingester source.Ingester) (*Source, error) {
	if ingester == nil {
		panic("kafka: ingester must not be nil")
	}
	if len(opts.Brokers) == 0 || len(opts.Topics) == 0 || opts.GroupID == "" {
		return nil, fmt.Errorf("kafka source requires brokers, topics and group_id")
	}

	config, err := NewConfig(opts)
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(opts.Brokers, opts.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return newSource(opts, ingester, group), nil
}

func newSource(opts Options, ingester source.Ingester, group sarama.ConsumerGroup) *Source {
	return &Source{opts: opts, ingester: ingester, group: group}
}

// Run consumes until ctx is done, then closes the group.
func (s *Source) Run(ctx context.Context) error {
	go s.handleErrors(ctx)

	slog.Info("["+component+"] Consuming", "topics", s.opts.Topics, "group_id", s.opts.GroupID)

	var runErr error
	for ctx.Err() == nil {
		// Consume returns on every rebalance.
		if err := s.group.Consume(ctx, s.opts.Topics, s); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				break
			}
			runErr = fmt.Errorf("consume: %w", err)
			break
		}
	}

	if err := s.group.Close(); err != nil {
		slog.Warn("["+component+"] Close failed", "error", err)
	}
	slog.Info("["+component+"] Stopped", "stats", s.counters.Snapshot())
	return runErr
}

func (s *Source) handleErrors(ctx context.Context) {
	for {
		select {
		case err, ok := <-s.group.Errors():
			if !ok {
				return
			}
			slog.Error("["+component+"] Consumer error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Source) Setup(session sarama.ConsumerGroupSession) error {
	slog.Info("["+component+"] Session started", "claims", session.Claims())
	return nil
}

func (s *Source) Cleanup(sarama.ConsumerGroupSession) error {
	slog.Info("[" + component + "] Session ended")
	return nil
}

func (s *Source) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := source.Deliver(ctx, s.ingester, &s.counters, component, msg.Value); err != nil {
				return nil
			}
			session.MarkMessage(msg, "")
		case <-ctx.Done():
			return nil
		}
	}
}

// Stats returns the message counters.
func (s *Source) Stats() source.Stats {
	return s.counters.Snapshot()
}
