// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/internal/logging"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
)

// NewProducer creates a SyncProducer waiting for all in-sync replicas,
// retrying the connection until the configured timeout.
func NewProducer(ctx context.Context, cfg Config) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = cfg.MaxRetries
	// keep all the events of a market on the same partition
	config.Producer.Partitioner = sarama.NewHashPartitioner

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout.Get()

	var prod sarama.SyncProducer
	err := backoff.Retry(func() error {
		var err error
		prod, err = sarama.NewSyncProducer(cfg.brokerList(), config)
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to start producer after retries: %w", err)
	}
	return prod, nil
}

// Sink forwards every event published on the broker to a kafka topic,
// keyed by market.
type Sink struct {
	log      *logging.Logger
	cfg      Config
	producer sarama.SyncProducer
}

func NewSink(log *logging.Logger, cfg Config, producer sarama.SyncProducer) *Sink {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Sink{
		log:      log,
		cfg:      cfg,
		producer: producer,
	}
}

// Start subscribes to the broker and produces until ctx is cancelled.
func (s *Sink) Start(ctx context.Context, b broker.BrokerI) error {
	sub := broker.NewChannelSubscriber(s.cfg.BufferSize, []events.Type{events.All})
	id := b.Subscribe(sub)
	defer func() {
		b.Unsubscribe(id)
		sub.Halt()
		if err := s.producer.Close(); err != nil {
			s.log.Error("could not close kafka producer", logging.Error(err))
		}
	}()

	s.log.Info("forwarding events to kafka", logging.String("topic", s.cfg.Topic))
	for {
		evts, ok := sub.Recv(ctx)
		if !ok {
			return nil
		}
		if err := s.send(evts); err != nil {
			s.log.Error("could not produce events", logging.Error(err))
		}
	}
}

func (s *Sink) send(evts []events.Event) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(evts))
	for _, e := range evts {
		payload, err := json.Marshal(e.StreamMessage())
		if err != nil {
			return err
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: s.cfg.Topic,
			Key:   sarama.StringEncoder(e.MarketID()),
			Value: sarama.ByteEncoder(payload),
		})
	}
	return s.producer.SendMessages(msgs)
}
