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
	"testing"
	"time"

	"github.com/keshu12345/crypto-market/broker"
	bmocks "github.com/keshu12345/crypto-market/broker/mocks"
	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Topic = "test-events"
	cfg.BufferSize = 4
	return cfg
}

func TestBrokerList(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Brokers = " k1:9092, ,k2:9092,"
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.brokerList())
}

func TestSendKeysByMarket(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	markets := make(chan string, 2)
	check := func(val []byte) error {
		var msg events.StreamMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		markets <- msg.Market
		return nil
	}
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(check)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(check)

	s := NewSink(logging.NewTestLogger(), testConfig(), producer)
	ctx := context.Background()
	err := s.send([]events.Event{
		events.NewTradeEvent(ctx, types.Trade{ID: "t1", Market: "BTC-USDC", Price: 10, Quantity: 1}),
		events.NewOrderEvent(ctx, types.Order{ID: "o1", Market: "ETH-USDC"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDC", <-markets)
	assert.Equal(t, "ETH-USDC", <-markets)
	require.NoError(t, producer.Close())
}

func TestSendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	s := NewSink(logging.NewTestLogger(), testConfig(), producer)
	err := s.send([]events.Event{
		events.NewOrderEvent(context.Background(), types.Order{ID: "o1", Market: "BTC-USDC"}),
	})
	assert.Error(t, err)
	require.NoError(t, producer.Close())
}

func TestStartForwardsUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := bmocks.NewMockBrokerI(ctrl)
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())

	sent := make(chan struct{}, 1)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		sent <- struct{}{}
		return nil
	})

	subs := make(chan broker.Subscriber, 1)
	b.EXPECT().Subscribe(gomock.Any()).DoAndReturn(func(s broker.Subscriber) int {
		subs <- s
		return 7
	}).Times(1)
	b.EXPECT().Unsubscribe(7).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSink(logging.NewTestLogger(), testConfig(), producer)
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx, b)
	}()

	sub := <-subs
	assert.Equal(t, []events.Type{events.All}, sub.Types())
	sub.C() <- []events.Event{
		events.NewBookEvent(ctx, types.OrderBookSnapshot{Market: "BTC-USDC"}),
	}

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("event was not produced")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sink did not stop")
	}
}
