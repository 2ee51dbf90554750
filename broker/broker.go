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

package broker

import (
	"context"
	"sync"

	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/metrics"
)

// Subscriber interface allows pushing values to subscribers, can be closed.
// Subscribers that Ack receive events synchronously through Push, the others
// through their channel, events being dropped when the channel is full.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/subscriber_mock.go -package mocks github.com/keshu12345/crypto-market/broker Subscriber
type Subscriber interface {
	Push(val ...events.Event)
	Closed() <-chan struct{}
	C() chan<- []events.Event
	Types() []events.Type
	SetID(id int)
	ID() int
	Ack() bool
}

// BrokerI is the interface used by the services publishing events.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/broker_mock.go -package mocks github.com/keshu12345/crypto-market/broker BrokerI
type BrokerI interface {
	Send(event events.Event)
	SendBatch(evts []events.Event)
	Subscribe(s Subscriber) int
	Unsubscribe(k int)
}

type subscription struct {
	Subscriber
	required bool
}

// Broker - the in process event bus.
type Broker struct {
	ctx context.Context
	log *logging.Logger

	mu    sync.RWMutex
	tSubs map[events.Type]map[int]*subscription
	// these fields ensure a unique ID for all subscribers, regardless of what event types they subscribe to
	subs map[int]*subscription
	keys []int
	next int
}

// New creates a new base broker
func New(ctx context.Context, log *logging.Logger, config Config) *Broker {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Broker{
		ctx:   ctx,
		log:   log,
		tSubs: map[events.Type]map[int]*subscription{},
		subs:  map[int]*subscription{},
		keys:  []int{},
	}
}

// Send sends an event to all subscribers
func (b *Broker) Send(event events.Event) {
	b.SendBatch([]events.Event{event})
}

// SendBatch sends a batch of events, subscribers receive the events of
// the batch they are interested in, in order.
func (b *Broker) SendBatch(evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	select {
	case <-b.ctx.Done():
		return
	default:
	}

	b.mu.RLock()
	batches := map[int][]events.Event{}
	targets := map[int]*subscription{}
	for _, e := range evts {
		metrics.EventCounterInc(e.Type().String())
		for k, s := range b.getSubsByType(e.Type()) {
			batches[k] = append(batches[k], e)
			targets[k] = s
		}
	}
	b.mu.RUnlock()

	unsub := []int{}
	for k, s := range targets {
		select {
		case <-s.Closed():
			unsub = append(unsub, k)
			continue
		default:
		}
		if s.required {
			s.Push(batches[k]...)
			continue
		}
		select {
		case s.C() <- batches[k]:
		default:
			b.log.Warn("subscriber channel full, dropping events",
				logging.Int("subscriber", k),
				logging.Int("events", len(batches[k])))
		}
	}
	if len(unsub) > 0 {
		b.mu.Lock()
		b.rmSubs(unsub...)
		b.mu.Unlock()
	}
}

// getSubsByType returns the subscribers of the type and the ALL subscribers,
// the read lock must be held.
func (b *Broker) getSubsByType(t events.Type) map[int]*subscription {
	out := make(map[int]*subscription, len(b.tSubs[t])+len(b.tSubs[events.All]))
	for k, v := range b.tSubs[events.All] {
		out[k] = v
	}
	for k, v := range b.tSubs[t] {
		out[k] = v
	}
	return out
}

// Subscribe registers a new subscriber, returning the key
func (b *Broker) Subscribe(s Subscriber) int {
	b.mu.Lock()
	k := b.subscribe(s)
	b.mu.Unlock()
	s.SetID(k)
	return k
}

func (b *Broker) subscribe(s Subscriber) int {
	k := b.getKey()
	sub := &subscription{
		Subscriber: s,
		required:   s.Ack(),
	}
	b.subs[k] = sub
	types := s.Types()
	// subscribers to ALL receive everything, no matter what else they listed
	if len(types) == 0 {
		types = []events.Type{events.All}
	}
	for _, t := range types {
		if t == events.All {
			types = []events.Type{events.All}
			break
		}
	}
	for _, t := range types {
		if _, ok := b.tSubs[t]; !ok {
			b.tSubs[t] = map[int]*subscription{}
		}
		b.tSubs[t][k] = sub
	}
	return k
}

// Unsubscribe removes subscriber from broker
// this does not change the state of the subscriber
func (b *Broker) Unsubscribe(k int) {
	b.mu.Lock()
	b.rmSubs(k)
	b.mu.Unlock()
}

func (b *Broker) getKey() int {
	if len(b.keys) > 0 {
		k := b.keys[0]
		b.keys = b.keys[1:] // pop first element
		return k
	}
	b.next++ // start at 1 to avoid zero value
	return b.next
}

func (b *Broker) rmSubs(keys ...int) {
	for _, k := range keys {
		// if the sub doesn't exist, this could be a duplicate call
		// we do not want the keys slice to contain duplicate values
		if _, ok := b.subs[k]; !ok {
			continue
		}
		for t, subs := range b.tSubs {
			delete(subs, k)
			if len(subs) == 0 {
				delete(b.tSubs, t)
			}
		}
		delete(b.subs, k)
		b.keys = append(b.keys, k)
	}
}
