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
)

// Filter tells a subscriber whether it is interested in an event.
type Filter func(e events.Event) bool

// MarketFilter only accepts events of the given market.
func MarketFilter(market string) Filter {
	return func(e events.Event) bool {
		return e.MarketID() == market
	}
}

// ChannelSubscriber is a buffered, non acking subscriber. The broker never
// blocks on it, events which do not fit in the buffer are dropped.
type ChannelSubscriber struct {
	id      int
	types   []events.Type
	filters []Filter

	ch     chan []events.Event
	closed chan struct{}
	once   sync.Once
}

func NewChannelSubscriber(bufSize int, types []events.Type, filters ...Filter) *ChannelSubscriber {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &ChannelSubscriber{
		types:   types,
		filters: filters,
		ch:      make(chan []events.Event, bufSize),
		closed:  make(chan struct{}),
	}
}

// Recv returns the next batch of events passing the filters, it returns
// false once the subscriber or ctx is closed.
func (s *ChannelSubscriber) Recv(ctx context.Context) ([]events.Event, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-s.closed:
			return nil, false
		case evts := <-s.ch:
			if out := s.filter(evts); len(out) > 0 {
				return out, true
			}
		}
	}
}

func (s *ChannelSubscriber) filter(evts []events.Event) []events.Event {
	if len(s.filters) == 0 {
		return evts
	}
	out := make([]events.Event, 0, len(evts))
	for _, e := range evts {
		keep := true
		for _, f := range s.filters {
			if !f(e) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}
	return out
}

func (s *ChannelSubscriber) Halt() {
	s.once.Do(func() {
		close(s.closed)
	})
}

func (s *ChannelSubscriber) Push(evts ...events.Event) {
	select {
	case s.ch <- evts:
	default:
	}
}

func (s *ChannelSubscriber) Closed() <-chan struct{} {
	return s.closed
}

func (s *ChannelSubscriber) C() chan<- []events.Event {
	return s.ch
}

func (s *ChannelSubscriber) Types() []events.Type {
	return s.types
}

func (s *ChannelSubscriber) SetID(id int) {
	s.id = id
}

func (s *ChannelSubscriber) ID() int {
	return s.id
}

func (s *ChannelSubscriber) Ack() bool {
	return false
}
