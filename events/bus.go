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

package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

var ErrUnsupportedEvent = errors.New("unknown payload for event")

type Type int

const (
	// All event type -> used by subscribers to just receive all events, has no actual corresponding event payload
	All Type = iota
	OrderEvent
	TradeEvent
	BookEvent
)

var eventStrings = map[Type]string{
	All:        "ALL",
	OrderEvent: "order",
	TradeEvent: "trade",
	BookEvent:  "book",
}

// String get string representation of event type
func (t Type) String() string {
	s, ok := eventStrings[t]
	if !ok {
		return "UNKNOWN EVENT"
	}
	return s
}

// ParseType returns the event type of its string representation.
func ParseType(s string) (Type, error) {
	for t, str := range eventStrings {
		if str == s {
			return t, nil
		}
	}
	return All, ErrUnsupportedEvent
}

type Event interface {
	Type() Type
	Context() context.Context
	MarketID() string
	Timestamp() time.Time
	// StreamMessage is the envelope sent to websocket clients and the
	// kafka sink.
	StreamMessage() StreamMessage
}

// StreamMessage is the JSON shape of an event outside of the process.
type StreamMessage struct {
	Type      string          `json:"type"`
	Market    string          `json:"market"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Base common denominator all events share
type Base struct {
	ctx    context.Context
	et     Type
	market string
	ts     time.Time
}

// A base event holds no data, so the constructor will not be called directly
func newBase(ctx context.Context, t Type, market string) *Base {
	return &Base{
		ctx:    ctx,
		et:     t,
		market: market,
		ts:     time.Now(),
	}
}

// Context returns context
func (b Base) Context() context.Context {
	return b.ctx
}

// Type returns the event type
func (b Base) Type() Type {
	return b.et
}

func (b Base) MarketID() string {
	return b.market
}

func (b Base) Timestamp() time.Time {
	return b.ts
}

func (b Base) streamMessage(data interface{}) StreamMessage {
	// payloads are plain structs, marshalling them cannot fail
	raw, _ := json.Marshal(data)
	return StreamMessage{
		Type:      b.et.String(),
		Market:    b.market,
		Timestamp: b.ts,
		Data:      raw,
	}
}
