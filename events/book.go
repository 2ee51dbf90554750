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

	"github.com/keshu12345/crypto-market/types"
)

// Book is sent every time the content of an order book changed.
type Book struct {
	*Base
	s types.OrderBookSnapshot
}

func NewBookEvent(ctx context.Context, s types.OrderBookSnapshot) *Book {
	return &Book{
		Base: newBase(ctx, BookEvent, s.Market),
		s:    s,
	}
}

func (b *Book) Snapshot() types.OrderBookSnapshot {
	return b.s
}

func (b Book) StreamMessage() StreamMessage {
	return b.streamMessage(b.s)
}
