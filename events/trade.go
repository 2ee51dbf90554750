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

type Trade struct {
	*Base
	t types.Trade
}

func NewTradeEvent(ctx context.Context, t types.Trade) *Trade {
	return &Trade{
		Base: newBase(ctx, TradeEvent, t.Market),
		t:    t,
	}
}

func (t *Trade) Trade() types.Trade {
	return t.t
}

// IsUser returns true when the user is on either side of the trade.
func (t Trade) IsUser(id string) bool {
	return t.t.MakerUserID == id || t.t.TakerUserID == id
}

func (t Trade) StreamMessage() StreamMessage {
	return t.streamMessage(t.t)
}
