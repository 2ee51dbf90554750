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

package events_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderEvent(t *testing.T) {
	o := types.Order{ID: "o1", UserID: "alice", Market: "SOL-USDC", Side: types.SideBuy, Quantity: 3}
	e := events.NewOrderEvent(context.Background(), o)

	assert.Equal(t, events.OrderEvent, e.Type())
	assert.Equal(t, "SOL-USDC", e.MarketID())
	assert.True(t, e.IsUser("alice"))
	assert.False(t, e.IsUser("bob"))
	assert.Equal(t, o, e.Order())

	msg := e.StreamMessage()
	assert.Equal(t, "order", msg.Type)
	var got types.Order
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "o1", got.ID)
}

func TestTradeEventMatchesBothUsers(t *testing.T) {
	e := events.NewTradeEvent(context.Background(), types.Trade{ID: "t1", Market: "SOL-USDC", MakerUserID: "m", TakerUserID: "t"})
	assert.True(t, e.IsUser("m"))
	assert.True(t, e.IsUser("t"))
	assert.False(t, e.IsUser("x"))
	assert.Equal(t, "trade", e.StreamMessage().Type)
}

func TestParseType(t *testing.T) {
	for _, et := range []events.Type{events.OrderEvent, events.TradeEvent, events.BookEvent} {
		parsed, err := events.ParseType(et.String())
		require.NoError(t, err)
		assert.Equal(t, et, parsed)
	}
	_, err := events.ParseType("candles")
	assert.ErrorIs(t, err, events.ErrUnsupportedEvent)
	assert.Equal(t, "UNKNOWN EVENT", events.Type(42).String())
}
