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

package matching

import (
	"math"
	"testing"
	"time"

	"github.com/keshu12345/crypto-market/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBook_LimitOrderRestsInEmptyBook(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	res, err := book.Submit(limitOrder("b1", "alice", types.SideBuy, 100, 10))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, types.OrderStatusOpen, res.Order.Status)
	assert.Equal(t, uint64(0), res.Order.FilledQuantity)

	snap := book.Snapshot(10)
	require.Len(t, snap.Bids, 1)
	assert.Empty(t, snap.Asks)
	assert.Equal(t, types.PriceLevel{Price: 100, TotalQuantity: 10, OrderCount: 1}, snap.Bids[0])
}

func TestOrderBook_PartialFillRestsRemainder(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, err := book.Submit(limitOrder("s1", "bob", types.SideSell, 100, 5))
	require.NoError(t, err)

	res, err := book.Submit(limitOrder("b1", "alice", types.SideBuy, 100, 10))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, uint64(100), trade.Price)
	assert.Equal(t, uint64(5), trade.Quantity)
	assert.Equal(t, "s1", trade.MakerOrderID)
	assert.Equal(t, "b1", trade.TakerOrderID)
	assert.Equal(t, "bob", trade.MakerUserID)
	assert.Equal(t, "alice", trade.TakerUserID)
	assert.Equal(t, types.SideBuy, trade.Side)

	assert.Equal(t, uint64(5), res.Order.FilledQuantity)
	assert.Equal(t, types.OrderStatusPartial, res.Order.Status)

	snap := book.Snapshot(10)
	assert.Empty(t, snap.Asks)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, types.PriceLevel{Price: 100, TotalQuantity: 5, OrderCount: 1}, snap.Bids[0])

	resting, ok := book.GetOrder("b1")
	require.True(t, ok)
	assert.Equal(t, uint64(5), resting.Remaining())

	require.Len(t, res.Makers, 1)
	assert.Equal(t, types.OrderStatusFilled, res.Makers[0].Status)
	_, ok = book.GetOrder("s1")
	assert.False(t, ok)
}

func TestOrderBook_MarketOrderFIFOWithinLevel(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, err := book.Submit(limitOrder("A", "maker-a", types.SideSell, 100, 3))
	require.NoError(t, err)
	_, err = book.Submit(limitOrder("B", "maker-b", types.SideSell, 100, 3))
	require.NoError(t, err)

	res, err := book.Submit(marketOrder("M", "taker", types.SideBuy, 4))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, "A", res.Trades[0].MakerOrderID)
	assert.Equal(t, uint64(3), res.Trades[0].Quantity)
	assert.Equal(t, "B", res.Trades[1].MakerOrderID)
	assert.Equal(t, uint64(1), res.Trades[1].Quantity)
	assert.Equal(t, types.OrderStatusFilled, res.Order.Status)

	_, ok := book.GetOrder("A")
	assert.False(t, ok)
	b, ok := book.GetOrder("B")
	require.True(t, ok)
	assert.Equal(t, uint64(1), b.FilledQuantity)
	assert.Equal(t, types.OrderStatusPartial, b.Status)

	assert.Equal(t, uint64(2), book.getVolumeAtLevel(100, types.SideSell))
}

func TestOrderBook_MarketOrderIntoEmptyBookIsCancelled(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	res, err := book.Submit(marketOrder("M", "taker", types.SideBuy, 10))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, types.OrderStatusCancelled, res.Order.Status)
	assert.Equal(t, uint64(10), res.Residual())
	assert.Equal(t, 0, book.getNumberOfBuyLevels())
	assert.Equal(t, 0, book.getNumberOfSellLevels())
}

func TestOrderBook_MarketOrderPartiallyFilledThenCancelled(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, err := book.Submit(limitOrder("s1", "bob", types.SideSell, 100, 2))
	require.NoError(t, err)

	res, err := book.Submit(marketOrder("M", "taker", types.SideBuy, 5))
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, types.OrderStatusCancelled, res.Order.Status)
	assert.Equal(t, uint64(2), res.Order.FilledQuantity)
	assert.True(t, res.Order.PartiallyFilled())
	assert.Equal(t, uint64(3), res.Residual())
	assert.Equal(t, 0, book.getNumberOfBuyLevels())
}

func TestOrderBook_CancelIsIdempotent(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, err := book.Submit(limitOrder("b1", "alice", types.SideBuy, 50, 8))
	require.NoError(t, err)

	cancelled, ok := book.Cancel("b1")
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "b1", cancelled.ID)
	assert.Empty(t, book.Snapshot(10).Bids)
	assert.Equal(t, 0, book.getNumberOfBuyLevels())

	again, ok := book.Cancel("b1")
	assert.False(t, ok)
	assert.Nil(t, again)

	unknown, ok := book.Cancel("nope")
	assert.False(t, ok)
	assert.Nil(t, unknown)
}

func TestOrderBook_CancelKeepsOtherOrdersAtLevel(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	for _, o := range []types.Order{
		limitOrder("b1", "u1", types.SideBuy, 50, 1),
		limitOrder("b2", "u2", types.SideBuy, 50, 2),
		limitOrder("b3", "u3", types.SideBuy, 50, 3),
	} {
		_, err := book.Submit(o)
		require.NoError(t, err)
	}

	_, ok := book.Cancel("b2")
	require.True(t, ok)
	assert.Equal(t, uint64(4), book.getVolumeAtLevel(50, types.SideBuy))

	// remaining orders keep their queue position
	res, err := book.Submit(limitOrder("s1", "u4", types.SideSell, 50, 2))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, "b1", res.Trades[0].MakerOrderID)
	assert.Equal(t, "b3", res.Trades[1].MakerOrderID)
	book.noEmptyLevels(t)
}

func TestOrderBook_CrossingRespectsLimit(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	for _, o := range []types.Order{
		limitOrder("s1", "m", types.SideSell, 101, 1),
		limitOrder("s2", "m", types.SideSell, 102, 1),
		limitOrder("s3", "m", types.SideSell, 103, 1),
	} {
		_, err := book.Submit(o)
		require.NoError(t, err)
	}

	res, err := book.Submit(limitOrder("b1", "t", types.SideBuy, 102, 5))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	for _, tr := range res.Trades {
		assert.LessOrEqual(t, tr.Price, uint64(102))
	}
	// best price first, execution at the maker price
	assert.Equal(t, uint64(101), res.Trades[0].Price)
	assert.Equal(t, uint64(102), res.Trades[1].Price)

	snap := book.Snapshot(10)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, uint64(102), snap.Bids[0].Price)
	assert.Equal(t, uint64(3), snap.Bids[0].TotalQuantity)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, uint64(103), snap.Asks[0].Price)

	// a sell never executes below its limit
	res, err = book.Submit(limitOrder("s4", "t2", types.SideSell, 103, 1))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
}

func TestOrderBook_SellMarketSweepsBidsBestFirst(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	for _, o := range []types.Order{
		limitOrder("b1", "m", types.SideBuy, 95, 2),
		limitOrder("b2", "m", types.SideBuy, 99, 2),
		limitOrder("b3", "m", types.SideBuy, 97, 2),
	} {
		_, err := book.Submit(o)
		require.NoError(t, err)
	}

	res, err := book.Submit(marketOrder("M", "t", types.SideSell, 5))
	require.NoError(t, err)

	require.Len(t, res.Trades, 3)
	assert.Equal(t, []uint64{99, 97, 95}, []uint64{res.Trades[0].Price, res.Trades[1].Price, res.Trades[2].Price})
	assert.Equal(t, types.SideSell, res.Trades[0].Side)
	assert.Equal(t, uint64(1), book.getTotalBuyVolume())
	book.noEmptyLevels(t)
}

func TestOrderBook_Conservation(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	makers := []types.Order{
		limitOrder("s1", "m1", types.SideSell, 10, 4),
		limitOrder("s2", "m2", types.SideSell, 11, 6),
		limitOrder("s3", "m3", types.SideSell, 11, 5),
	}
	before := map[string]uint64{}
	for _, o := range makers {
		_, err := book.Submit(o)
		require.NoError(t, err)
		before[o.ID] = 0
	}

	res, err := book.Submit(limitOrder("b1", "t", types.SideBuy, 11, 12))
	require.NoError(t, err)

	var traded uint64
	perMaker := map[string]uint64{}
	for _, tr := range res.Trades {
		assert.NotZero(t, tr.Quantity)
		traded += tr.Quantity
		perMaker[tr.MakerOrderID] += tr.Quantity
	}
	assert.Equal(t, res.Order.FilledQuantity, traded)
	assert.Equal(t, uint64(12), traded)

	for _, m := range res.Makers {
		assert.Equal(t, before[m.ID]+perMaker[m.ID], m.FilledQuantity)
	}
	assert.Equal(t, uint64(3), book.getTotalSellVolume())
}

func TestOrderBook_SnapshotDepthAndOrdering(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	for i, p := range []uint64{90, 94, 91, 93, 92} {
		_, err := book.Submit(limitOrder("", "u", types.SideBuy, p, uint64(i+1)))
		require.NoError(t, err)
	}
	for i, p := range []uint64{110, 106, 108, 107, 109} {
		_, err := book.Submit(limitOrder("", "u", types.SideSell, p, uint64(i+1)))
		require.NoError(t, err)
	}
	_, err := book.Submit(limitOrder("", "u", types.SideBuy, 94, 10))
	require.NoError(t, err)

	snap := book.Snapshot(3)
	require.Len(t, snap.Bids, 3)
	require.Len(t, snap.Asks, 3)
	assert.Equal(t, []uint64{94, 93, 92}, []uint64{snap.Bids[0].Price, snap.Bids[1].Price, snap.Bids[2].Price})
	assert.Equal(t, []uint64{106, 107, 108}, []uint64{snap.Asks[0].Price, snap.Asks[1].Price, snap.Asks[2].Price})
	assert.Equal(t, types.PriceLevel{Price: 94, TotalQuantity: 12, OrderCount: 2}, snap.Bids[0])

	full := book.Snapshot(100)
	assert.Len(t, full.Bids, 5)
	assert.Len(t, full.Asks, 5)
	for i := 1; i < len(full.Bids); i++ {
		assert.Greater(t, full.Bids[i-1].Price, full.Bids[i].Price)
	}
	for i := 1; i < len(full.Asks); i++ {
		assert.Less(t, full.Asks[i-1].Price, full.Asks[i].Price)
	}

	empty := book.Snapshot(0)
	assert.Empty(t, empty.Bids)
	assert.Empty(t, empty.Asks)
}

func TestOrderBook_TradeHistoryCap(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	const n = DefaultTradeHistorySize + 250
	for i := 0; i < n; i++ {
		_, err := book.Submit(limitOrder("", "maker", types.SideSell, 100, 1))
		require.NoError(t, err)
		res, err := book.Submit(limitOrder("", "taker", types.SideBuy, 100, 1))
		require.NoError(t, err)
		require.Len(t, res.Trades, 1)
	}

	recent := book.RecentTrades(DefaultTradeHistorySize)
	require.Len(t, recent, DefaultTradeHistorySize)

	all := book.RecentTrades(n)
	assert.Len(t, all, DefaultTradeHistorySize)

	// newest first, strictly by time
	for i := 1; i < len(recent); i++ {
		assert.True(t, recent[i-1].Timestamp.After(recent[i].Timestamp))
	}

	latest := book.RecentTrades(1)
	require.Len(t, latest, 1)
	assert.Equal(t, recent[0], latest[0])
	assert.Empty(t, book.RecentTrades(0))
}

func TestOrderBook_Validation(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, err := book.Submit(limitOrder("dup", "u", types.SideBuy, 10, 1))
	require.NoError(t, err)

	zeroPrice := limitOrder("x1", "u", types.SideBuy, 0, 1)
	wrongMarket := limitOrder("x2", "u", types.SideBuy, 10, 1)
	wrongMarket.Market = "ETH-USDC"
	badSide := limitOrder("x3", "u", types.Side("Hold"), 10, 1)
	badType := limitOrder("x4", "u", types.SideBuy, 10, 1)
	badType.Type = types.OrderType("Stop")

	cases := []struct {
		name  string
		order types.Order
		err   error
	}{
		{"zero quantity", limitOrder("x0", "u", types.SideBuy, 10, 0), types.ErrInvalidQuantity},
		{"zero limit price", zeroPrice, types.ErrInvalidPrice},
		{"wrong market", wrongMarket, types.ErrInvalidMarketID},
		{"unknown side", badSide, types.ErrInvalidSide},
		{"unknown type", badType, types.ErrInvalidOrderType},
		{"duplicate id", limitOrder("dup", "u", types.SideSell, 10, 1), types.ErrDuplicateOrderID},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := book.Submit(c.order)
			assert.ErrorIs(t, err, c.err)
		})
	}

	// nothing was mutated by the rejected orders
	stats := book.Stats()
	assert.Equal(t, 1, stats.BuyOrders)
	assert.Equal(t, 0, stats.SellOrders)
	assert.Equal(t, 0, stats.Trades)

	// market orders do not need a price
	res, err := book.Submit(marketOrder("m1", "u2", types.SideSell, 1))
	require.NoError(t, err)
	assert.Len(t, res.Trades, 1)
}

func TestOrderBook_SelfTradePolicy(t *testing.T) {
	t.Run("allow trades with own orders", func(t *testing.T) {
		book := getTestOrderBook(t, testMarket)
		defer book.Finish()

		_, err := book.Submit(limitOrder("s1", "alice", types.SideSell, 100, 2))
		require.NoError(t, err)
		res, err := book.Submit(limitOrder("b1", "alice", types.SideBuy, 100, 2))
		require.NoError(t, err)
		assert.Len(t, res.Trades, 1)
		assert.Equal(t, types.OrderStatusFilled, res.Order.Status)
	})

	t.Run("stop taker on own order", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SelfTradePolicy = SelfTradeStopTaker
		book := getTestOrderBookWithConfig(t, testMarket, cfg)
		defer book.Finish()

		_, err := book.Submit(limitOrder("s1", "bob", types.SideSell, 99, 1))
		require.NoError(t, err)
		_, err = book.Submit(limitOrder("s2", "alice", types.SideSell, 100, 2))
		require.NoError(t, err)
		_, err = book.Submit(limitOrder("s3", "bob", types.SideSell, 100, 2))
		require.NoError(t, err)

		res, err := book.Submit(limitOrder("b1", "alice", types.SideBuy, 100, 5))
		require.NoError(t, err)

		// trades with bob at 99 then stops in front of its own order
		require.Len(t, res.Trades, 1)
		assert.Equal(t, "s1", res.Trades[0].MakerOrderID)
		assert.Equal(t, types.OrderStatusCancelled, res.Order.Status)
		assert.Equal(t, uint64(1), res.Order.FilledQuantity)

		// own order untouched, nothing of the taker rests
		snap := book.Snapshot(10)
		assert.Empty(t, snap.Bids)
		require.Len(t, snap.Asks, 1)
		assert.Equal(t, types.PriceLevel{Price: 100, TotalQuantity: 4, OrderCount: 2}, snap.Asks[0])
	})
}

func TestOrderBook_AssignsIDAndTimestamps(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	res, err := book.Submit(limitOrder("", "u", types.SideBuy, 10, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Order.ID)
	assert.False(t, res.Order.CreatedAt.IsZero())
	assert.Equal(t, res.Order.CreatedAt, res.Order.UpdatedAt)

	o, ok := book.GetOrder(res.Order.ID)
	require.True(t, ok)
	assert.Equal(t, res.Order, o)
}

func TestOrderBook_ResultsAreCopies(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	res, err := book.Submit(limitOrder("b1", "u", types.SideBuy, 10, 5))
	require.NoError(t, err)
	res.Order.Quantity = 1

	o, ok := book.GetOrder("b1")
	require.True(t, ok)
	assert.Equal(t, uint64(5), o.Quantity)
	assert.Equal(t, uint64(5), book.getTotalBuyVolume())
}

func TestOrderBook_Load(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	first := limitOrder("b1", "u1", types.SideBuy, 100, 5)
	first.Status = types.OrderStatusOpen
	first.CreatedAt = book.clock.Add(-2 * time.Hour)
	second := limitOrder("b2", "u2", types.SideBuy, 100, 5)
	second.Status = types.OrderStatusPartial
	second.FilledQuantity = 2
	second.CreatedAt = book.clock.Add(-time.Hour)
	ask := limitOrder("s1", "u3", types.SideSell, 105, 1)
	ask.Status = types.OrderStatusOpen

	// loaded out of order, queued by creation time
	require.NoError(t, book.Load([]types.Order{second, ask, first}))

	snap := book.Snapshot(5)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, types.PriceLevel{Price: 100, TotalQuantity: 8, OrderCount: 2}, snap.Bids[0])

	res, err := book.Submit(limitOrder("s2", "u4", types.SideSell, 100, 6))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, "b1", res.Trades[0].MakerOrderID)
	assert.Equal(t, "b2", res.Trades[1].MakerOrderID)
	assert.Equal(t, uint64(1), res.Trades[1].Quantity)

	crossing := limitOrder("b9", "u5", types.SideBuy, 106, 1)
	crossing.Status = types.OrderStatusOpen
	assert.Error(t, book.Load([]types.Order{crossing}))

	closed := limitOrder("b10", "u5", types.SideBuy, 90, 1)
	closed.Status = types.OrderStatusFilled
	assert.ErrorIs(t, book.Load([]types.Order{closed}), types.ErrOrderNotLive)
}

func TestOrderBook_Stats(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, _ = book.Submit(limitOrder("b1", "u", types.SideBuy, 90, 3))
	_, _ = book.Submit(limitOrder("b2", "u", types.SideBuy, 95, 2))
	_, _ = book.Submit(limitOrder("s1", "v", types.SideSell, 100, 4))
	_, _ = book.Submit(limitOrder("s2", "w", types.SideSell, 95, 1))

	stats := book.Stats()
	assert.Equal(t, 2, stats.BuyOrders)
	assert.Equal(t, 1, stats.SellOrders)
	assert.Equal(t, uint64(4), stats.BuyVolume)
	assert.Equal(t, uint64(95), stats.BestBid)
	assert.Equal(t, uint64(100), stats.BestAsk)
	assert.Equal(t, uint64(95), stats.LastTradedPrice)
	assert.Equal(t, 1, stats.Trades)
}

func TestOrderBook_ReloadConfResizesHistory(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	for i := 0; i < 5; i++ {
		_, _ = book.Submit(limitOrder("", "m", types.SideSell, 100, 1))
		_, _ = book.Submit(limitOrder("", "t", types.SideBuy, 100, 1))
	}
	newest := book.RecentTrades(1)[0]

	cfg := NewDefaultConfig()
	cfg.TradeHistorySize = 2
	book.ReloadConf(cfg)

	recent := book.RecentTrades(10)
	require.Len(t, recent, 2)
	assert.Equal(t, newest, recent[0])
}

func TestOrderBook_MarketCost(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	for _, o := range []types.Order{
		limitOrder("s1", "alice", types.SideSell, 101, 2),
		limitOrder("s2", "alice", types.SideSell, 100, 3),
		limitOrder("s3", "bob", types.SideSell, 105, 10),
		limitOrder("b1", "carol", types.SideBuy, 95, 4),
	} {
		_, err := book.Submit(o)
		require.NoError(t, err)
	}

	cost, filled, ok := book.MarketCost(types.SideBuy, 6)
	require.True(t, ok)
	assert.Equal(t, uint64(6), filled)
	assert.Equal(t, uint64(3*100+2*101+1*105), cost)

	// more than the book holds
	cost, filled, ok = book.MarketCost(types.SideBuy, 100)
	require.True(t, ok)
	assert.Equal(t, uint64(15), filled)
	assert.Equal(t, uint64(3*100+2*101+10*105), cost)

	cost, filled, ok = book.MarketCost(types.SideSell, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), filled)
	assert.Equal(t, uint64(95), cost)

	// the book is unchanged
	assert.Equal(t, uint64(15), book.getTotalSellVolume())
	assert.Equal(t, uint64(4), book.getTotalBuyVolume())
}

func TestOrderBook_MarketCostOverflow(t *testing.T) {
	book := getTestOrderBook(t, testMarket)
	defer book.Finish()

	_, err := book.Submit(limitOrder("s1", "alice", types.SideSell, math.MaxUint64/2, 3))
	require.NoError(t, err)

	_, _, ok := book.MarketCost(types.SideBuy, 3)
	assert.False(t, ok)
}
