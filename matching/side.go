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
	"time"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/google/btree"
	"github.com/pkg/errors"
)

const btreeDegree = 32

var (
	// ErrPriceNotFound signals that a price was not found on the book side.
	ErrPriceNotFound = errors.New("price-volume pair not found")
	// ErrOrderNotOnSide signals that the order is not resting on this side.
	ErrOrderNotOnSide = errors.New("order not found on book side")
)

// tradeFactory builds the trade between an aggressive and a passive order.
type tradeFactory func(agg, pass *types.Order, size uint64) types.Trade

// OrderBookSide represent a side of the book, either Sell or Buy. Levels are
// kept in a btree ordered by ascending price, the best price being the max
// for the buy side and the min for the sell side.
type OrderBookSide struct {
	side   types.Side
	log    *logging.Logger
	levels *btree.BTreeG[*PriceLevel]
}

func newOrderBookSide(log *logging.Logger, side types.Side) *OrderBookSide {
	return &OrderBookSide{
		side: side,
		log:  log,
		levels: btree.NewG(btreeDegree, func(a, b *PriceLevel) bool {
			return a.price < b.price
		}),
	}
}

func (s *OrderBookSide) addOrder(o *types.Order) {
	s.getPriceLevel(o.Price).addOrder(o)
}

// best returns the level with the most aggressive price on this side.
func (s *OrderBookSide) best() (*PriceLevel, bool) {
	if s.side == types.SideBuy {
		return s.levels.Max()
	}
	return s.levels.Min()
}

// BestPriceAndVolume returns the top of book price and volume
// returns an error if the book is empty.
func (s *OrderBookSide) BestPriceAndVolume() (uint64, uint64, error) {
	level, ok := s.best()
	if !ok {
		return 0, 0, errors.New("no orders on the book")
	}
	return level.price, level.volume, nil
}

func (s *OrderBookSide) getPriceLevelIfExists(price uint64) *PriceLevel {
	level, ok := s.levels.Get(&PriceLevel{price: price})
	if !ok {
		return nil
	}
	return level
}

func (s *OrderBookSide) getPriceLevel(price uint64) *PriceLevel {
	if level := s.getPriceLevelIfExists(price); level != nil {
		return level
	}
	level := NewPriceLevel(price)
	s.levels.ReplaceOrInsert(level)
	return level
}

// GetVolume returns the volume at the given pricelevel.
func (s *OrderBookSide) GetVolume(price uint64) (uint64, error) {
	priceLevel := s.getPriceLevelIfExists(price)
	if priceLevel == nil {
		return 0, ErrPriceNotFound
	}
	return priceLevel.volume, nil
}

// RemoveOrder will remove an order from the book. The level is deleted
// with its last order so no empty level is ever left behind.
func (s *OrderBookSide) RemoveOrder(orderID string, price uint64) (*types.Order, error) {
	level := s.getPriceLevelIfExists(price)
	if level == nil {
		return nil, ErrOrderNotOnSide
	}

	idx := level.indexOf(orderID)
	if idx == -1 {
		return nil, ErrOrderNotOnSide
	}

	order := level.orders[idx]
	level.removeOrder(idx)
	if len(level.orders) == 0 {
		s.levels.Delete(level)
	}
	return order, nil
}

func (s *OrderBookSide) getOrder(orderID string, price uint64) (*types.Order, bool) {
	level := s.getPriceLevelIfExists(price)
	if level == nil {
		return nil, false
	}
	idx := level.indexOf(orderID)
	if idx == -1 {
		return nil, false
	}
	return level.orders[idx], true
}

// uncross matches agg against this side, best price first, until agg is
// filled, the book no longer crosses, or a wash trade is detected.
func (s *OrderBookSide) uncross(agg *types.Order, policy SelfTradePolicy, now time.Time, mkTrade tradeFactory) ([]types.Trade, []*types.Order, error) {
	var (
		trades         []types.Trade
		impactedOrders []*types.Order
		filled         bool
		err            error
	)

	for !filled {
		level, ok := s.best()
		if !ok || !agg.Crosses(level.price) {
			break
		}

		var (
			ntrades []types.Trade
			nimpact []*types.Order
		)
		filled, ntrades, nimpact, err = level.uncross(agg, policy, now, mkTrade)
		trades = append(trades, ntrades...)
		impactedOrders = append(impactedOrders, nimpact...)

		if len(level.orders) == 0 {
			s.levels.Delete(level)
		}
		if err != nil {
			break
		}
	}

	return trades, impactedOrders, err
}

// levelsView returns up to depth levels, best price first.
func (s *OrderBookSide) levelsView(depth int) []types.PriceLevel {
	if depth <= 0 {
		return []types.PriceLevel{}
	}
	out := make([]types.PriceLevel, 0, min(depth, s.levels.Len()))
	iter := func(level *PriceLevel) bool {
		out = append(out, level.view())
		return len(out) < depth
	}
	if s.side == types.SideBuy {
		s.levels.Descend(iter)
	} else {
		s.levels.Ascend(iter)
	}
	return out
}

// walkOrders visits every resting order from best to worst price, in
// queue order within a level.
func (s *OrderBookSide) walkOrders(fn func(*types.Order)) {
	iter := func(level *PriceLevel) bool {
		for _, o := range level.orders {
			fn(o)
		}
		return true
	}
	if s.side == types.SideBuy {
		s.levels.Descend(iter)
	} else {
		s.levels.Ascend(iter)
	}
}

// costOf walks the side from the best price and returns the notional of
// taking up to qty, and the quantity actually available. ok is false when
// the notional does not fit in an uint64.
func (s *OrderBookSide) costOf(qty uint64) (cost, filled uint64, ok bool) {
	ok = true
	iter := func(level *PriceLevel) bool {
		take := min(level.volume, qty-filled)
		if take != 0 && level.price > (math.MaxUint64-cost)/take {
			ok = false
			return false
		}
		cost += level.price * take
		filled += take
		return filled < qty
	}
	if qty == 0 {
		return 0, 0, true
	}
	if s.side == types.SideBuy {
		s.levels.Descend(iter)
	} else {
		s.levels.Ascend(iter)
	}
	return cost, filled, ok
}

func (s *OrderBookSide) getLevelCount() int {
	return s.levels.Len()
}

func (s *OrderBookSide) getOrderCount() int {
	var orderCount int
	s.levels.Ascend(func(level *PriceLevel) bool {
		orderCount += len(level.orders)
		return true
	})
	return orderCount
}

func (s *OrderBookSide) getTotalVolume() uint64 {
	var volume uint64
	s.levels.Ascend(func(level *PriceLevel) bool {
		volume += level.volume
		return true
	})
	return volume
}
