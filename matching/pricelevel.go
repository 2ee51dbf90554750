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
	"time"

	"github.com/keshu12345/crypto-market/types"

	"github.com/pkg/errors"
)

// ErrWashTrade signals that an order would have traded with an order of
// the same user and the self trade policy forbids it.
var ErrWashTrade = errors.New("party attempted to submit wash trade")

// PriceLevel holds all the resting orders at a given price, in arrival order.
type PriceLevel struct {
	price  uint64
	volume uint64
	orders []*types.Order
}

// NewPriceLevel instantiate a new PriceLevel.
func NewPriceLevel(price uint64) *PriceLevel {
	return &PriceLevel{
		price:  price,
		orders: []*types.Order{},
	}
}

func (l *PriceLevel) reduceVolume(reduceBy uint64) {
	l.volume -= reduceBy
}

func (l *PriceLevel) addOrder(o *types.Order) {
	// add orders to slice of orders on this price level
	l.orders = append(l.orders, o)
	l.volume += o.Remaining()
}

func (l *PriceLevel) removeOrder(index int) {
	// decrease total volume
	l.volume -= l.orders[index].Remaining()
	// remove the orders at index
	copy(l.orders[index:], l.orders[index+1:])
	l.orders[len(l.orders)-1] = nil
	l.orders = l.orders[:len(l.orders)-1]
}

func (l *PriceLevel) indexOf(orderID string) int {
	for i, o := range l.orders {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

// uncross fills the aggressive order against the orders of this level in
// FIFO order. Fully filled orders are removed from the level and returned
// in impactedOrders along with the partially filled one, if any.
func (l *PriceLevel) uncross(agg *types.Order, policy SelfTradePolicy, now time.Time, mkTrade tradeFactory) (filled bool, trades []types.Trade, impactedOrders []*types.Order, err error) {
	for len(l.orders) > 0 && agg.Remaining() > 0 {
		order := l.orders[0]

		if policy == SelfTradeStopTaker && order.UserID == agg.UserID {
			err = ErrWashTrade
			break
		}

		size := min(agg.Remaining(), order.Remaining())
		trades = append(trades, mkTrade(agg, order, size))

		agg.Fill(size, now)
		order.Fill(size, now)
		l.reduceVolume(size)
		impactedOrders = append(impactedOrders, order)

		if order.Remaining() == 0 {
			l.removeOrder(0)
		}
	}

	return agg.Remaining() == 0, trades, impactedOrders, err
}

func (l *PriceLevel) view() types.PriceLevel {
	return types.PriceLevel{
		Price:         l.price,
		TotalQuantity: l.volume,
		OrderCount:    len(l.orders),
	}
}
