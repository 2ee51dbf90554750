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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"
)

const testMarket = "SOL-USDC"

type tstOB struct {
	*OrderBook
	log   *logging.Logger
	clock time.Time
	ids   int

	// snapshots read the clock under the read lock
	clockMu sync.Mutex
}

func (t *tstOB) Finish() {
	t.log.AtExit()
}

func getTestOrderBook(t *testing.T, market string) *tstOB {
	t.Helper()
	return getTestOrderBookWithConfig(t, market, NewDefaultConfig())
}

func getTestOrderBookWithConfig(t *testing.T, market string, cfg Config) *tstOB {
	t.Helper()
	tob := tstOB{
		log:   logging.NewTestLogger(),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	tob.OrderBook = NewOrderBook(tob.log, cfg, market)
	tob.OrderBook.now = func() time.Time {
		tob.clockMu.Lock()
		defer tob.clockMu.Unlock()
		tob.clock = tob.clock.Add(time.Millisecond)
		return tob.clock
	}
	tob.OrderBook.newID = func() string {
		tob.ids++
		return fmt.Sprintf("id-%06d", tob.ids)
	}
	return &tob
}

func limitOrder(id, user string, side types.Side, price, qty uint64) types.Order {
	return types.Order{
		ID:       id,
		UserID:   user,
		Market:   testMarket,
		Side:     side,
		Type:     types.OrderTypeLimit,
		Price:    price,
		Quantity: qty,
	}
}

func marketOrder(id, user string, side types.Side, qty uint64) types.Order {
	return types.Order{
		ID:       id,
		UserID:   user,
		Market:   testMarket,
		Side:     side,
		Type:     types.OrderTypeMarket,
		Quantity: qty,
	}
}

func (ob *OrderBook) getNumberOfBuyLevels() int {
	return ob.buy.getLevelCount()
}

func (ob *OrderBook) getNumberOfSellLevels() int {
	return ob.sell.getLevelCount()
}

func (ob *OrderBook) getTotalBuyVolume() uint64 {
	return ob.buy.getTotalVolume()
}

func (ob *OrderBook) getTotalSellVolume() uint64 {
	return ob.sell.getTotalVolume()
}

func (ob *OrderBook) getVolumeAtLevel(price uint64, side types.Side) uint64 {
	v, _ := ob.getSide(side).GetVolume(price)
	return v
}

// noEmptyLevels fails when a level without orders is still referenced.
func (ob *OrderBook) noEmptyLevels(t *testing.T) {
	t.Helper()
	for _, s := range []*OrderBookSide{ob.buy, ob.sell} {
		s.levels.Ascend(func(l *PriceLevel) bool {
			if len(l.orders) == 0 {
				t.Errorf("empty price level %d on %s side", l.price, s.side)
			}
			return true
		})
	}
}
