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
	"sort"
	"sync"
	"time"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/metrics"
	"github.com/keshu12345/crypto-market/types"

	"github.com/google/uuid"
)

// orderRef locates a resting order inside the book.
type orderRef struct {
	side  types.Side
	price uint64
}

// OrderBook represents the book holding all orders of a single market.
// Writers (Submit, Cancel, Load) are serialised by the book's lock while
// readers share it, so a reader never sees a book in the middle of a match.
type OrderBook struct {
	log *logging.Logger
	cfg Config

	mu              sync.RWMutex
	marketID        string
	buy             *OrderBookSide
	sell            *OrderBookSide
	ordersByID      map[string]orderRef
	trades          *tradeHistory
	lastTradedPrice uint64

	now   func() time.Time
	newID func() string
}

// NewOrderBook create an order book with a given name.
func NewOrderBook(log *logging.Logger, config Config, marketID string) *OrderBook {
	// setup logger
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &OrderBook{
		log:        log,
		cfg:        config,
		marketID:   marketID,
		buy:        newOrderBookSide(log, types.SideBuy),
		sell:       newOrderBookSide(log, types.SideSell),
		ordersByID: map[string]orderRef{},
		trades:     newTradeHistory(config.TradeHistorySize),
		now:        time.Now,
		newID:      newUUID,
	}
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ReloadConf is used in order to reload the internal configuration of
// the OrderBook.
func (b *OrderBook) ReloadConf(cfg Config) {
	b.log.Info("reloading configuration")
	if b.log.GetLevel() != cfg.Level.Get() {
		b.log.Info("updating log level",
			logging.String("old", b.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		b.log.SetLevel(cfg.Level.Get())
	}

	b.mu.Lock()
	b.cfg = cfg
	b.trades.resize(cfg.TradeHistorySize)
	b.mu.Unlock()
}

// MarketID returns the market the book belongs to.
func (b *OrderBook) MarketID() string {
	return b.marketID
}

func (b *OrderBook) getSide(side types.Side) *OrderBookSide {
	if side == types.SideBuy {
		return b.buy
	}
	return b.sell
}

// Submit matches the order against the opposite side of the book under
// price-time priority. What remains of a limit order rests in the book,
// what remains of a market order is discarded and the order is reported
// as cancelled. The returned result only holds copies.
func (b *OrderBook) Submit(order types.Order) (types.MatchResult, error) {
	timer := metrics.NewTimeCounter(b.marketID, "matching", "Submit")
	defer timer.EngineTimeCounterAdd()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if order.ID == "" {
		order.ID = b.newID()
	}
	if err := b.validateOrder(&order); err != nil {
		metrics.OrderCounterInc(b.marketID, "false")
		return types.MatchResult{}, err
	}
	metrics.OrderCounterInc(b.marketID, "true")

	agg := order.Clone()
	agg.Status = types.OrderStatusOpen
	if agg.CreatedAt.IsZero() {
		agg.CreatedAt = now
	}
	agg.UpdatedAt = now

	// uncross only ever fails on a wash trade, which ends matching but still
	// leaves valid trades behind
	trades, impacted, err := b.getSide(agg.Side.Opposite()).uncross(agg, b.cfg.SelfTradePolicy, now, b.tradeFactory(now))

	makers := make([]types.Order, 0, len(impacted))
	for _, o := range impacted {
		if o.Remaining() == 0 {
			delete(b.ordersByID, o.ID)
			if b.cfg.LogRemovedOrdersDebug {
				b.log.Debug("Order filled and removed from book", logging.Order(*o))
			}
		}
		makers = append(makers, *o)
	}

	switch {
	case agg.Remaining() == 0:
		agg.Status = types.OrderStatusFilled
	case err == ErrWashTrade:
		b.log.Warn("wash trade prevented, cancelling remaining volume",
			logging.OrderID(agg.ID),
			logging.UserID(agg.UserID))
		agg.Status = types.OrderStatusCancelled
	case agg.Type == types.OrderTypeMarket:
		// a market order never rests, what is left is dropped even when
		// part of it traded
		agg.Status = types.OrderStatusCancelled
	default:
		b.getSide(agg.Side).addOrder(agg)
		b.ordersByID[agg.ID] = orderRef{side: agg.Side, price: agg.Price}
	}

	if len(trades) > 0 {
		b.trades.add(trades...)
		b.lastTradedPrice = trades[len(trades)-1].Price
		metrics.TradeCounterAdd(len(trades), b.marketID)
	}
	metrics.BookOrdersGaugeSet(len(b.ordersByID), b.marketID)

	if b.cfg.LogPriceLevelsDebug {
		b.printState("After submit order")
	}

	return types.MatchResult{
		Order:  *agg,
		Trades: trades,
		Makers: makers,
	}, nil
}

func (b *OrderBook) tradeFactory(now time.Time) tradeFactory {
	return func(agg, pass *types.Order, size uint64) types.Trade {
		return types.Trade{
			ID:           b.newID(),
			Market:       b.marketID,
			MakerOrderID: pass.ID,
			TakerOrderID: agg.ID,
			MakerUserID:  pass.UserID,
			TakerUserID:  agg.UserID,
			Price:        pass.Price,
			Quantity:     size,
			Side:         agg.Side,
			Timestamp:    now,
		}
	}
}

// Cancel removes a resting order from the book. It returns false and no
// order when the id is unknown, which includes orders already filled or
// cancelled.
func (b *OrderBook) Cancel(orderID string) (*types.Order, bool) {
	timer := metrics.NewTimeCounter(b.marketID, "matching", "Cancel")
	defer timer.EngineTimeCounterAdd()

	b.mu.Lock()
	defer b.mu.Unlock()

	ref, ok := b.ordersByID[orderID]
	if !ok {
		return nil, false
	}

	order, err := b.getSide(ref.side).RemoveOrder(orderID, ref.price)
	if err != nil {
		// the index and the levels disagree, drop the stale entry
		b.log.Error("order indexed but not found in its price level",
			logging.OrderID(orderID),
			logging.Uint64("price", ref.price),
			logging.Error(err))
		delete(b.ordersByID, orderID)
		return nil, false
	}
	delete(b.ordersByID, orderID)

	order.Status = types.OrderStatusCancelled
	order.UpdatedAt = b.now()
	metrics.BookOrdersGaugeSet(len(b.ordersByID), b.marketID)

	if b.cfg.LogRemovedOrdersDebug {
		b.log.Debug("Order cancelled and removed from book", logging.Order(*order))
	}
	return order.Clone(), true
}

// Snapshot returns the aggregated depth of the book, up to depth levels per
// side. Bids are sorted by descending price, asks by ascending price.
func (b *OrderBook) Snapshot(depth int) types.OrderBookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return types.OrderBookSnapshot{
		Market:    b.marketID,
		Bids:      b.buy.levelsView(depth),
		Asks:      b.sell.levelsView(depth),
		Timestamp: b.now(),
	}
}

// RecentTrades returns up to limit of the latest trades, newest first.
func (b *OrderBook) RecentTrades(limit int) []types.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trades.recent(limit)
}

// MarketCost returns what a market order of the given side and quantity
// would pay (buy) or receive (sell) against the current book, and the
// quantity it would fill.
func (b *OrderBook) MarketCost(side types.Side, qty uint64) (cost, filled uint64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.getSide(side.Opposite()).costOf(qty)
}

// GetOrder returns a copy of a resting order.
func (b *OrderBook) GetOrder(orderID string) (types.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ref, ok := b.ordersByID[orderID]
	if !ok {
		return types.Order{}, false
	}
	o, ok := b.getSide(ref.side).getOrder(orderID, ref.price)
	if !ok {
		return types.Order{}, false
	}
	return *o, true
}

// Load puts previously accepted orders back in the book without matching
// them, e.g. when rebuilding the book from storage on start-up. Orders are
// queued by creation time, so the time priority they had is preserved.
// Orders that would cross the book are rejected.
func (b *OrderBook) Load(orders []types.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sorted := make([]types.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	for _, o := range sorted {
		if err := b.validateOrder(&o); err != nil {
			return fmt.Errorf("could not load order %s: %w", o.ID, err)
		}
		if o.Type != types.OrderTypeLimit || !o.Status.IsLive() {
			return fmt.Errorf("could not load order %s: %w", o.ID, types.ErrOrderNotLive)
		}
		if best, ok := b.getSide(o.Side.Opposite()).best(); ok && o.Crosses(best.price) {
			return fmt.Errorf("could not load order %s: crosses the book at %d", o.ID, best.price)
		}
		b.getSide(o.Side).addOrder(o.Clone())
		b.ordersByID[o.ID] = orderRef{side: o.Side, price: o.Price}
	}

	metrics.BookOrdersGaugeSet(len(b.ordersByID), b.marketID)
	b.log.Info("orders loaded in book",
		logging.MarketID(b.marketID),
		logging.Int("count", len(sorted)))
	return nil
}

// Stats is a summary of the state of a book.
type Stats struct {
	BuyOrders       int    `json:"buy_orders"`
	SellOrders      int    `json:"sell_orders"`
	BuyLevels       int    `json:"buy_levels"`
	SellLevels      int    `json:"sell_levels"`
	BuyVolume       uint64 `json:"buy_volume"`
	SellVolume      uint64 `json:"sell_volume"`
	BestBid         uint64 `json:"best_bid"`
	BestAsk         uint64 `json:"best_ask"`
	LastTradedPrice uint64 `json:"last_traded_price"`
	Trades          int    `json:"trades"`
}

func (b *OrderBook) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{
		BuyOrders:       b.buy.getOrderCount(),
		SellOrders:      b.sell.getOrderCount(),
		BuyLevels:       b.buy.getLevelCount(),
		SellLevels:      b.sell.getLevelCount(),
		BuyVolume:       b.buy.getTotalVolume(),
		SellVolume:      b.sell.getTotalVolume(),
		LastTradedPrice: b.lastTradedPrice,
		Trades:          b.trades.len(),
	}
	s.BestBid, _, _ = b.buy.BestPriceAndVolume()
	s.BestAsk, _, _ = b.sell.BestPriceAndVolume()
	return s
}

// printState prints the actual state of the book, the lock must be held.
// this should be use only in debug / non production environment as it
// rely a lot on logging.
func (b *OrderBook) printState(msg string) {
	b.log.Debug("PrintState",
		logging.String("msg", msg))
	b.log.Debug("------------------------------------------------------------")
	b.log.Debug("                        BUY SIDE                            ")
	b.buy.walkOrders(func(o *types.Order) {
		b.log.Debug("    Order", logging.Order(*o))
	})
	b.log.Debug("------------------------------------------------------------")
	b.log.Debug("                        SELL SIDE                           ")
	b.sell.walkOrders(func(o *types.Order) {
		b.log.Debug("    Order", logging.Order(*o))
	})
	b.log.Debug("------------------------------------------------------------")
}
