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
	"sort"
	"sync"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"
)

// Engine keeps one OrderBook per market. Books share nothing but the
// registry, so markets never contend with each other.
type Engine struct {
	log *logging.Logger
	cfg Config

	mu    sync.RWMutex
	books map[string]*OrderBook
}

// New instantiates a matching engine with no markets.
func New(log *logging.Logger, cfg Config) *Engine {
	return &Engine{
		log:   log,
		cfg:   cfg,
		books: map[string]*OrderBook{},
	}
}

// CreateMarket returns the book of the market, creating it when needed.
func (e *Engine) CreateMarket(marketID string) *OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()

	if book, ok := e.books[marketID]; ok {
		return book
	}
	book := NewOrderBook(e.log, e.cfg, marketID)
	e.books[marketID] = book
	e.log.Info("order book created", logging.MarketID(marketID))
	return book
}

// Book returns the book of a market.
func (e *Engine) Book(marketID string) (*OrderBook, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	book, ok := e.books[marketID]
	if !ok {
		return nil, types.ErrInvalidMarketID
	}
	return book, nil
}

// Markets lists the markets with a book, sorted by id.
func (e *Engine) Markets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.books))
	for id := range e.books {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Submit routes the order to the book of its market.
func (e *Engine) Submit(order types.Order) (types.MatchResult, error) {
	book, err := e.Book(order.Market)
	if err != nil {
		return types.MatchResult{}, err
	}
	return book.Submit(order)
}

// Cancel removes an order from the book of the given market.
func (e *Engine) Cancel(marketID, orderID string) (*types.Order, bool) {
	book, err := e.Book(marketID)
	if err != nil {
		return nil, false
	}
	return book.Cancel(orderID)
}

func (e *Engine) Snapshot(marketID string, depth int) (types.OrderBookSnapshot, error) {
	book, err := e.Book(marketID)
	if err != nil {
		return types.OrderBookSnapshot{}, err
	}
	return book.Snapshot(depth), nil
}

func (e *Engine) RecentTrades(marketID string, limit int) ([]types.Trade, error) {
	book, err := e.Book(marketID)
	if err != nil {
		return nil, err
	}
	return book.RecentTrades(limit), nil
}

func (e *Engine) MarketCost(marketID string, side types.Side, qty uint64) (cost, filled uint64, ok bool, err error) {
	book, err := e.Book(marketID)
	if err != nil {
		return 0, 0, false, err
	}
	cost, filled, ok = book.MarketCost(side, qty)
	return cost, filled, ok, nil
}

// Load rebuilds the book of a market from stored resting orders.
func (e *Engine) Load(marketID string, orders []types.Order) error {
	book, err := e.Book(marketID)
	if err != nil {
		return err
	}
	return book.Load(orders)
}

// ReloadConf propagates a new configuration to every book.
func (e *Engine) ReloadConf(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	books := make([]*OrderBook, 0, len(e.books))
	for _, b := range e.books {
		books = append(books, b)
	}
	e.mu.Unlock()

	for _, b := range books {
		b.ReloadConf(cfg)
	}
}
