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

package orders

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// OrderStore persists the orders.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/order_store_mock.go -package mocks github.com/keshu12345/crypto-market/orders OrderStore
type OrderStore interface {
	Add(ctx context.Context, o types.Order) error
	Update(ctx context.Context, o types.Order) error
	GetByID(ctx context.Context, id string) (types.Order, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]types.Order, error)
	GetLive(ctx context.Context) ([]types.Order, error)
}

// Books is the matching engine.
type Books interface {
	Submit(order types.Order) (types.MatchResult, error)
	Cancel(marketID, orderID string) (*types.Order, bool)
	Snapshot(marketID string, depth int) (types.OrderBookSnapshot, error)
	MarketCost(marketID string, side types.Side, qty uint64) (cost, filled uint64, ok bool, err error)
	Load(marketID string, orders []types.Order) error
}

// Markets resolves the market of an order.
type Markets interface {
	Get(ctx context.Context, symbol string) (types.Market, error)
}

// Accounts reserves and moves the funds backing the orders.
type Accounts interface {
	Lock(ctx context.Context, userID, asset string, amount uint64) error
	Unlock(ctx context.Context, userID, asset string, amount uint64) error
	ApplyTrade(ctx context.Context, market types.Market, t types.Trade, buyerLockPrice uint64) error
}

// Trades records the executed trades.
type Trades interface {
	Record(ctx context.Context, trades []types.Trade) error
}

// Settlement queues the trades for settlement.
type Settlement interface {
	Queue(ctx context.Context, market types.Market, trades []types.Trade) (string, error)
}

// PlaceOrderRequest is an order as submitted by a user.
type PlaceOrderRequest struct {
	UserID   string          `json:"user_id"`
	Market   string          `json:"market"`
	Side     types.Side      `json:"side"`
	Type     types.OrderType `json:"order_type"`
	Price    uint64          `json:"price"`
	Quantity uint64          `json:"quantity"`
}

// reservation is what was locked to back an order.
type reservation struct {
	asset  string
	amount uint64
}

type Svc struct {
	Config
	cfgMu      sync.RWMutex
	log        *logging.Logger
	store      OrderStore
	books      Books
	markets    Markets
	accounts   Accounts
	trades     Trades
	settlement Settlement
	broker     broker.BrokerI

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted

	now   func() time.Time
	newID func() string
}

func NewService(
	log *logging.Logger,
	config Config,
	store OrderStore,
	books Books,
	markets Markets,
	accounts Accounts,
	trades Trades,
	settlement Settlement,
	broker broker.BrokerI,
) *Svc {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Svc{
		Config:     config,
		log:        log,
		store:      store,
		books:      books,
		markets:    markets,
		accounts:   accounts,
		trades:     trades,
		settlement: settlement,
		broker:     broker,
		sems:       map[string]*semaphore.Weighted{},
		now:        time.Now,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

// ReloadConf updates the internal configuration of the service.
func (s *Svc) ReloadConf(cfg Config) {
	s.log.Info("reloading configuration")
	if s.log.GetLevel() != cfg.Level.Get() {
		s.log.Info("updating log level",
			logging.String("old", s.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		s.log.SetLevel(cfg.Level.Get())
	}

	s.cfgMu.Lock()
	s.Config = cfg
	s.cfgMu.Unlock()
}

func (s *Svc) config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.Config
}

// marketLock returns the semaphore serialising the writes to a market.
func (s *Svc) marketLock(market string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[market]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.sems[market] = sem
	}
	return sem
}

func (s *Svc) validate(ctx context.Context, req *PlaceOrderRequest) (types.Market, error) {
	if len(req.UserID) == 0 {
		return types.Market{}, types.ErrInvalidUserID
	}
	if !req.Side.IsValid() {
		return types.Market{}, types.ErrInvalidSide
	}
	if !req.Type.IsValid() {
		return types.Market{}, types.ErrInvalidOrderType
	}
	market, err := s.markets.Get(ctx, req.Market)
	if err != nil {
		return types.Market{}, err
	}
	if err := market.ValidateQuantity(req.Quantity); err != nil {
		return types.Market{}, err
	}
	if req.Type == types.OrderTypeMarket {
		req.Price = 0
		return market, nil
	}
	if err := market.ValidatePrice(req.Price); err != nil {
		return types.Market{}, err
	}
	if req.Side == types.SideBuy && req.Quantity > math.MaxInt64/req.Price {
		return types.Market{}, types.ErrInvalidAmount
	}
	return market, nil
}

// reserve locks the funds an order may spend. The market lock must be held
// so a market buy pays at most what the book shows.
func (s *Svc) reserve(ctx context.Context, market types.Market, o types.Order) (reservation, error) {
	r := reservation{asset: market.BaseAsset, amount: o.Quantity}
	if o.Side == types.SideBuy {
		r.asset = market.QuoteAsset
		switch o.Type {
		case types.OrderTypeLimit:
			r.amount = o.Price * o.Quantity
		case types.OrderTypeMarket:
			cost, _, ok, err := s.books.MarketCost(o.Market, o.Side, o.Quantity)
			if err != nil {
				return reservation{}, err
			}
			if !ok {
				return reservation{}, types.ErrInvalidAmount
			}
			r.amount = cost
		}
	}
	if r.amount == 0 {
		return r, nil
	}
	if err := s.accounts.Lock(ctx, o.UserID, r.asset, r.amount); err != nil {
		return reservation{}, err
	}
	return r, nil
}

func (s *Svc) release(ctx context.Context, userID string, r reservation, amount uint64) {
	if amount == 0 {
		return
	}
	if err := s.accounts.Unlock(ctx, userID, r.asset, amount); err != nil {
		s.log.Error("could not release reserved funds",
			logging.UserID(userID),
			logging.String("asset", r.asset),
			logging.Uint64("amount", amount),
			logging.Error(err))
	}
}

// PlaceOrder validates the order, reserves the funds backing it and matches
// it against the book. Once matched the order is committed: failures to
// persist its consequences are logged and do not fail the call.
func (s *Svc) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*types.Order, []types.Trade, error) {
	market, err := s.validate(ctx, &req)
	if err != nil {
		return nil, nil, err
	}

	sem := s.marketLock(market.Symbol)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer sem.Release(1)

	now := s.now()
	order := types.Order{
		ID:        s.newID(),
		UserID:    req.UserID,
		Market:    market.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Status:    types.OrderStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := s.reserve(ctx, market, order)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.Add(ctx, order); err != nil {
		s.release(ctx, order.UserID, res, res.amount)
		return nil, nil, err
	}

	result, err := s.books.Submit(order)
	if err != nil {
		s.release(ctx, order.UserID, res, res.amount)
		order.Status = types.OrderStatusCancelled
		s.persist(ctx, order)
		return nil, nil, err
	}

	taker := result.Order
	s.persist(ctx, taker)
	for _, m := range result.Makers {
		s.persist(ctx, m)
	}

	if len(result.Trades) > 0 {
		if err := s.trades.Record(ctx, result.Trades); err != nil {
			s.log.Error("could not record trades", logging.OrderID(taker.ID), logging.Error(err))
		}
	}

	var consumed uint64
	for _, t := range result.Trades {
		lockPrice := t.Price
		if taker.Side == types.SideBuy && taker.Type == types.OrderTypeLimit {
			lockPrice = taker.Price
		}
		if taker.Side == types.SideBuy {
			consumed += lockPrice * t.Quantity
		} else {
			consumed += t.Quantity
		}
		if err := s.accounts.ApplyTrade(ctx, market, t, lockPrice); err != nil {
			s.log.Error("could not apply trade to balances", logging.Trade(t), logging.Error(err))
		}
	}
	if !taker.Status.IsLive() && res.amount > consumed {
		s.release(ctx, taker.UserID, res, res.amount-consumed)
	}

	if len(result.Trades) > 0 {
		id, err := s.settlement.Queue(ctx, market, result.Trades)
		if err != nil {
			s.log.Error("could not queue settlement", logging.OrderID(taker.ID), logging.Error(err))
		} else {
			s.log.Debug("trades queued for settlement",
				logging.OrderID(taker.ID),
				logging.String("settlement-id", id))
		}
	}

	s.publish(ctx, market.Symbol, append([]types.Order{taker}, result.Makers...), result.Trades)
	s.log.Debug("order placed",
		logging.Order(taker),
		logging.Int("trades", len(result.Trades)))
	return &taker, result.Trades, nil
}

// CancelOrder removes a live order of the user from the book and releases
// the funds still reserved for it.
func (s *Svc) CancelOrder(ctx context.Context, orderID, userID string) (*types.Order, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, types.ErrOrderNotOwned
	}
	if !o.Status.IsLive() {
		return nil, types.ErrOrderNotLive
	}

	sem := s.marketLock(o.Market)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	cancelled, ok := s.books.Cancel(o.Market, orderID)
	if !ok {
		// filled or cancelled since it was read
		return nil, types.ErrOrderNotLive
	}
	s.persist(ctx, *cancelled)

	market, err := s.markets.Get(ctx, cancelled.Market)
	if err != nil {
		s.log.Error("could not release funds of cancelled order",
			logging.OrderID(cancelled.ID),
			logging.Error(err))
	} else {
		res := reservation{asset: market.BaseAsset, amount: cancelled.Remaining()}
		if cancelled.Side == types.SideBuy {
			res = reservation{asset: market.QuoteAsset, amount: cancelled.Price * cancelled.Remaining()}
		}
		s.release(ctx, cancelled.UserID, res, res.amount)
	}

	s.publish(ctx, cancelled.Market, []types.Order{*cancelled}, nil)
	s.log.Debug("order cancelled", logging.Order(*cancelled))
	return cancelled, nil
}

// GetUserOrders returns the orders of a user, most recent first.
func (s *Svc) GetUserOrders(ctx context.Context, userID string) ([]types.Order, error) {
	if len(userID) == 0 {
		return nil, types.ErrInvalidUserID
	}
	return s.store.GetByUser(ctx, userID, s.config().UserOrdersLimit)
}

// RestoreBooks puts the stored live orders back in their books, in arrival
// order, and returns how many were loaded.
func (s *Svc) RestoreBooks(ctx context.Context) (int, error) {
	live, err := s.store.GetLive(ctx)
	if err != nil {
		return 0, err
	}
	byMarket := map[string][]types.Order{}
	markets := []string{}
	for _, o := range live {
		if _, ok := byMarket[o.Market]; !ok {
			markets = append(markets, o.Market)
		}
		byMarket[o.Market] = append(byMarket[o.Market], o)
	}
	for _, m := range markets {
		if err := s.books.Load(m, byMarket[m]); err != nil {
			return 0, err
		}
		s.log.Info("order book restored",
			logging.MarketID(m),
			logging.Int("orders", len(byMarket[m])))
	}
	return len(live), nil
}

func (s *Svc) persist(ctx context.Context, o types.Order) {
	if err := s.store.Update(ctx, o); err != nil {
		s.log.Error("could not persist order", logging.Order(o), logging.Error(err))
	}
}

func (s *Svc) publish(ctx context.Context, market string, orders []types.Order, trades []types.Trade) {
	evts := make([]events.Event, 0, len(orders)+len(trades)+1)
	for _, o := range orders {
		evts = append(evts, events.NewOrderEvent(ctx, o))
	}
	for _, t := range trades {
		evts = append(evts, events.NewTradeEvent(ctx, t))
	}
	if snap, err := s.books.Snapshot(market, s.config().BookEventDepth); err == nil {
		evts = append(evts, events.NewBookEvent(ctx, snap))
	}
	s.broker.SendBatch(evts)
}
