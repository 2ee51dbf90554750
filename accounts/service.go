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

package accounts

import (
	"context"
	"math"
	"sync"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// BalanceStore persists the user balances.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/balance_store_mock.go -package mocks github.com/keshu12345/crypto-market/accounts BalanceStore
type BalanceStore interface {
	Get(ctx context.Context, userID, asset string) (types.Balance, error)
	GetAll(ctx context.Context, userID string) ([]types.Balance, error)
	Apply(ctx context.Context, changes ...types.BalanceChange) error
}

type Svc struct {
	Config
	log   *logging.Logger
	store BalanceStore

	mu    sync.RWMutex
	cache *expirable.LRU[string, types.Balance]
}

func NewService(log *logging.Logger, config Config, store BalanceStore) *Svc {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Svc{
		Config: config,
		log:    log,
		store:  store,
		cache:  newCache(config),
	}
}

func newCache(config Config) *expirable.LRU[string, types.Balance] {
	return expirable.NewLRU[string, types.Balance](config.CacheSize, nil, config.CacheTTL.Get())
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

	s.mu.Lock()
	if cfg.CacheTTL != s.CacheTTL || cfg.CacheSize != s.CacheSize {
		s.cache = newCache(cfg)
	}
	s.Config = cfg
	s.mu.Unlock()
}

func cacheKey(userID, asset string) string {
	return userID + "/" + asset
}

func (s *Svc) getCache() *expirable.LRU[string, types.Balance] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Balance returns the balance of a user in an asset, served from the cache
// when it was read recently.
func (s *Svc) Balance(ctx context.Context, userID, asset string) (types.Balance, error) {
	if len(userID) == 0 {
		return types.Balance{}, types.ErrInvalidUserID
	}
	cache := s.getCache()
	key := cacheKey(userID, asset)
	if b, ok := cache.Get(key); ok {
		return b, nil
	}
	b, err := s.store.Get(ctx, userID, asset)
	if err != nil {
		return types.Balance{}, err
	}
	cache.Add(key, b)
	return b, nil
}

// Balances returns every balance held by a user.
func (s *Svc) Balances(ctx context.Context, userID string) ([]types.Balance, error) {
	if len(userID) == 0 {
		return nil, types.ErrInvalidUserID
	}
	return s.store.GetAll(ctx, userID)
}

// Deposit credits the available balance.
func (s *Svc) Deposit(ctx context.Context, userID, asset string, amount uint64) error {
	delta, err := toDelta(amount)
	if err != nil {
		return err
	}
	return s.Apply(ctx, types.BalanceChange{UserID: userID, Asset: asset, AvailableDelta: delta})
}

// Lock moves funds from available to locked, failing with
// ErrInsufficientFunds when the available balance is too small.
func (s *Svc) Lock(ctx context.Context, userID, asset string, amount uint64) error {
	delta, err := toDelta(amount)
	if err != nil {
		return err
	}
	return s.Apply(ctx, types.BalanceChange{UserID: userID, Asset: asset, AvailableDelta: -delta, LockedDelta: delta})
}

// Unlock releases locked funds back to available.
func (s *Svc) Unlock(ctx context.Context, userID, asset string, amount uint64) error {
	delta, err := toDelta(amount)
	if err != nil {
		return err
	}
	return s.Apply(ctx, types.BalanceChange{UserID: userID, Asset: asset, AvailableDelta: delta, LockedDelta: -delta})
}

// ApplyTrade settles the funds of a trade between buyer and seller. The
// buyer's quote was locked at buyerLockPrice per unit, anything above the
// trade price is given back. The seller's base was locked one for one.
func (s *Svc) ApplyTrade(ctx context.Context, market types.Market, t types.Trade, buyerLockPrice uint64) error {
	if buyerLockPrice < t.Price {
		buyerLockPrice = t.Price
	}
	qty, err := toDelta(t.Quantity)
	if err != nil {
		return err
	}
	locked, err := mulDelta(buyerLockPrice, t.Quantity)
	if err != nil {
		return err
	}
	notional, err := mulDelta(t.Price, t.Quantity)
	if err != nil {
		return err
	}
	buyer, seller := t.Buyer(), t.Seller()
	return s.Apply(ctx,
		types.BalanceChange{UserID: buyer, Asset: market.QuoteAsset, AvailableDelta: locked - notional, LockedDelta: -locked},
		types.BalanceChange{UserID: buyer, Asset: market.BaseAsset, AvailableDelta: qty},
		types.BalanceChange{UserID: seller, Asset: market.BaseAsset, LockedDelta: -qty},
		types.BalanceChange{UserID: seller, Asset: market.QuoteAsset, AvailableDelta: notional},
	)
}

// Apply writes the changes atomically and drops the cached balances they touch.
func (s *Svc) Apply(ctx context.Context, changes ...types.BalanceChange) error {
	for _, c := range changes {
		if len(c.UserID) == 0 {
			return types.ErrInvalidUserID
		}
	}
	err := s.store.Apply(ctx, changes...)
	cache := s.getCache()
	for _, c := range changes {
		cache.Remove(cacheKey(c.UserID, c.Asset))
	}
	if err != nil {
		s.log.Debug("balance changes rejected", logging.Error(err))
		return err
	}
	return nil
}

func toDelta(amount uint64) (int64, error) {
	if amount == 0 || amount > math.MaxInt64 {
		return 0, types.ErrInvalidAmount
	}
	return int64(amount), nil
}

func mulDelta(price, qty uint64) (int64, error) {
	if price != 0 && qty > math.MaxInt64/price {
		return 0, types.ErrInvalidAmount
	}
	return int64(price * qty), nil
}
