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

package markets

import (
	"context"
	"fmt"
	"sync"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/matching"
	"github.com/keshu12345/crypto-market/types"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
)

// ErrInvalidMarket signals a market definition that cannot be traded.
var ErrInvalidMarket = errors.New("invalid market definition")

const listKey = "markets"

// MarketStore persists the market definitions.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/market_store_mock.go -package mocks github.com/keshu12345/crypto-market/markets MarketStore
type MarketStore interface {
	Upsert(ctx context.Context, m types.Market) error
	GetAll(ctx context.Context) ([]types.Market, error)
	GetBySymbol(ctx context.Context, symbol string) (types.Market, error)
}

// Books creates the order book of a market.
type Books interface {
	CreateMarket(marketID string) *matching.OrderBook
}

type Svc struct {
	Config
	log   *logging.Logger
	store MarketStore
	books Books

	mu    sync.RWMutex
	cache *expirable.LRU[string, []types.Market]
}

func NewService(log *logging.Logger, config Config, store MarketStore, books Books) *Svc {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Svc{
		Config: config,
		log:    log,
		store:  store,
		books:  books,
		cache:  expirable.NewLRU[string, []types.Market](1, nil, config.CacheTTL.Get()),
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

	s.mu.Lock()
	if cfg.CacheTTL != s.CacheTTL {
		s.cache = expirable.NewLRU[string, []types.Market](1, nil, cfg.CacheTTL.Get())
	}
	s.Config = cfg
	s.mu.Unlock()
}

func (s *Svc) getCache() *expirable.LRU[string, []types.Market] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache
}

// Bootstrap stores the configured markets and opens a book for every
// known market, including those only found in the store.
func (s *Svc) Bootstrap(ctx context.Context) error {
	s.mu.RLock()
	configured := s.Markets
	s.mu.RUnlock()

	for _, m := range configured {
		if err := Validate(m); err != nil {
			return fmt.Errorf("market %q: %w", m.Symbol, err)
		}
		if err := s.store.Upsert(ctx, m); err != nil {
			return fmt.Errorf("could not store market %q: %w", m.Symbol, err)
		}
	}
	s.getCache().Purge()

	all, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, m := range all {
		s.books.CreateMarket(m.Symbol)
		s.log.Info("market opened",
			logging.MarketID(m.Symbol),
			logging.Uint64("tick-size", m.TickSize),
			logging.Uint64("min-order-size", m.MinOrderSize))
	}
	return nil
}

// List returns every market, cached for the configured TTL.
func (s *Svc) List(ctx context.Context) ([]types.Market, error) {
	cache := s.getCache()
	if markets, ok := cache.Get(listKey); ok {
		return markets, nil
	}
	markets, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	cache.Add(listKey, markets)
	return markets, nil
}

// Get returns a market by symbol.
func (s *Svc) Get(ctx context.Context, symbol string) (types.Market, error) {
	markets, err := s.List(ctx)
	if err != nil {
		return types.Market{}, err
	}
	for _, m := range markets {
		if m.Symbol == symbol {
			return m, nil
		}
	}
	// the cached list may predate the market
	return s.store.GetBySymbol(ctx, symbol)
}

// Validate checks a market definition is tradable.
func Validate(m types.Market) error {
	switch {
	case len(m.Symbol) == 0:
		return errors.Wrap(ErrInvalidMarket, "missing symbol")
	case len(m.BaseAsset) == 0 || len(m.QuoteAsset) == 0:
		return errors.Wrap(ErrInvalidMarket, "missing asset")
	case m.BaseAsset == m.QuoteAsset:
		return errors.Wrap(ErrInvalidMarket, "base and quote assets must differ")
	case m.TickSize == 0:
		return errors.Wrap(ErrInvalidMarket, "tick size must be positive")
	case m.MinOrderSize == 0:
		return errors.Wrap(ErrInvalidMarket, "min order size must be positive")
	case m.MakerFeeBps > 10_000 || m.TakerFeeBps > 10_000:
		return errors.Wrap(ErrInvalidMarket, "fees cannot exceed 100%")
	}
	return nil
}
