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

package trades

import (
	"context"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/pkg/errors"
)

// TradeStore persists the executed trades.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/trade_store_mock.go -package mocks github.com/keshu12345/crypto-market/trades TradeStore
type TradeStore interface {
	Add(ctx context.Context, trades ...types.Trade) error
	GetByMarket(ctx context.Context, market string, limit int) ([]types.Trade, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]types.Trade, error)
}

// Books gives access to the in memory trade history of the books.
type Books interface {
	RecentTrades(marketID string, limit int) ([]types.Trade, error)
}

type Svc struct {
	Config
	log   *logging.Logger
	store TradeStore
	books Books
}

func NewService(log *logging.Logger, config Config, store TradeStore, books Books) *Svc {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Svc{
		Config: config,
		log:    log,
		store:  store,
		books:  books,
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

	s.Config = cfg
}

// ClampLimit applies the default and maximum to a requested number of trades.
func (s *Svc) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.DefaultLimit
	}
	if limit > s.MaxLimit {
		return s.MaxLimit
	}
	return limit
}

// Record persists the trades of one match.
func (s *Svc) Record(ctx context.Context, trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	if err := s.store.Add(ctx, trades...); err != nil {
		s.log.Error("could not store trades",
			logging.MarketID(trades[0].Market),
			logging.Int("count", len(trades)),
			logging.Error(err))
		return err
	}
	return nil
}

// Recent returns the latest trades of a market, most recent first. The
// book history answers when it holds enough trades, the store otherwise.
func (s *Svc) Recent(ctx context.Context, market string, limit int) ([]types.Trade, error) {
	limit = s.ClampLimit(limit)
	trades, err := s.books.RecentTrades(market, limit)
	if err != nil && !errors.Is(err, types.ErrInvalidMarketID) {
		return nil, err
	}
	if err == nil && len(trades) == limit {
		return trades, nil
	}
	return s.store.GetByMarket(ctx, market, limit)
}

// ByUser returns the trades of a user on either side, most recent first.
func (s *Svc) ByUser(ctx context.Context, userID string, limit int) ([]types.Trade, error) {
	if len(userID) == 0 {
		return nil, types.ErrInvalidUserID
	}
	return s.store.GetByUser(ctx, userID, s.ClampLimit(limit))
}
