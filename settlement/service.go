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

package settlement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SettlementStore persists the settlement batches.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/settlement_store_mock.go -package mocks github.com/keshu12345/crypto-market/settlement SettlementStore
type SettlementStore interface {
	Add(ctx context.Context, s types.Settlement) error
	GetByID(ctx context.Context, id string) (types.Settlement, error)
	GetPending(ctx context.Context, limit int) ([]types.Settlement, error)
	UpdateStatus(ctx context.Context, id string, status types.SettlementStatus) error
}

// Accounts charges the fees.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/accounts_mock.go -package mocks github.com/keshu12345/crypto-market/settlement Accounts
type Accounts interface {
	Apply(ctx context.Context, changes ...types.BalanceChange) error
}

// Markets resolves the market of a settlement.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/markets_mock.go -package mocks github.com/keshu12345/crypto-market/settlement Markets
type Markets interface {
	Get(ctx context.Context, symbol string) (types.Market, error)
}

type Svc struct {
	Config
	mu       sync.RWMutex
	log      *logging.Logger
	store    SettlementStore
	accounts Accounts
	markets  Markets

	now   func() time.Time
	newID func() string
}

func NewService(log *logging.Logger, config Config, store SettlementStore, accounts Accounts, markets Markets) *Svc {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Svc{
		Config:   config,
		log:      log,
		store:    store,
		accounts: accounts,
		markets:  markets,
		now:      time.Now,
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

	s.mu.Lock()
	s.Config = cfg
	s.mu.Unlock()
}

func (s *Svc) config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Config
}

// Queue stores the trades of a match as a pending settlement, with the fees
// due by each side, and returns its id.
func (s *Svc) Queue(ctx context.Context, market types.Market, trades []types.Trade) (string, error) {
	if len(trades) == 0 {
		return "", nil
	}
	data := make([]types.TradeData, 0, len(trades))
	for _, t := range trades {
		notional := t.Notional()
		data = append(data, types.TradeData{
			TradeID:  t.ID,
			Maker:    t.MakerUserID,
			Taker:    t.TakerUserID,
			Price:    t.Price,
			Quantity: t.Quantity,
			MakerFee: uint64(market.MakerFee(notional).IntPart()),
			TakerFee: uint64(market.TakerFee(notional).IntPart()),
		})
	}
	now := s.now()
	st := types.Settlement{
		ID:        s.newID(),
		Market:    market.Symbol,
		Trades:    data,
		Status:    types.SettlementStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Add(ctx, st); err != nil {
		return "", errors.Wrap(err, "could not queue settlement")
	}
	s.log.Debug("settlement queued",
		logging.String("settlement-id", st.ID),
		logging.MarketID(st.Market),
		logging.Int("trades", len(data)))
	return st.ID, nil
}

// Status returns a settlement.
func (s *Svc) Status(ctx context.Context, id string) (types.Settlement, error) {
	return s.store.GetByID(ctx, id)
}

// MarkSettled flags a settlement as done without charging anything.
func (s *Svc) MarkSettled(ctx context.Context, id string) error {
	return s.store.UpdateStatus(ctx, id, types.SettlementStatusSettled)
}

// Settle charges the fees of a pending settlement to the parties and
// credits them to the fee account, all or nothing. A settlement whose
// parties cannot pay is marked failed.
func (s *Svc) Settle(ctx context.Context, st types.Settlement) error {
	if st.Status != types.SettlementStatusPending {
		return nil
	}
	market, err := s.markets.Get(ctx, st.Market)
	if err != nil {
		return err
	}

	changes := feeChanges(s.config().FeeAccount, market.QuoteAsset, st.Trades)
	status := types.SettlementStatusSettled
	if len(changes) > 0 {
		if err := s.accounts.Apply(ctx, changes...); err != nil {
			if !errors.Is(err, types.ErrInsufficientFunds) {
				return err
			}
			s.log.Warn("settlement failed, fees cannot be paid",
				logging.String("settlement-id", st.ID),
				logging.Error(err))
			status = types.SettlementStatusFailed
		}
	}
	return s.store.UpdateStatus(ctx, st.ID, status)
}

func feeChanges(feeAccount, asset string, trades []types.TradeData) []types.BalanceChange {
	due := map[string]int64{}
	var total int64
	for _, t := range trades {
		if t.MakerFee > 0 {
			due[t.Maker] += int64(t.MakerFee)
			total += int64(t.MakerFee)
		}
		if t.TakerFee > 0 {
			due[t.Taker] += int64(t.TakerFee)
			total += int64(t.TakerFee)
		}
	}
	if total == 0 {
		return nil
	}
	users := make([]string, 0, len(due))
	for u := range due {
		users = append(users, u)
	}
	sort.Strings(users)

	changes := make([]types.BalanceChange, 0, len(users)+1)
	for _, u := range users {
		changes = append(changes, types.BalanceChange{UserID: u, Asset: asset, AvailableDelta: -due[u]})
	}
	return append(changes, types.BalanceChange{UserID: feeAccount, Asset: asset, AvailableDelta: total})
}

// ProcessPending settles up to BatchSize pending settlements, oldest first,
// and returns how many were processed. A settlement that cannot be settled
// is marked failed so the next ones are not held back.
func (s *Svc) ProcessPending(ctx context.Context) (int, error) {
	pending, err := s.store.GetPending(ctx, s.config().BatchSize)
	if err != nil {
		return 0, err
	}
	for i, st := range pending {
		if err := s.Settle(ctx, st); err != nil {
			if ctx.Err() != nil {
				return i, ctx.Err()
			}
			s.log.Error("could not settle, marking it failed",
				logging.String("settlement-id", st.ID),
				logging.MarketID(st.Market),
				logging.Error(err))
			if err := s.store.UpdateStatus(ctx, st.ID, types.SettlementStatusFailed); err != nil {
				return i, err
			}
		}
	}
	return len(pending), nil
}

// Start processes the pending settlements on every tick until ctx is done.
func (s *Svc) Start(ctx context.Context) {
	cfg := s.config()
	interval := cfg.Interval.Get()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cfg := s.config(); cfg.Interval.Get() > 0 && cfg.Interval.Get() != interval {
				interval = cfg.Interval.Get()
				ticker.Reset(interval)
			}
			n, err := s.ProcessPending(ctx)
			if err != nil {
				s.log.Error("could not process settlements", logging.Error(err))
				continue
			}
			if n > 0 {
				s.log.Debug("settlements processed", logging.Int("count", n))
			}
		}
	}
}
