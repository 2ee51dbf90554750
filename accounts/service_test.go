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

package accounts_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/keshu12345/crypto-market/accounts"
	"github.com/keshu12345/crypto-market/accounts/mocks"
	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var btcMarket = types.Market{
	Symbol:       "BTC-USDC",
	BaseAsset:    "BTC",
	QuoteAsset:   "USDC",
	TickSize:     1,
	MinOrderSize: 1,
}

type testService struct {
	*accounts.Svc
	ctrl  *gomock.Controller
	store *mocks.MockBalanceStore
}

func getTestService(t *testing.T) *testService {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockBalanceStore(ctrl)
	svc := accounts.NewService(logging.NewTestLogger(), accounts.NewDefaultConfig(), store)
	return &testService{
		Svc:   svc,
		ctrl:  ctrl,
		store: store,
	}
}

func TestBalanceIsCached(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()
	bal := types.Balance{UserID: "alice", Asset: "USDC", Available: 100}
	svc.store.EXPECT().Get(ctx, "alice", "USDC").Times(1).Return(bal, nil)

	for i := 0; i < 3; i++ {
		got, err := svc.Balance(ctx, "alice", "USDC")
		require.NoError(t, err)
		assert.Equal(t, bal, got)
	}
}

func TestBalanceCacheExpires(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockBalanceStore(ctrl)
	cfg := accounts.NewDefaultConfig()
	cfg.CacheTTL = encoding.Duration{Duration: 20 * time.Millisecond}
	svc := accounts.NewService(logging.NewTestLogger(), cfg, store)
	ctx := context.Background()

	store.EXPECT().Get(ctx, "alice", "USDC").Times(2).Return(types.Balance{UserID: "alice", Asset: "USDC"}, nil)
	_, err := svc.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = svc.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)
}

func TestBalanceErrors(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()

	_, err := svc.Balance(ctx, "", "USDC")
	assert.ErrorIs(t, err, types.ErrInvalidUserID)

	boom := errors.New("boom")
	svc.store.EXPECT().Get(ctx, "alice", "USDC").Times(2).Return(types.Balance{}, boom)
	_, err = svc.Balance(ctx, "alice", "USDC")
	assert.ErrorIs(t, err, boom)
	// errors are not cached
	_, err = svc.Balance(ctx, "alice", "USDC")
	assert.ErrorIs(t, err, boom)
}

func TestWritesInvalidateCache(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()

	gomock.InOrder(
		svc.store.EXPECT().Get(ctx, "alice", "USDC").Return(types.Balance{UserID: "alice", Asset: "USDC"}, nil),
		svc.store.EXPECT().Apply(ctx, types.BalanceChange{UserID: "alice", Asset: "USDC", AvailableDelta: 500}).Return(nil),
		svc.store.EXPECT().Get(ctx, "alice", "USDC").Return(types.Balance{UserID: "alice", Asset: "USDC", Available: 500}, nil),
	)

	_, err := svc.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)
	require.NoError(t, svc.Deposit(ctx, "alice", "USDC", 500))
	got, err := svc.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got.Available)
}

func TestLockUnlock(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()

	svc.store.EXPECT().Apply(ctx, types.BalanceChange{UserID: "alice", Asset: "USDC", AvailableDelta: -300, LockedDelta: 300}).Return(nil)
	svc.store.EXPECT().Apply(ctx, types.BalanceChange{UserID: "alice", Asset: "USDC", AvailableDelta: 100, LockedDelta: -100}).Return(nil)
	svc.store.EXPECT().Apply(ctx, types.BalanceChange{UserID: "bob", Asset: "USDC", AvailableDelta: -1, LockedDelta: 1}).Return(types.ErrInsufficientFunds)

	require.NoError(t, svc.Lock(ctx, "alice", "USDC", 300))
	require.NoError(t, svc.Unlock(ctx, "alice", "USDC", 100))
	assert.ErrorIs(t, svc.Lock(ctx, "bob", "USDC", 1), types.ErrInsufficientFunds)
}

func TestInvalidAmounts(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Deposit(ctx, "alice", "USDC", 0), types.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Lock(ctx, "alice", "USDC", math.MaxUint64), types.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Unlock(ctx, "alice", "USDC", 0), types.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Deposit(ctx, "", "USDC", 1), types.ErrInvalidUserID)
}

func TestApplyTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("buy taker with price improvement", func(t *testing.T) {
		svc := getTestService(t)
		trade := types.Trade{
			MakerUserID: "seller",
			TakerUserID: "buyer",
			Price:       100,
			Quantity:    5,
			Side:        types.SideBuy,
		}
		// buyer locked at 110, the 10 per unit difference is refunded
		svc.store.EXPECT().Apply(ctx,
			types.BalanceChange{UserID: "buyer", Asset: "USDC", AvailableDelta: 50, LockedDelta: -550},
			types.BalanceChange{UserID: "buyer", Asset: "BTC", AvailableDelta: 5},
			types.BalanceChange{UserID: "seller", Asset: "BTC", LockedDelta: -5},
			types.BalanceChange{UserID: "seller", Asset: "USDC", AvailableDelta: 500},
		).Return(nil)
		require.NoError(t, svc.ApplyTrade(ctx, btcMarket, trade, 110))
	})

	t.Run("sell taker against a resting bid", func(t *testing.T) {
		svc := getTestService(t)
		trade := types.Trade{
			MakerUserID: "buyer",
			TakerUserID: "seller",
			Price:       100,
			Quantity:    2,
			Side:        types.SideSell,
		}
		svc.store.EXPECT().Apply(ctx,
			types.BalanceChange{UserID: "buyer", Asset: "USDC", AvailableDelta: 0, LockedDelta: -200},
			types.BalanceChange{UserID: "buyer", Asset: "BTC", AvailableDelta: 2},
			types.BalanceChange{UserID: "seller", Asset: "BTC", LockedDelta: -2},
			types.BalanceChange{UserID: "seller", Asset: "USDC", AvailableDelta: 200},
		).Return(nil)
		require.NoError(t, svc.ApplyTrade(ctx, btcMarket, trade, 100))
	})

	t.Run("overflowing notional is rejected", func(t *testing.T) {
		svc := getTestService(t)
		trade := types.Trade{
			MakerUserID: "a",
			TakerUserID: "b",
			Price:       math.MaxInt64,
			Quantity:    2,
			Side:        types.SideBuy,
		}
		assert.ErrorIs(t, svc.ApplyTrade(ctx, btcMarket, trade, 0), types.ErrInvalidAmount)
	})
}

func TestReloadConf(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()
	svc.store.EXPECT().Get(ctx, "alice", "USDC").Times(2).Return(types.Balance{UserID: "alice", Asset: "USDC"}, nil)

	_, err := svc.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)

	cfg := accounts.NewDefaultConfig()
	cfg.Level = encoding.LogLevel{Level: logging.DebugLevel}
	cfg.CacheTTL = encoding.Duration{Duration: time.Minute}
	svc.ReloadConf(cfg)
	assert.Equal(t, logging.DebugLevel, svc.Level.Get())

	// a new cache was built, the next read goes to the store
	_, err = svc.Balance(ctx, "alice", "USDC")
	require.NoError(t, err)
}
