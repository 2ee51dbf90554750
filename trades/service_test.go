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

package trades_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/matching"
	"github.com/keshu12345/crypto-market/trades"
	"github.com/keshu12345/crypto-market/trades/mocks"
	"github.com/keshu12345/crypto-market/types"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const market = "SOL-USDC"

type testService struct {
	*trades.Svc
	store  *mocks.MockTradeStore
	engine *matching.Engine
}

func getTestService(t *testing.T) *testService {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTradeStore(ctrl)
	log := logging.NewTestLogger()
	engine := matching.New(log, matching.NewDefaultConfig())
	engine.CreateMarket(market)
	return &testService{
		Svc:    trades.NewService(log, trades.NewDefaultConfig(), store, engine),
		store:  store,
		engine: engine,
	}
}

// cross submits a resting sell and a matching buy, producing one trade.
func (ts *testService) cross(t *testing.T, i int) {
	t.Helper()
	sell := types.Order{ID: fmt.Sprintf("s%d", i), UserID: "maker", Market: market, Side: types.SideSell, Type: types.OrderTypeLimit, Price: 100, Quantity: 1}
	buy := types.Order{ID: fmt.Sprintf("b%d", i), UserID: "taker", Market: market, Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 1}
	_, err := ts.engine.Submit(sell)
	require.NoError(t, err)
	res, err := ts.engine.Submit(buy)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
}

func TestRecentFromBook(t *testing.T) {
	svc := getTestService(t)
	for i := 0; i < 5; i++ {
		svc.cross(t, i)
	}

	got, err := svc.Recent(context.Background(), market, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b4", got[0].TakerOrderID)
	assert.Equal(t, "b2", got[2].TakerOrderID)
}

func TestRecentFallsBackToStore(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()
	svc.cross(t, 0)

	stored := []types.Trade{{ID: "t2"}, {ID: "t1"}}
	// the book only knows one trade
	svc.store.EXPECT().GetByMarket(ctx, market, 2).Times(1).Return(stored, nil)
	got, err := svc.Recent(ctx, market, 2)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	// no book at all
	svc.store.EXPECT().GetByMarket(ctx, "BTC-USDC", 50).Times(1).Return(nil, nil)
	_, err = svc.Recent(ctx, "BTC-USDC", 0)
	require.NoError(t, err)
}

func TestRecord(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()
	batch := []types.Trade{{ID: "t1", Market: market}, {ID: "t2", Market: market}}

	svc.store.EXPECT().Add(ctx, batch[0], batch[1]).Times(1).Return(nil)
	require.NoError(t, svc.Record(ctx, batch))
	// nothing to store
	require.NoError(t, svc.Record(ctx, nil))
}

func TestByUser(t *testing.T) {
	svc := getTestService(t)
	ctx := context.Background()

	svc.store.EXPECT().GetByUser(ctx, "alice", 1000).Times(1).Return([]types.Trade{{ID: "t1"}}, nil)
	got, err := svc.ByUser(ctx, "alice", 5000)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.ByUser(ctx, "", 10)
	assert.ErrorIs(t, err, types.ErrInvalidUserID)
}
