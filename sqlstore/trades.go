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

package sqlstore

import (
	"context"
	"fmt"

	"github.com/keshu12345/crypto-market/metrics"
	"github.com/keshu12345/crypto-market/types"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
)

const tradeColumns = `id, market, maker_order_id, taker_order_id, maker_user_id, taker_user_id, price, quantity, side, timestamp`

type Trades struct {
	*SQLStore
}

func NewTrades(s *SQLStore) *Trades {
	return &Trades{SQLStore: s}
}

// Add stores the trades in a single round trip, trades already stored are skipped.
func (ts *Trades) Add(ctx context.Context, trades ...types.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	metrics.SQLQueryCounterInc("trades", "Add")
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
INSERT INTO trades (`+tradeColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Market, t.MakerOrderID, t.TakerOrderID, t.MakerUserID, t.TakerUserID,
			t.Price, t.Quantity, string(t.Side), t.Timestamp)
	}
	br := ts.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting trade: %w", err)
		}
	}
	return nil
}

// GetByMarket returns the latest trades of a market, most recent first.
func (ts *Trades) GetByMarket(ctx context.Context, market string, limit int) ([]types.Trade, error) {
	metrics.SQLQueryCounterInc("trades", "GetByMarket")
	trades := []types.Trade{}
	err := pgxscan.Select(ctx, ts.conn(), &trades, `
SELECT `+tradeColumns+` FROM trades WHERE market = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`,
		market, limit)
	return trades, err
}

// GetByUser returns the trades where the user was maker or taker, most recent first.
func (ts *Trades) GetByUser(ctx context.Context, userID string, limit int) ([]types.Trade, error) {
	metrics.SQLQueryCounterInc("trades", "GetByUser")
	trades := []types.Trade{}
	err := pgxscan.Select(ctx, ts.conn(), &trades, `
SELECT `+tradeColumns+` FROM trades WHERE maker_user_id = $1 OR taker_user_id = $1
ORDER BY timestamp DESC, id DESC LIMIT $2`,
		userID, limit)
	return trades, err
}
