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

	"github.com/keshu12345/crypto-market/metrics"
	"github.com/keshu12345/crypto-market/types"

	"github.com/georgysavva/scany/pgxscan"
)

type Markets struct {
	*SQLStore
}

func NewMarkets(s *SQLStore) *Markets {
	return &Markets{SQLStore: s}
}

// Upsert inserts the market or updates its parameters.
func (ms *Markets) Upsert(ctx context.Context, m types.Market) error {
	metrics.SQLQueryCounterInc("markets", "Upsert")
	_, err := ms.conn().Exec(ctx, `
INSERT INTO markets (symbol, base_asset, quote_asset, tick_size, min_order_size, maker_fee_bps, taker_fee_bps)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (symbol) DO UPDATE SET
	base_asset = EXCLUDED.base_asset,
	quote_asset = EXCLUDED.quote_asset,
	tick_size = EXCLUDED.tick_size,
	min_order_size = EXCLUDED.min_order_size,
	maker_fee_bps = EXCLUDED.maker_fee_bps,
	taker_fee_bps = EXCLUDED.taker_fee_bps`,
		m.Symbol, m.BaseAsset, m.QuoteAsset, m.TickSize, m.MinOrderSize, m.MakerFeeBps, m.TakerFeeBps)
	return err
}

func (ms *Markets) GetAll(ctx context.Context) ([]types.Market, error) {
	metrics.SQLQueryCounterInc("markets", "GetAll")
	markets := []types.Market{}
	err := pgxscan.Select(ctx, ms.conn(), &markets, `SELECT * FROM markets ORDER BY symbol`)
	return markets, err
}

func (ms *Markets) GetBySymbol(ctx context.Context, symbol string) (types.Market, error) {
	metrics.SQLQueryCounterInc("markets", "GetBySymbol")
	m := types.Market{}
	err := pgxscan.Get(ctx, ms.conn(), &m, `SELECT * FROM markets WHERE symbol = $1`, symbol)
	return m, wrapE(err, types.ErrMarketNotFound)
}
