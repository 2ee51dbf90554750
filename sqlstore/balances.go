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
	"time"

	"github.com/keshu12345/crypto-market/metrics"
	"github.com/keshu12345/crypto-market/types"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
)

type Balances struct {
	*SQLStore
}

func NewBalances(s *SQLStore) *Balances {
	return &Balances{SQLStore: s}
}

// Get returns the balance of a user for an asset, a zero balance when the
// user never held it.
func (bs *Balances) Get(ctx context.Context, userID, asset string) (types.Balance, error) {
	metrics.SQLQueryCounterInc("user_balances", "Get")
	b := types.Balance{}
	err := pgxscan.Get(ctx, bs.conn(), &b, `
SELECT user_id, asset, available, locked, updated_at FROM user_balances WHERE user_id = $1 AND asset = $2`,
		userID, asset)
	if pgxscan.NotFound(err) {
		return types.Balance{UserID: userID, Asset: asset}, nil
	}
	return b, err
}

func (bs *Balances) GetAll(ctx context.Context, userID string) ([]types.Balance, error) {
	metrics.SQLQueryCounterInc("user_balances", "GetAll")
	balances := []types.Balance{}
	err := pgxscan.Select(ctx, bs.conn(), &balances, `
SELECT user_id, asset, available, locked, updated_at FROM user_balances WHERE user_id = $1 ORDER BY asset`,
		userID)
	return balances, err
}

// Apply moves funds atomically. Either every change is applied or none is,
// ErrInsufficientFunds is returned when a balance would go negative.
func (bs *Balances) Apply(ctx context.Context, changes ...types.BalanceChange) error {
	if len(changes) == 0 {
		return nil
	}
	metrics.SQLQueryCounterInc("user_balances", "Apply")
	now := time.Now()
	err := bs.withTx(ctx, func(tx pgx.Tx) error {
		for _, c := range changes {
			if _, err := tx.Exec(ctx, `
INSERT INTO user_balances (user_id, asset, available, locked, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, asset) DO UPDATE SET
	available = user_balances.available + EXCLUDED.available,
	locked = user_balances.locked + EXCLUDED.locked,
	updated_at = EXCLUDED.updated_at`,
				c.UserID, c.Asset, c.AvailableDelta, c.LockedDelta, now); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapE(err, nil)
}
