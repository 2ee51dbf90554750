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
	"encoding/json"
	"time"

	"github.com/keshu12345/crypto-market/metrics"
	"github.com/keshu12345/crypto-market/types"

	"github.com/georgysavva/scany/pgxscan"
)

type Settlements struct {
	*SQLStore
}

func NewSettlements(s *SQLStore) *Settlements {
	return &Settlements{SQLStore: s}
}

func (ss *Settlements) Add(ctx context.Context, s types.Settlement) error {
	metrics.SQLQueryCounterInc("settlements", "Add")
	trades, err := json.Marshal(s.Trades)
	if err != nil {
		return err
	}
	_, err = ss.conn().Exec(ctx, `
INSERT INTO settlements (id, market, trades, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Market, trades, string(s.Status), s.CreatedAt, s.UpdatedAt)
	return err
}

func (ss *Settlements) GetByID(ctx context.Context, id string) (types.Settlement, error) {
	metrics.SQLQueryCounterInc("settlements", "GetByID")
	s := types.Settlement{}
	err := pgxscan.Get(ctx, ss.conn(), &s, `
SELECT id, market, trades, status, created_at, updated_at FROM settlements WHERE id = $1`, id)
	return s, wrapE(err, types.ErrSettlementNotFound)
}

// GetPending returns the oldest pending settlements first.
func (ss *Settlements) GetPending(ctx context.Context, limit int) ([]types.Settlement, error) {
	metrics.SQLQueryCounterInc("settlements", "GetPending")
	out := []types.Settlement{}
	err := pgxscan.Select(ctx, ss.conn(), &out, `
SELECT id, market, trades, status, created_at, updated_at FROM settlements
WHERE status = 'pending' ORDER BY created_at LIMIT $1`, limit)
	return out, err
}

func (ss *Settlements) UpdateStatus(ctx context.Context, id string, status types.SettlementStatus) error {
	metrics.SQLQueryCounterInc("settlements", "UpdateStatus")
	tag, err := ss.conn().Exec(ctx, `
UPDATE settlements SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrSettlementNotFound
	}
	return nil
}
