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
)

const orderColumns = `id, user_id, market, side, order_type, price, quantity, filled_quantity, status, created_at, updated_at`

type Orders struct {
	*SQLStore
}

func NewOrders(s *SQLStore) *Orders {
	return &Orders{SQLStore: s}
}

// Add inserts the order, or overwrites the mutable fields when it already exists.
func (os *Orders) Add(ctx context.Context, o types.Order) error {
	metrics.SQLQueryCounterInc("orders", "Add")
	_, err := os.conn().Exec(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	filled_quantity = EXCLUDED.filled_quantity,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at`,
		o.ID, o.UserID, o.Market, string(o.Side), string(o.Type), o.Price, o.Quantity,
		o.FilledQuantity, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

// Update records fills and status changes of an existing order.
func (os *Orders) Update(ctx context.Context, o types.Order) error {
	metrics.SQLQueryCounterInc("orders", "Update")
	tag, err := os.conn().Exec(ctx, `
UPDATE orders SET filled_quantity = $1, status = $2, updated_at = $3 WHERE id = $4`,
		o.FilledQuantity, string(o.Status), o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrOrderNotFound
	}
	return nil
}

func (os *Orders) GetByID(ctx context.Context, id string) (types.Order, error) {
	metrics.SQLQueryCounterInc("orders", "GetByID")
	o := types.Order{}
	err := pgxscan.Get(ctx, os.conn(), &o, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return o, wrapE(err, types.ErrOrderNotFound)
}

// GetByUser returns the orders of a user, most recent first.
func (os *Orders) GetByUser(ctx context.Context, userID string, limit int) ([]types.Order, error) {
	metrics.SQLQueryCounterInc("orders", "GetByUser")
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return os.queryOrders(ctx, query, args)
}

// GetLive fetches the resting orders so the books can be rebuilt on startup,
// in time priority order.
func (os *Orders) GetLive(ctx context.Context) ([]types.Order, error) {
	metrics.SQLQueryCounterInc("orders", "GetLive")
	query := `SELECT ` + orderColumns + ` FROM orders
WHERE order_type = 'Limit' AND status IN ('Open', 'Partial')
ORDER BY created_at, id`
	return os.queryOrders(ctx, query, nil)
}

func (os *Orders) queryOrders(ctx context.Context, query string, args []interface{}) ([]types.Order, error) {
	orders := []types.Order{}
	if err := pgxscan.Select(ctx, os.conn(), &orders, query, args...); err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	return orders, nil
}
