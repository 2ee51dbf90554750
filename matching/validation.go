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

package matching

import (
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"
)

func (b *OrderBook) validateOrder(order *types.Order) (err error) {
	if order.Market != b.marketID {
		b.log.Error("Market ID mismatch",
			logging.String("market", order.Market),
			logging.String("order-book", b.marketID),
			logging.Order(*order))
		err = types.ErrInvalidMarketID
	} else if !order.Side.IsValid() {
		err = types.ErrInvalidSide
	} else if !order.Type.IsValid() {
		err = types.ErrInvalidOrderType
	} else if order.Quantity == 0 || order.FilledQuantity >= order.Quantity {
		err = types.ErrInvalidQuantity
	} else if order.Type == types.OrderTypeLimit && order.Price == 0 {
		err = types.ErrInvalidPrice
	} else if _, ok := b.ordersByID[order.ID]; ok {
		err = types.ErrDuplicateOrderID
	}

	return err
}
