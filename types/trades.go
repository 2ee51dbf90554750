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

package types

import (
	"fmt"
	"time"
)

// Trade is an execution between a resting maker order and an incoming
// taker order. Price is always the maker's price and Side the taker's side.
type Trade struct {
	ID           string    `json:"id" db:"id"`
	Market       string    `json:"market" db:"market"`
	MakerOrderID string    `json:"maker_order_id" db:"maker_order_id"`
	TakerOrderID string    `json:"taker_order_id" db:"taker_order_id"`
	MakerUserID  string    `json:"maker_user_id" db:"maker_user_id"`
	TakerUserID  string    `json:"taker_user_id" db:"taker_user_id"`
	Price        uint64    `json:"price" db:"price"`
	Quantity     uint64    `json:"quantity" db:"quantity"`
	Side         Side      `json:"side" db:"side"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// Notional is price times quantity in quote ticks.
func (t Trade) Notional() uint64 {
	return t.Price * t.Quantity
}

// Buyer returns the user on the buying side of the trade.
func (t Trade) Buyer() string {
	if t.Side == SideBuy {
		return t.TakerUserID
	}
	return t.MakerUserID
}

// Seller returns the user on the selling side of the trade.
func (t Trade) Seller() string {
	if t.Side == SideSell {
		return t.TakerUserID
	}
	return t.MakerUserID
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"ID(%s) market(%s) maker(%s/%s) taker(%s/%s) price(%d) quantity(%d) side(%s) timestamp(%v)",
		t.ID,
		t.Market,
		t.MakerUserID,
		t.MakerOrderID,
		t.TakerUserID,
		t.TakerOrderID,
		t.Price,
		t.Quantity,
		t.Side,
		t.Timestamp,
	)
}
