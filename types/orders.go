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
	"strings"
	"time"
)

// Side of an order.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

func (s Side) String() string {
	return string(s)
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide accepts the canonical names as well as lowercase variants.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "buy", "bid":
		return SideBuy, nil
	case "sell", "ask":
		return SideSell, nil
	default:
		return "", ErrInvalidSide
	}
}

type OrderType string

const (
	OrderTypeLimit  OrderType = "Limit"
	OrderTypeMarket OrderType = "Market"
)

func (t OrderType) String() string {
	return string(t)
}

func (t OrderType) IsValid() bool {
	return t == OrderTypeLimit || t == OrderTypeMarket
}

func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(s) {
	case "limit":
		return OrderTypeLimit, nil
	case "market":
		return OrderTypeMarket, nil
	default:
		return "", ErrInvalidOrderType
	}
}

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "Open"
	OrderStatusPartial   OrderStatus = "Partial"
	OrderStatusFilled    OrderStatus = "Filled"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// IsLive reports whether an order with this status can still rest in a book.
func (s OrderStatus) IsLive() bool {
	return s == OrderStatusOpen || s == OrderStatusPartial
}

// Order is a request to trade Quantity units on Market. Price is expressed
// in integer ticks of the quote asset and is ignored for matching purposes
// on market orders.
type Order struct {
	ID             string      `json:"id" db:"id"`
	UserID         string      `json:"user_id" db:"user_id"`
	Market         string      `json:"market" db:"market"`
	Side           Side        `json:"side" db:"side"`
	Type           OrderType   `json:"order_type" db:"order_type"`
	Price          uint64      `json:"price" db:"price"`
	Quantity       uint64      `json:"quantity" db:"quantity"`
	FilledQuantity uint64      `json:"filled_quantity" db:"filled_quantity"`
	Status         OrderStatus `json:"status" db:"status"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Remaining is the quantity still to be filled.
func (o *Order) Remaining() uint64 {
	return o.Quantity - o.FilledQuantity
}

// PartiallyFilled is true for an order that traded some but not all of its
// quantity, whether it still rests in the book or was closed. A market order
// whose residual was discarded reports Cancelled yet can be partially filled.
func (o *Order) PartiallyFilled() bool {
	return o.FilledQuantity > 0 && o.FilledQuantity < o.Quantity
}

// Crosses reports whether this order accepts a trade at the given price.
func (o *Order) Crosses(price uint64) bool {
	if o.Type == OrderTypeMarket {
		return true
	}
	if o.Side == SideBuy {
		return o.Price >= price
	}
	return o.Price <= price
}

// Fill adds qty to the filled quantity and refreshes the status of a live order.
func (o *Order) Fill(qty uint64, now time.Time) {
	o.FilledQuantity += qty
	o.UpdatedAt = now
	switch {
	case o.FilledQuantity == o.Quantity:
		o.Status = OrderStatusFilled
	case o.FilledQuantity > 0:
		o.Status = OrderStatusPartial
	}
}

func (o Order) Clone() *Order {
	cpy := o
	return &cpy
}

func (o Order) String() string {
	return fmt.Sprintf(
		"ID(%s) market(%s) user(%s) side(%s) type(%s) price(%d) quantity(%d) filled(%d) status(%s) createdAt(%v) updatedAt(%v)",
		o.ID,
		o.Market,
		o.UserID,
		o.Side,
		o.Type,
		o.Price,
		o.Quantity,
		o.FilledQuantity,
		o.Status,
		o.CreatedAt,
		o.UpdatedAt,
	)
}
