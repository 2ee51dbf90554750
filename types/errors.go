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

import "github.com/pkg/errors"

var (
	// ErrInvalidQuantity signals an order with a zero quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidPrice signals a limit order with a zero price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidMarketID signals an order submitted to the wrong book or an unknown market.
	ErrInvalidMarketID = errors.New("invalid market id")
	ErrInvalidSide      = errors.New("invalid side")
	ErrInvalidOrderType = errors.New("invalid order type")
	// ErrDuplicateOrderID signals an order whose id is already live in the book.
	ErrDuplicateOrderID = errors.New("duplicate order id")
	ErrPriceNotOnTick   = errors.New("price is not a multiple of the market tick size")
	ErrOrderTooSmall    = errors.New("quantity is below the market minimum order size")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotLive     = errors.New("order is not open")
	ErrOrderNotOwned    = errors.New("order belongs to another user")
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrMarketNotFound   = errors.New("market not found")
	// ErrInsufficientFunds signals an attempt to lock more than the available balance.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrSettlementNotFound = errors.New("settlement not found")
	// ErrInvalidAmount signals a zero or out of range balance movement.
	ErrInvalidAmount = errors.New("invalid amount")
)
