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

import "time"

// PriceLevel is the aggregated view of all resting orders at one price.
type PriceLevel struct {
	Price         uint64 `json:"price"`
	TotalQuantity uint64 `json:"total_quantity"`
	OrderCount    int    `json:"order_count"`
}

// OrderBookSnapshot is a depth-limited view of a book. Bids are sorted by
// descending price, asks by ascending price.
type OrderBookSnapshot struct {
	Market    string       `json:"market"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// BestBid returns the highest bid level, if any.
func (s OrderBookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (s OrderBookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// MatchResult is the outcome of submitting an order to a book.
type MatchResult struct {
	Order  Order   `json:"order"`
	Trades []Trade `json:"trades"`
	// Makers holds a post-trade copy of every resting order touched by the
	// submission, in the order they were hit.
	Makers []Order `json:"makers,omitempty"`
}

// Residual is the quantity of a market order that found no liquidity and
// was discarded.
func (r MatchResult) Residual() uint64 {
	if r.Order.Status != OrderStatusCancelled {
		return 0
	}
	return r.Order.Remaining()
}

// Traded is the total quantity executed by the submission.
func (r MatchResult) Traded() uint64 {
	var qty uint64
	for _, t := range r.Trades {
		qty += t.Quantity
	}
	return qty
}
