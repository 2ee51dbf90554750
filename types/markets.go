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
	"github.com/shopspring/decimal"
)

// Market describes an instrument traded on the venue.
type Market struct {
	Symbol       string `json:"symbol" db:"symbol" toml:"symbol"`
	BaseAsset    string `json:"base_asset" db:"base_asset" toml:"base_asset"`
	QuoteAsset   string `json:"quote_asset" db:"quote_asset" toml:"quote_asset"`
	TickSize     uint64 `json:"tick_size" db:"tick_size" toml:"tick_size"`
	MinOrderSize uint64 `json:"min_order_size" db:"min_order_size" toml:"min_order_size"`
	MakerFeeBps  uint32 `json:"maker_fee_bps" db:"maker_fee_bps" toml:"maker_fee_bps"`
	TakerFeeBps  uint32 `json:"taker_fee_bps" db:"taker_fee_bps" toml:"taker_fee_bps"`
}

// ValidatePrice checks a limit price is positive and on the tick grid.
func (m Market) ValidatePrice(price uint64) error {
	if price == 0 {
		return ErrInvalidPrice
	}
	if m.TickSize > 1 && price%m.TickSize != 0 {
		return ErrPriceNotOnTick
	}
	return nil
}

// ValidateQuantity checks a quantity is positive and above the market minimum.
func (m Market) ValidateQuantity(qty uint64) error {
	if qty == 0 {
		return ErrInvalidQuantity
	}
	if qty < m.MinOrderSize {
		return ErrOrderTooSmall
	}
	return nil
}

// MakerFee returns the fee charged to the maker on a notional amount.
func (m Market) MakerFee(notional uint64) decimal.Decimal {
	return feeFor(notional, m.MakerFeeBps)
}

// TakerFee returns the fee charged to the taker on a notional amount.
func (m Market) TakerFee(notional uint64) decimal.Decimal {
	return feeFor(notional, m.TakerFeeBps)
}

var bpsDivisor = decimal.NewFromInt(10_000)

func feeFor(notional uint64, bps uint32) decimal.Decimal {
	return decimal.NewFromInt(int64(notional)).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(bpsDivisor).
		Floor()
}
