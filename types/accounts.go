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

// Balance of one asset held by a user. Locked funds back resting orders.
type Balance struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Asset     string    `json:"asset" db:"asset"`
	Available uint64    `json:"available" db:"available"`
	Locked    uint64    `json:"locked" db:"locked"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (b Balance) Total() uint64 {
	return b.Available + b.Locked
}

type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusSettled SettlementStatus = "settled"
	SettlementStatusFailed  SettlementStatus = "failed"
)

// TradeData is the settlement view of a trade.
type TradeData struct {
	TradeID  string `json:"trade_id"`
	Maker    string `json:"maker"`
	Taker    string `json:"taker"`
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	MakerFee uint64 `json:"maker_fee"`
	TakerFee uint64 `json:"taker_fee"`
}

// Settlement is a batch of trades queued for final settlement.
type Settlement struct {
	ID        string           `json:"id" db:"id"`
	Market    string           `json:"market" db:"market"`
	Trades    []TradeData      `json:"trades" db:"trades"`
	Status    SettlementStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// BalanceChange is a signed movement applied to one balance. Changes are
// applied atomically as a group and neither part may end up negative.
type BalanceChange struct {
	UserID         string
	Asset          string
	AvailableDelta int64
	LockedDelta    int64
}
