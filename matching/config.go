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
	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
)

const (
	namedLogger = "matching"

	// DefaultTradeHistorySize is the number of trades kept in memory per book.
	DefaultTradeHistorySize = 1000
)

// SelfTradePolicy decides what happens when an incoming order would trade
// against a resting order of the same user.
type SelfTradePolicy string

const (
	// SelfTradeAllow lets users trade with themselves.
	SelfTradeAllow SelfTradePolicy = "allow"
	// SelfTradeStopTaker stops matching at the first own resting order and
	// cancels the rest of the incoming order.
	SelfTradeStopTaker SelfTradePolicy = "stop-taker"
)

// Config represents the configuration of the matching package.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	TradeHistorySize      int             `long:"trade-history-size" description:"Number of recent trades kept per book"`
	SelfTradePolicy       SelfTradePolicy `long:"self-trade-policy" choice:"allow" choice:"stop-taker"`
	LogPriceLevelsDebug   bool            `long:"log-price-levels-debug"`
	LogRemovedOrdersDebug bool            `long:"log-removed-orders-debug"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:                 encoding.LogLevel{Level: logging.InfoLevel},
		TradeHistorySize:      DefaultTradeHistorySize,
		SelfTradePolicy:       SelfTradeAllow,
		LogPriceLevelsDebug:   false,
		LogRemovedOrdersDebug: false,
	}
}
