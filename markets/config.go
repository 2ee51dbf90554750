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

package markets

import (
	"time"

	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"
)

const namedLogger = "markets"

// Config represent the configuration of the market service.
type Config struct {
	Level    encoding.LogLevel `long:"log-level"`
	CacheTTL encoding.Duration `long:"cache-ttl" description:"How long the market list is served from memory"`

	// Markets are created on startup when missing and updated otherwise.
	Markets []types.Market
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:    encoding.LogLevel{Level: logging.InfoLevel},
		CacheTTL: encoding.Duration{Duration: 5 * time.Minute},
		Markets: []types.Market{
			{
				Symbol:       "SOL-USDC",
				BaseAsset:    "SOL",
				QuoteAsset:   "USDC",
				TickSize:     1,
				MinOrderSize: 1,
				MakerFeeBps:  10,
				TakerFeeBps:  20,
			},
		},
	}
}
