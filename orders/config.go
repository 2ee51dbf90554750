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

package orders

import (
	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
)

const namedLogger = "orders"

// Config represent the configuration of the order service.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
	// UserOrdersLimit caps the number of orders returned for a user.
	UserOrdersLimit int `long:"user-orders-limit"`
	// BookEventDepth is the depth of the snapshots published after each change.
	BookEventDepth int `long:"book-event-depth"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:           encoding.LogLevel{Level: logging.InfoLevel},
		UserOrdersLimit: 500,
		BookEventDepth:  20,
	}
}
