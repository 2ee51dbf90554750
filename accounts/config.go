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

package accounts

import (
	"time"

	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
)

const namedLogger = "accounts"

// Config represent the configuration of the accounts service.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`
	// CacheTTL is how long a balance read is served from memory.
	CacheTTL  encoding.Duration `long:"cache-ttl"`
	CacheSize int               `long:"cache-size"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:     encoding.LogLevel{Level: logging.InfoLevel},
		CacheTTL:  encoding.Duration{Duration: time.Second},
		CacheSize: 10_000,
	}
}
