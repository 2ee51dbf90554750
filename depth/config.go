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

package depth

import (
	"time"

	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
)

const namedLogger = "depth"

// Config represent the configuration of the depth service.
type Config struct {
	Level        encoding.LogLevel `long:"log-level"`
	CacheTTL     encoding.Duration `long:"cache-ttl"`
	CacheSize    int               `long:"cache-size"`
	DefaultDepth int               `long:"default-depth" description:"Levels returned per side when none is requested"`
	MaxDepth     int               `long:"max-depth"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:        encoding.LogLevel{Level: logging.InfoLevel},
		CacheTTL:     encoding.Duration{Duration: 100 * time.Millisecond},
		CacheSize:    1024,
		DefaultDepth: 20,
		MaxDepth:     500,
	}
}
