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

package gateway

import (
	"time"

	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
)

const (
	namedLogger = "gateway"

	// UserIDHeader carries the user on whose behalf a request is made.
	UserIDHeader = "X-User-ID"
	// APIKeyHeader carries the API key of the caller.
	APIKeyHeader = "X-API-Key"
)

// Config represents the configuration of the gateway.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	IP              string            `long:"ip" description:"Address the gateway listens on"`
	Port            int               `long:"port"`
	ReadTimeout     encoding.Duration `long:"read-timeout"`
	WriteTimeout    encoding.Duration `long:"write-timeout"`
	ShutdownTimeout encoding.Duration `long:"shutdown-timeout"`
	// APIKeys accepted in the X-API-Key header, authentication is disabled
	// when empty.
	APIKeys []string `long:"api-key"`

	CORS      CORSConfig      `group:"CORS" namespace:"cors"`
	RateLimit RateLimitConfig `group:"RateLimit" namespace:"ratelimit"`
	WebSocket WebSocketConfig `group:"WebSocket" namespace:"websocket"`
	Faucet    FaucetConfig    `group:"Faucet" namespace:"faucet"`
}

type CORSConfig struct {
	AllowedOrigins []string `long:"allowed-origins"`
	MaxAge         int      `long:"max-age"`
}

// RateLimitConfig limits the requests per second of every remote address.
type RateLimitConfig struct {
	Enabled           encoding.Bool     `long:"enabled"`
	RequestsPerSecond float64           `long:"requests-per-second"`
	Burst             int               `long:"burst"`
	TTL               encoding.Duration `long:"ttl" description:"How long an idle address is remembered"`
}

type WebSocketConfig struct {
	BufferSize   int               `long:"buffer-size" description:"Event batches buffered per connection"`
	WriteTimeout encoding.Duration `long:"write-timeout"`
	PingInterval encoding.Duration `long:"ping-interval"`
	ReadLimit    int64             `long:"read-limit"`
}

// FaucetConfig enables minting funds to any user, for test deployments.
type FaucetConfig struct {
	Enabled   encoding.Bool `long:"enabled"`
	MaxAmount uint64        `long:"max-amount"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:           encoding.LogLevel{Level: logging.InfoLevel},
		IP:              "0.0.0.0",
		Port:            3000,
		ReadTimeout:     encoding.Duration{Duration: 10 * time.Second},
		WriteTimeout:    encoding.Duration{Duration: 10 * time.Second},
		ShutdownTimeout: encoding.Duration{Duration: 5 * time.Second},
		APIKeys:         []string{},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			MaxAge:         300,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
			TTL:               encoding.Duration{Duration: time.Hour},
		},
		WebSocket: WebSocketConfig{
			BufferSize:   256,
			WriteTimeout: encoding.Duration{Duration: 5 * time.Second},
			PingInterval: encoding.Duration{Duration: 30 * time.Second},
			ReadLimit:    4096,
		},
		Faucet: FaucetConfig{
			Enabled:   false,
			MaxAmount: 1_000_000_000,
		},
	}
}
