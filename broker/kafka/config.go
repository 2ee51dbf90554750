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

package kafka

import (
	"strings"
	"time"

	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"
)

const namedLogger = "kafka"

// Config represents the configuration of the kafka event sink.
type Config struct {
	Level      encoding.LogLevel `long:"log-level"`
	Enabled    encoding.Bool     `long:"enabled" description:"Forward venue events to kafka"`
	Brokers    string            `long:"brokers" description:"Comma separated list of kafka brokers"`
	Topic      string            `long:"topic"`
	MaxRetries int               `long:"max-retries" description:"Producer retries before a message is reported as failed"`
	// ConnectTimeout bounds the time spent retrying the first connection.
	ConnectTimeout encoding.Duration `long:"connect-timeout"`
	BufferSize     int               `long:"buffer-size"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		Enabled:        false,
		Brokers:        "localhost:9092",
		Topic:          "venue-events",
		MaxRetries:     5,
		ConnectTimeout: encoding.Duration{Duration: 30 * time.Second},
		BufferSize:     1024,
	}
}

func (c Config) brokerList() []string {
	out := []string{}
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); len(b) > 0 {
			out = append(out, b)
		}
	}
	return out
}
