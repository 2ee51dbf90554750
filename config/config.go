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

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keshu12345/crypto-market/accounts"
	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/broker/kafka"
	"github.com/keshu12345/crypto-market/depth"
	"github.com/keshu12345/crypto-market/gateway"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/markets"
	"github.com/keshu12345/crypto-market/matching"
	"github.com/keshu12345/crypto-market/metrics"
	"github.com/keshu12345/crypto-market/orders"
	"github.com/keshu12345/crypto-market/settlement"
	"github.com/keshu12345/crypto-market/sqlstore"
	"github.com/keshu12345/crypto-market/trades"

	"github.com/BurntSushi/toml"
)

const (
	configFileName = "config.toml"
	namedLogger    = "cfgwatcher"
)

// Config ties together all other application configuration types.
type Config struct {
	Logging    logging.Config    `group:"Logging" namespace:"logging"`
	Matching   matching.Config   `group:"Matching" namespace:"matching"`
	Orders     orders.Config     `group:"Orders" namespace:"orders"`
	Trades     trades.Config     `group:"Trades" namespace:"trades"`
	Markets    markets.Config    `group:"Markets" namespace:"markets"`
	Depth      depth.Config      `group:"Depth" namespace:"depth"`
	Accounts   accounts.Config   `group:"Accounts" namespace:"accounts"`
	Settlement settlement.Config `group:"Settlement" namespace:"settlement"`
	Broker     broker.Config     `group:"Broker" namespace:"broker"`
	Kafka      kafka.Config      `group:"Kafka" namespace:"kafka"`
	SQLStore   sqlstore.Config   `group:"SQLStore" namespace:"sqlstore"`
	Gateway    gateway.Config    `group:"Gateway" namespace:"gateway"`
	Metrics    metrics.Config    `group:"Metrics" namespace:"metrics"`
}

// NewDefaultConfig returns a set of default configs for all the venue
// packages, as specified at the per package config level.
func NewDefaultConfig(rootPath string) Config {
	cfg := Config{
		Logging:    logging.NewDefaultConfig(),
		Matching:   matching.NewDefaultConfig(),
		Orders:     orders.NewDefaultConfig(),
		Trades:     trades.NewDefaultConfig(),
		Markets:    markets.NewDefaultConfig(),
		Depth:      depth.NewDefaultConfig(),
		Accounts:   accounts.NewDefaultConfig(),
		Settlement: settlement.NewDefaultConfig(),
		Broker:     broker.NewDefaultConfig(),
		Kafka:      kafka.NewDefaultConfig(),
		SQLStore:   sqlstore.NewDefaultConfig(),
		Gateway:    gateway.NewDefaultConfig(),
		Metrics:    metrics.NewDefaultConfig(),
	}
	cfg.SQLStore.RuntimePath = filepath.Join(rootPath, "postgres")
	return cfg
}

// Path returns the location of the configuration file under rootPath.
func Path(rootPath string) string {
	return filepath.Join(rootPath, configFileName)
}

// Read loads the configuration file of rootPath over the defaults.
func Read(rootPath string) (*Config, error) {
	cfg := NewDefaultConfig(rootPath)
	if _, err := toml.DecodeFile(Path(rootPath), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Write saves the configuration under rootPath, refusing to replace an
// existing file unless force is set.
func Write(rootPath string, cfg Config, force bool) error {
	path := Path(rootPath)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s", path)
	}
	if err := os.MkdirAll(rootPath, 0o700); err != nil {
		return fmt.Errorf("could not create %s: %w", rootPath, err)
	}

	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return fmt.Errorf("could not encode configuration: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
