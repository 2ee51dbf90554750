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

package sqlstore

import (
	"fmt"
	"time"

	"github.com/keshu12345/crypto-market/config/encoding"
	"github.com/keshu12345/crypto-market/internal/logging"

	"github.com/jackc/pgx/v4/pgxpool"
)

const namedLogger = "sqlstore"

type Config struct {
	Level            encoding.LogLevel `long:"log-level"`
	ConnectionConfig ConnectionConfig  `group:"ConnectionConfig" namespace:"conn"`
	// UseEmbedded starts a private postgres under RuntimePath.
	UseEmbedded    encoding.Bool     `long:"use-embedded" description:"Use an embedded version of Postgresql for the SQL data store"`
	RuntimePath    string            `long:"runtime-path" description:"Directory holding the embedded postgres binaries and data"`
	WipeOnStartup  encoding.Bool     `long:"wipe-on-startup" description:"Remove all data from the database on startup"`
	ConnectTimeout encoding.Duration `long:"connect-timeout" description:"How long to keep retrying the first connection"`
}

type ConnectionConfig struct {
	Host     string `long:"host"`
	Port     int    `long:"port"`
	Username string `long:"username"`
	Password string `long:"password"`
	Database string `long:"database"`
	MaxConns int32  `long:"max-conns"`
	// MaxConnLifetime recycles connections, zero keeps them forever.
	MaxConnLifetime encoding.Duration `long:"max-conn-lifetime"`
}

func NewDefaultConfig() Config {
	return Config{
		Level: encoding.LogLevel{Level: logging.InfoLevel},
		ConnectionConfig: ConnectionConfig{
			Host:            "localhost",
			Port:            5432,
			Username:        "venue",
			Password:        "venue",
			Database:        "venue",
			MaxConns:        20,
			MaxConnLifetime: encoding.Duration{Duration: 30 * time.Minute},
		},
		UseEmbedded:    false,
		WipeOnStartup:  false,
		ConnectTimeout: encoding.Duration{Duration: 30 * time.Second},
	}
}

func (conf ConnectionConfig) GetConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s",
		conf.Username,
		conf.Password,
		conf.Host,
		conf.Port,
		conf.Database)
}

func (conf ConnectionConfig) GetPoolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(conf.GetConnectionString())
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "crypto venue"
	if conf.MaxConns > 0 {
		cfg.MaxConns = conf.MaxConns
	}
	if d := conf.MaxConnLifetime.Get(); d > 0 {
		cfg.MaxConnLifetime = d
	}
	return cfg, nil
}
