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
	"context"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/cenkalti/backoff/v4"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var EmbedMigrations embed.FS

const SQLMigrationsDir = "migrations"

// postgres error code raised by the non negative balance constraints.
const checkViolation = "23514"

var tableNames = [...]string{"settlements", "trades", "orders", "user_balances", "markets"}

// Connection is the part of the pool the stores query through, a
// transaction satisfies it as well.
type Connection interface {
	pgxscan.Querier
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

type SQLStore struct {
	conf Config
	pool *pgxpool.Pool
	log  *logging.Logger
	db   *embeddedpostgres.EmbeddedPostgres
}

// InitialiseStorage starts the embedded database if configured, connects
// with retries and migrates the schema to the latest version.
func InitialiseStorage(ctx context.Context, log *logging.Logger, config Config) (*SQLStore, error) {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())
	s := &SQLStore{
		conf: config,
		log:  log,
	}

	if s.conf.UseEmbedded {
		if err := s.initializeEmbeddedPostgres(); err != nil {
			return nil, fmt.Errorf("use embedded database was true, but failed to start: %w", err)
		}
	}

	return setupStorage(ctx, s)
}

func setupStorage(ctx context.Context, s *SQLStore) (*SQLStore, error) {
	poolConfig, err := s.conf.ConnectionConfig.GetPoolConfig()
	if err != nil {
		return nil, fmt.Errorf("error configuring database: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.conf.ConnectTimeout.Get()
	err = backoff.RetryNotify(func() error {
		pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return err
		}
		s.pool = pool
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		s.log.Warn("database not ready, retrying",
			logging.Error(err),
			logging.Duration("next", next))
	})
	if err != nil {
		_ = s.Stop()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err = s.migrateToLatestSchema(); err != nil {
		_ = s.Stop()
		return nil, fmt.Errorf("error migrating schema: %w", err)
	}

	s.log.Info("connected to database",
		logging.String("host", s.conf.ConnectionConfig.Host),
		logging.String("database", s.conf.ConnectionConfig.Database))
	return s, nil
}

func (s *SQLStore) migrateToLatestSchema() error {
	goose.SetBaseFS(EmbedMigrations)
	goose.SetLogger(s.log.Named("db migration").GooseLogger())

	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	currentVersion, err := goose.GetDBVersion(db)
	if err != nil {
		return err
	}

	if currentVersion > 0 && s.conf.WipeOnStartup {
		if err := goose.DownTo(db, SQLMigrationsDir, 0); err != nil {
			return fmt.Errorf("error clearing sql schema: %w", err)
		}
	}

	if err := goose.Up(db, SQLMigrationsDir); err != nil {
		return fmt.Errorf("error migrating sql schema: %w", err)
	}
	return nil
}

func (s *SQLStore) initializeEmbeddedPostgres() error {
	runtimePath := s.conf.RuntimePath
	if len(runtimePath) == 0 {
		dir, err := os.MkdirTemp("", "venue-postgres")
		if err != nil {
			return err
		}
		runtimePath = dir
	}
	conf := s.conf.ConnectionConfig
	dbConfig := embeddedpostgres.DefaultConfig().
		Username(conf.Username).
		Password(conf.Password).
		Database(conf.Database).
		Port(uint32(conf.Port)).
		RuntimePath(filepath.Join(runtimePath, "runtime")).
		BinariesPath(filepath.Join(runtimePath, "runtime")).
		DataPath(filepath.Join(runtimePath, "node-data")).
		Logger(io.Discard)

	s.db = embeddedpostgres.NewDatabase(dbConfig)
	return s.db.Start()
}

// DeleteEverything truncates every table, used by tests.
func (s *SQLStore) DeleteEverything(ctx context.Context) error {
	for _, table := range tableNames {
		if _, err := s.pool.Exec(ctx, "truncate table "+table+" CASCADE"); err != nil {
			return fmt.Errorf("error truncating table: %s %w", table, err)
		}
	}
	return nil
}

func (s *SQLStore) Stop() error {
	if s.pool != nil {
		s.pool.Close()
	}
	if !s.conf.UseEmbedded || s.db == nil {
		return nil
	}
	return s.db.Stop()
}

func (s *SQLStore) conn() Connection {
	return s.pool
}

// withTx runs f inside a transaction, committed when f returns nil.
func (s *SQLStore) withTx(ctx context.Context, f func(tx pgx.Tx) error) error {
	return s.pool.BeginFunc(ctx, f)
}

// wrapE turns the driver errors into domain errors.
func wrapE(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if pgxscan.NotFound(err) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		return types.ErrInsufficientFunds
	}
	return err
}
