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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshu12345/crypto-market/accounts"
	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/broker/kafka"
	"github.com/keshu12345/crypto-market/config"
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

	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"
)

type NodeCmd struct {
	RootPathFlag
	config.Config
}

func (cmd *NodeCmd) Execute(args []string) error {
	cfg, err := config.Read(cmd.RootPath)
	if err != nil {
		return fmt.Errorf("could not load the configuration, run `venue init` first: %w", err)
	}
	cmd.Config = *cfg

	// command line flags take precedence over the configuration file
	if _, err := flags.NewParser(cmd, flags.Default|flags.IgnoreUnknown).Parse(); err != nil {
		return err
	}

	log := logging.NewLoggerFromConfig(cmd.Logging)
	defer log.AtExit()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := config.NewWatcher(ctx, log, cmd.RootPath)
	if err != nil {
		return err
	}

	return (&NodeCommand{
		ctx:           ctx,
		cancel:        cancel,
		Log:           log,
		conf:          cmd.Config,
		configWatcher: watcher,
	}).Run(args)
}

var nodeCmd NodeCmd

func Node(ctx context.Context, parser *flags.Parser) error {
	nodeCmd = NodeCmd{
		RootPathFlag: NewRootPathFlag(),
		Config:       config.NewDefaultConfig(defaultRootPath()),
	}

	cmd, err := parser.AddCommand("node", "Runs the venue", "Runs the matching engine, its services and the API gateway", &nodeCmd)
	if err != nil {
		return err
	}

	// nested groups are listed under their parent in the help output
	for _, parent := range cmd.Groups() {
		for _, grp := range parent.Groups() {
			grp.ShortDescription = parent.ShortDescription + "::" + grp.ShortDescription
		}
	}
	return nil
}

// NodeCommand holds the components of a running venue.
type NodeCommand struct {
	ctx    context.Context
	cancel context.CancelFunc

	Log           *logging.Logger
	conf          config.Config
	configWatcher *config.Watcher

	sqlStore *sqlstore.SQLStore

	// Stores
	marketStore     *sqlstore.Markets
	orderStore      *sqlstore.Orders
	tradeStore      *sqlstore.Trades
	balanceStore    *sqlstore.Balances
	settlementStore *sqlstore.Settlements

	engine *matching.Engine
	broker *broker.Broker
	sink   *kafka.Sink

	// Services
	marketService     *markets.Svc
	accountService    *accounts.Svc
	depthService      *depth.Svc
	tradeService      *trades.Svc
	settlementService *settlement.Svc
	orderService      *orders.Svc

	gateway *gateway.Server
}

func (l *NodeCommand) Run(args []string) error {
	stages := []func([]string) error{
		l.preRun,
		l.runNode,
		l.postRun,
	}
	for _, fn := range stages {
		if err := fn(args); err != nil {
			return err
		}
	}

	return nil
}

func (l *NodeCommand) preRun([]string) (err error) {
	l.sqlStore, err = sqlstore.InitialiseStorage(l.ctx, l.Log, l.conf.SQLStore)
	if err != nil {
		return fmt.Errorf("couldn't initialise sql storage: %w", err)
	}

	l.marketStore = sqlstore.NewMarkets(l.sqlStore)
	l.orderStore = sqlstore.NewOrders(l.sqlStore)
	l.tradeStore = sqlstore.NewTrades(l.sqlStore)
	l.balanceStore = sqlstore.NewBalances(l.sqlStore)
	l.settlementStore = sqlstore.NewSettlements(l.sqlStore)

	l.engine = matching.New(l.Log, l.conf.Matching)
	l.broker = broker.New(l.ctx, l.Log, l.conf.Broker)

	l.marketService = markets.NewService(l.Log, l.conf.Markets, l.marketStore, l.engine)
	l.accountService = accounts.NewService(l.Log, l.conf.Accounts, l.balanceStore)
	l.depthService = depth.NewService(l.Log, l.conf.Depth, l.engine)
	l.tradeService = trades.NewService(l.Log, l.conf.Trades, l.tradeStore, l.engine)
	l.settlementService = settlement.NewService(l.Log, l.conf.Settlement, l.settlementStore, l.accountService, l.marketService)
	l.orderService = orders.NewService(
		l.Log,
		l.conf.Orders,
		l.orderStore,
		l.engine,
		l.marketService,
		l.accountService,
		l.tradeService,
		l.settlementService,
		l.broker,
	)

	if l.conf.Kafka.Enabled.Get() {
		producer, err := kafka.NewProducer(l.ctx, l.conf.Kafka)
		if err != nil {
			return fmt.Errorf("couldn't connect to kafka: %w", err)
		}
		l.sink = kafka.NewSink(l.Log, l.conf.Kafka, producer)
	}

	if err := l.marketService.Bootstrap(l.ctx); err != nil {
		return fmt.Errorf("couldn't load the markets: %w", err)
	}

	restored, err := l.orderService.RestoreBooks(l.ctx)
	if err != nil {
		return fmt.Errorf("couldn't restore the order books: %w", err)
	}
	l.Log.Info("order books restored", logging.Int("orders", restored))

	l.gateway = gateway.New(
		l.Log,
		l.conf.Gateway,
		l.orderService,
		l.depthService,
		l.tradeService,
		l.accountService,
		l.marketService,
		l.settlementService,
		l.broker,
	)

	return nil
}

// runNode is the entry of node command.
func (l *NodeCommand) runNode([]string) error {
	defer l.cancel()

	ctx, cancel := context.WithCancel(l.ctx)
	eg, ctx := errgroup.WithContext(ctx)

	// watch configs
	l.configWatcher.OnConfigUpdate(
		func(cfg config.Config) { l.engine.ReloadConf(cfg.Matching) },
		func(cfg config.Config) { l.marketService.ReloadConf(cfg.Markets) },
		func(cfg config.Config) { l.accountService.ReloadConf(cfg.Accounts) },
		func(cfg config.Config) { l.depthService.ReloadConf(cfg.Depth) },
		func(cfg config.Config) { l.tradeService.ReloadConf(cfg.Trades) },
		func(cfg config.Config) { l.settlementService.ReloadConf(cfg.Settlement) },
		func(cfg config.Config) { l.orderService.ReloadConf(cfg.Orders) },
		func(cfg config.Config) { l.gateway.ReloadConf(cfg.Gateway) },
	)

	eg.Go(func() error {
		l.depthService.Start(ctx, l.broker)
		return nil
	})

	eg.Go(func() error {
		l.settlementService.Start(ctx)
		return nil
	})

	if l.sink != nil {
		eg.Go(func() error { return l.sink.Start(ctx, l.broker) })
	}

	eg.Go(func() error { return metrics.Start(ctx, l.Log, l.conf.Metrics) })

	eg.Go(func() error { return l.gateway.Start(ctx) })

	// waitSig will wait for a sigterm or sigint interrupt.
	eg.Go(func() error {
		gracefulStop := make(chan os.Signal, 1)
		signal.Notify(gracefulStop, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-gracefulStop:
			l.Log.Info("Caught signal", logging.String("name", fmt.Sprintf("%+v", sig)))
			cancel()
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})

	l.Log.Info("venue startup complete")

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (l *NodeCommand) postRun([]string) error {
	if l.sqlStore == nil {
		return nil
	}
	if err := l.sqlStore.Stop(); err != nil {
		l.Log.Error("couldn't stop the sql store", logging.Error(err))
		return err
	}
	return nil
}
