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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/orders"
	"github.com/keshu12345/crypto-market/types"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// OrderService places and cancels orders.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/services_mock.go -package mocks github.com/keshu12345/crypto-market/gateway OrderService,DepthService,TradeService,AccountService,MarketService,SettlementService
type OrderService interface {
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (*types.Order, []types.Trade, error)
	CancelOrder(ctx context.Context, orderID, userID string) (*types.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]types.Order, error)
}

type DepthService interface {
	ClampDepth(depth int) int
	Get(ctx context.Context, market string, depth int) (types.OrderBookSnapshot, error)
}

type TradeService interface {
	ClampLimit(limit int) int
	Recent(ctx context.Context, market string, limit int) ([]types.Trade, error)
}

type AccountService interface {
	Balance(ctx context.Context, userID, asset string) (types.Balance, error)
	Balances(ctx context.Context, userID string) ([]types.Balance, error)
	Deposit(ctx context.Context, userID, asset string, amount uint64) error
}

type MarketService interface {
	List(ctx context.Context) ([]types.Market, error)
}

type SettlementService interface {
	Status(ctx context.Context, id string) (types.Settlement, error)
}

// Server is the REST and websocket entry point of the venue.
type Server struct {
	*httprouter.Router

	log *logging.Logger

	mu  sync.RWMutex
	cfg Config

	orders      OrderService
	depth       DepthService
	trades      TradeService
	accounts    AccountService
	markets     MarketService
	settlements SettlementService
	broker      broker.BrokerI

	srv *http.Server
}

func New(
	log *logging.Logger,
	cfg Config,
	orders OrderService,
	depth DepthService,
	trades TradeService,
	accounts AccountService,
	markets MarketService,
	settlements SettlementService,
	broker broker.BrokerI,
) *Server {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	s := &Server{
		Router:      httprouter.New(),
		log:         log,
		cfg:         cfg,
		orders:      orders,
		depth:       depth,
		trades:      trades,
		accounts:    accounts,
		markets:     markets,
		settlements: settlements,
		broker:      broker,
	}

	s.POST("/api/v1/orders", s.PlaceOrder)
	s.DELETE("/api/v1/orders/:id", s.CancelOrder)
	s.GET("/api/v1/orders", s.UserOrders)
	s.GET("/api/v1/orderbook/:market", s.OrderBook)
	s.GET("/api/v1/trades/:market", s.Trades)
	s.GET("/api/v1/users/:id/balance", s.Balance)
	s.GET("/api/v1/markets", s.Markets)
	s.GET("/api/v1/settlements/:id", s.Settlement)
	s.POST("/api/v1/faucet/mint", s.Mint)
	s.GET("/ws", s.Stream)
	s.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, newError("route not found"), http.StatusNotFound)
	})

	return s
}

// ReloadConf updates the configuration of the gateway. The listening
// address and the middleware chain only change on restart.
func (s *Server) ReloadConf(cfg Config) {
	s.log.Info("reloading configuration")
	if s.log.GetLevel() != cfg.Level.Get() {
		s.log.Info("updating log level",
			logging.String("old", s.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		s.log.SetLevel(cfg.Level.Get())
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Server) config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	cfg := s.config()
	var h http.Handler = s
	h = APIKeyMiddleware(cfg.APIKeys, h)
	h = RateLimitMiddleware(cfg.RateLimit, h)
	h = MetricCollectionMiddleware(s.log, h)
	h = RemoteAddrMiddleware(s.log, h)
	return cors.New(CORSOptions(cfg.CORS)).Handler(h)
}

// Start serves the gateway until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config()
	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.IP, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout.Get(),
		WriteTimeout: cfg.WriteTimeout.Get(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Info("starting gateway", logging.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop will close the http server gracefully.
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	cfg := s.config()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Get())
	defer cancel()
	s.log.Info("stopping gateway")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Error("failed to stop gateway cleanly", logging.Error(err))
	}
}

// writeServiceError answers with the status matching err, internal errors
// are logged and not disclosed.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err))
		writeError(w, ErrInternal, status)
		return
	}
	writeError(w, newError(err.Error()), status)
}
