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
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/types"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Books gives access to the live order books.
type Books interface {
	Snapshot(marketID string, depth int) (types.OrderBookSnapshot, error)
}

// Svc serves aggregated order book snapshots. Snapshots are cached per
// market and depth until the book changes or the TTL expires. Book events
// dropped by a slow subscriber are not replayed, so the TTL bounds how stale
// a snapshot can be.
type Svc struct {
	Config
	log   *logging.Logger
	books Books

	mu    sync.RWMutex
	cache *expirable.LRU[string, types.OrderBookSnapshot]

	// gens counts the invalidations of each market, a snapshot read across
	// an invalidation is not cached.
	genMu sync.Mutex
	gens  map[string]uint64
}

func NewService(log *logging.Logger, config Config, books Books) *Svc {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Svc{
		Config: config,
		log:    log,
		books:  books,
		cache:  newCache(config),
		gens:   map[string]uint64{},
	}
}

func newCache(config Config) *expirable.LRU[string, types.OrderBookSnapshot] {
	return expirable.NewLRU[string, types.OrderBookSnapshot](config.CacheSize, nil, config.CacheTTL.Get())
}

// ReloadConf updates the internal configuration of the service.
func (s *Svc) ReloadConf(cfg Config) {
	s.log.Info("reloading configuration")
	if s.log.GetLevel() != cfg.Level.Get() {
		s.log.Info("updating log level",
			logging.String("old", s.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		s.log.SetLevel(cfg.Level.Get())
	}

	s.mu.Lock()
	s.Config = cfg
	s.cache = newCache(cfg)
	s.mu.Unlock()
}

func cacheKey(market string, depth int) string {
	return market + ":" + strconv.Itoa(depth)
}

// ClampDepth applies the default and maximum depth to a requested depth.
func (s *Svc) ClampDepth(depth int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if depth <= 0 {
		return s.DefaultDepth
	}
	if depth > s.MaxDepth {
		return s.MaxDepth
	}
	return depth
}

// Get returns the snapshot of a market showing at most depth levels per side.
func (s *Svc) Get(_ context.Context, market string, depth int) (types.OrderBookSnapshot, error) {
	depth = s.ClampDepth(depth)
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()

	key := cacheKey(market, depth)
	if snap, ok := cache.Get(key); ok {
		return snap, nil
	}

	gen := s.generation(market)
	snap, err := s.books.Snapshot(market, depth)
	if err != nil {
		return types.OrderBookSnapshot{}, err
	}

	s.genMu.Lock()
	if s.gens[market] == gen {
		cache.Add(key, snap)
	}
	s.genMu.Unlock()
	return snap, nil
}

func (s *Svc) generation(market string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[market]
}

// Invalidate drops every cached snapshot of a market.
func (s *Svc) Invalidate(market string) {
	s.mu.RLock()
	cache := s.cache
	s.mu.RUnlock()

	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[market]++

	prefix := market + ":"
	for _, k := range cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			cache.Remove(k)
		}
	}
}

// Start invalidates the cache on every book change until ctx is done.
func (s *Svc) Start(ctx context.Context, b broker.BrokerI) {
	sub := broker.NewChannelSubscriber(256, []events.Type{events.BookEvent})
	id := b.Subscribe(sub)
	defer func() {
		b.Unsubscribe(id)
		sub.Halt()
	}()
	for {
		evts, ok := sub.Recv(ctx)
		if !ok {
			return
		}
		for _, e := range evts {
			s.Invalidate(e.MarketID())
		}
	}
}
