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
	"net/http"
	"sync"
	"time"

	"github.com/keshu12345/crypto-market/broker"
	"github.com/keshu12345/crypto-market/events"
	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/metrics"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// channels maps the websocket channel names to the events they stream.
var channels = map[string]events.Type{
	"trades":    events.TradeEvent,
	"orderbook": events.BookEvent,
	"orders":    events.OrderEvent,
}

// StreamRequest is sent by websocket clients to change their subscriptions.
type StreamRequest struct {
	Op      string `json:"op"`
	Channel string `json:"channel"`
	Market  string `json:"market"`
}

// StreamReply acknowledges a StreamRequest.
type StreamReply struct {
	Op      string `json:"op"`
	Channel string `json:"channel,omitempty"`
	Market  string `json:"market,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type topic struct {
	typ    events.Type
	market string
}

// stream is one websocket client and the topics it subscribed to.
type stream struct {
	log    *logging.Logger
	cfg    WebSocketConfig
	conn   *websocket.Conn
	userID string

	mu     sync.RWMutex
	topics map[topic]struct{}

	writeMu sync.Mutex
}

func (st *stream) wants(e events.Event) bool {
	st.mu.RLock()
	_, ok := st.topics[topic{typ: e.Type(), market: e.MarketID()}]
	st.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Type() == events.OrderEvent {
		o, ok := e.(interface{ UserID() string })
		return ok && o.UserID() == st.userID
	}
	return true
}

func (st *stream) write(v interface{}) error {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	_ = st.conn.SetWriteDeadline(time.Now().Add(st.cfg.WriteTimeout.Get()))
	return st.conn.WriteJSON(v)
}

func (st *stream) ping() error {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	return st.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(st.cfg.WriteTimeout.Get()))
}

func (st *stream) handle(req StreamRequest) StreamReply {
	start := time.Now()
	defer metrics.APIRequestAndTimeWS(req.Op, start)

	reply := StreamReply{Op: req.Op, Channel: req.Channel, Market: req.Market}
	typ, ok := channels[req.Channel]
	switch {
	case req.Op != OpSubscribe && req.Op != OpUnsubscribe:
		reply.Error = "unknown op"
		return reply
	case !ok:
		reply.Error = "unknown channel"
		return reply
	case req.Market == "":
		reply.Error = "missing market"
		return reply
	case typ == events.OrderEvent && st.userID == "":
		reply.Error = "orders channel requires a user id"
		return reply
	}

	t := topic{typ: typ, market: req.Market}
	st.mu.Lock()
	if req.Op == OpSubscribe {
		st.topics[t] = struct{}{}
	} else {
		delete(st.topics, t)
	}
	st.mu.Unlock()

	reply.Success = true
	return reply
}

// readLoop applies the client requests until the connection fails.
func (st *stream) readLoop(cancel context.CancelFunc) {
	defer cancel()
	for {
		var req StreamRequest
		if err := st.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				st.log.Debug("websocket read failed", logging.Error(err))
			}
			return
		}
		if err := st.write(st.handle(req)); err != nil {
			return
		}
	}
}

// Stream upgrades the request to a websocket streaming the events of the
// subscribed channels. The orders channel only carries the orders of the
// user given in the X-User-ID header or the user_id query parameter.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg := s.config().WebSocket
	up := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || AllowedOrigin(s.config().CORS.AllowedOrigins)(origin)
		},
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	st := &stream{
		log:    s.log,
		cfg:    cfg,
		conn:   conn,
		userID: userID,
		topics: map[topic]struct{}{},
	}

	conn.SetReadLimit(cfg.ReadLimit)
	deadline := 2 * cfg.PingInterval.Get()
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := broker.NewChannelSubscriber(
		cfg.BufferSize,
		[]events.Type{events.TradeEvent, events.BookEvent, events.OrderEvent},
		st.wants,
	)
	id := s.broker.Subscribe(sub)
	defer func() {
		s.broker.Unsubscribe(id)
		sub.Halt()
	}()

	go st.readLoop(cancel)
	go func() {
		ticker := time.NewTicker(cfg.PingInterval.Get())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := st.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		evts, ok := sub.Recv(ctx)
		if !ok {
			return
		}
		for _, e := range evts {
			if err := st.write(e.StreamMessage()); err != nil {
				s.log.Debug("websocket write failed", logging.Error(err))
				return
			}
		}
	}
}
