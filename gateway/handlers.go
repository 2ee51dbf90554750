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
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/keshu12345/crypto-market/internal/logging"
	"github.com/keshu12345/crypto-market/orders"
	"github.com/keshu12345/crypto-market/types"

	"github.com/julienschmidt/httprouter"
)

const maxBodySize = 1 << 16

// PlaceOrderRequest is the body of POST /api/v1/orders, sent either as JSON
// or as a url encoded form.
type PlaceOrderRequest struct {
	UserID   string `json:"user_id"`
	Market   string `json:"market"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

type PlaceOrderResponse struct {
	OrderID string            `json:"order_id"`
	Status  types.OrderStatus `json:"status"`
	Order   types.Order       `json:"order"`
	Trades  []types.Trade     `json:"trades"`
}

type MintRequest struct {
	UserID string `json:"user_id"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type MintResponse struct {
	Success bool `json:"success"`
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func unmarshalBody(r *http.Request, into interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return ErrInvalidRequest
	}
	if err := json.Unmarshal(body, into); err != nil {
		return newError("invalid request: " + err.Error())
	}
	return nil
}

func parseOrderForm(r *http.Request) (PlaceOrderRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		return PlaceOrderRequest{}, ErrInvalidRequest
	}
	req := PlaceOrderRequest{
		UserID: r.PostForm.Get("user_id"),
		Market: r.PostForm.Get("market"),
		Side:   r.PostForm.Get("side"),
		Type:   r.PostForm.Get("type"),
	}
	var err error
	if v := r.PostForm.Get("price"); v != "" {
		if req.Price, err = strconv.ParseUint(v, 10, 64); err != nil {
			return PlaceOrderRequest{}, newError("invalid price")
		}
	}
	if req.Quantity, err = strconv.ParseUint(r.PostForm.Get("quantity"), 10, 64); err != nil {
		return PlaceOrderRequest{}, newError("invalid quantity")
	}
	return req, nil
}

// intQuery reads an optional integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, newError("invalid " + name)
	}
	return n, nil
}

func (s *Server) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		req PlaceOrderRequest
		err error
	)
	if isJSON(r) {
		err = unmarshalBody(r, &req)
	} else {
		req, err = parseOrderForm(r)
	}
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	side, err := types.ParseSide(req.Side)
	if err != nil {
		writeError(w, newError(err.Error()), http.StatusBadRequest)
		return
	}
	orderType := types.OrderTypeLimit
	if req.Type != "" {
		if orderType, err = types.ParseOrderType(req.Type); err != nil {
			writeError(w, newError(err.Error()), http.StatusBadRequest)
			return
		}
	}

	order, trades, err := s.orders.PlaceOrder(r.Context(), orders.PlaceOrderRequest{
		UserID:   req.UserID,
		Market:   req.Market,
		Side:     side,
		Type:     orderType,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if trades == nil {
		trades = []types.Trade{}
	}

	writeSuccess(w, PlaceOrderResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Order:   *order,
		Trades:  trades,
	}, http.StatusOK)
}

func (s *Server) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		writeError(w, ErrMissingUserID, http.StatusUnauthorized)
		return
	}
	order, err := s.orders.CancelOrder(r.Context(), ps.ByName("id"), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, order, http.StatusOK)
}

func (s *Server) UserOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		writeError(w, ErrMissingUserID, http.StatusUnauthorized)
		return
	}
	out, err := s.orders.GetUserOrders(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []types.Order{}
	}
	writeSuccess(w, out, http.StatusOK)
}

func (s *Server) OrderBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	depth, err := intQuery(r, "depth")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	snap, err := s.depth.Get(r.Context(), ps.ByName("market"), s.depth.ClampDepth(depth))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, snap, http.StatusOK)
}

func (s *Server) Trades(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	out, err := s.trades.Recent(r.Context(), ps.ByName("market"), s.trades.ClampLimit(limit))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []types.Trade{}
	}
	writeSuccess(w, out, http.StatusOK)
}

// Balance returns the balance of one asset when the asset query parameter
// is set, all the balances of the user otherwise.
func (s *Server) Balance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("id")
	if asset := r.URL.Query().Get("asset"); asset != "" {
		bal, err := s.accounts.Balance(r.Context(), userID, asset)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeSuccess(w, bal, http.StatusOK)
		return
	}

	bals, err := s.accounts.Balances(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if bals == nil {
		bals = []types.Balance{}
	}
	writeSuccess(w, bals, http.StatusOK)
}

func (s *Server) Markets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	out, err := s.markets.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []types.Market{}
	}
	writeSuccess(w, out, http.StatusOK)
}

func (s *Server) Settlement(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	st, err := s.settlements.Status(r.Context(), ps.ByName("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, st, http.StatusOK)
}

// Mint credits funds to a user, only available when the faucet is enabled.
func (s *Server) Mint(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg := s.config().Faucet
	if !cfg.Enabled.Get() {
		writeError(w, ErrFaucetDisabled, http.StatusForbidden)
		return
	}

	req := MintRequest{}
	if err := unmarshalBody(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	// validation
	if len(req.UserID) <= 0 {
		writeError(w, newError("missing user_id field"), http.StatusBadRequest)
		return
	}
	if len(req.Asset) <= 0 {
		writeError(w, newError("missing asset field"), http.StatusBadRequest)
		return
	}
	if req.Amount == 0 || (cfg.MaxAmount > 0 && req.Amount > cfg.MaxAmount) {
		writeError(w, newError("amount must be between 1 and "+strconv.FormatUint(cfg.MaxAmount, 10)), http.StatusBadRequest)
		return
	}

	if err := s.accounts.Deposit(r.Context(), req.UserID, req.Asset, req.Amount); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log.Info("funds minted",
		logging.UserID(req.UserID),
		logging.String("asset", req.Asset),
		logging.Uint64("amount", req.Amount))
	writeSuccess(w, MintResponse{Success: true}, http.StatusOK)
}
