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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keshu12345/crypto-market/markets"
	"github.com/keshu12345/crypto-market/types"
)

var (
	ErrInvalidRequest = newError("invalid request")
	ErrMissingUserID  = newError("missing " + UserIDHeader + " header")
	ErrUnauthorized   = newError("missing or invalid api key")
	ErrFaucetDisabled = newError("faucet is disabled")
	ErrInternal       = newError("internal error")
)

// HTTPError is the body of every failed request.
type HTTPError struct {
	ErrorStr string `json:"error"`
}

func (e HTTPError) Error() string {
	return e.ErrorStr
}

func newError(e string) HTTPError {
	return HTTPError{
		ErrorStr: e,
	}
}

// statusFor maps a service error to the HTTP status returned to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrOrderNotFound),
		errors.Is(err, types.ErrMarketNotFound),
		errors.Is(err, types.ErrInvalidMarketID),
		errors.Is(err, types.ErrSettlementNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrOrderNotOwned):
		return http.StatusForbidden
	case errors.Is(err, types.ErrOrderNotLive):
		return http.StatusConflict
	case errors.Is(err, types.ErrInvalidQuantity),
		errors.Is(err, types.ErrInvalidPrice),
		errors.Is(err, types.ErrInvalidSide),
		errors.Is(err, types.ErrInvalidOrderType),
		errors.Is(err, types.ErrPriceNotOnTick),
		errors.Is(err, types.ErrOrderTooSmall),
		errors.Is(err, types.ErrInvalidUserID),
		errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInsufficientFunds),
		errors.Is(err, markets.ErrInvalidMarket):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, e error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(e)
	w.Write(buf)
}

func writeSuccess(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(data)
	w.Write(buf)
}
