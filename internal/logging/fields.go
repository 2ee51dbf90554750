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

package logging

import (
	"time"

	"github.com/keshu12345/crypto-market/types"

	"go.uber.org/zap"
)

// String constructs a field with the given key and value.
func String(key, value string) zap.Field {
	return zap.String(key, value)
}

// Strings constructs a field that carries a slice of strings.
func Strings(key string, value []string) zap.Field {
	return zap.Strings(key, value)
}

// Int constructs a field with the given key and value.
func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// Int64 constructs a field with the given key and value.
func Int64(key string, value int64) zap.Field {
	return zap.Int64(key, value)
}

// Uint64 constructs a field with the given key and value.
func Uint64(key string, value uint64) zap.Field {
	return zap.Uint64(key, value)
}

// Bool constructs a field with the given key and value.
func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

// Duration constructs a field with the given key and value.
func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

// Time constructs a field with the given key and value.
func Time(key string, value time.Time) zap.Field {
	return zap.Time(key, value)
}

// Error constructs a field that lazily stores err.Error() under the key "error".
func Error(err error) zap.Field {
	return zap.Error(err)
}

// Reflect constructs a field by running reflection over the value.
func Reflect(key string, value interface{}) zap.Field {
	return zap.Reflect(key, value)
}

// Order constructs a field with the given order.
func Order(order types.Order) zap.Field {
	return zap.String("order", order.String())
}

// Trade constructs a field with the given trade.
func Trade(trade types.Trade) zap.Field {
	return zap.String("trade", trade.String())
}

func OrderID(id string) zap.Field {
	return zap.String("order-id", id)
}

func MarketID(id string) zap.Field {
	return zap.String("market-id", id)
}

func UserID(id string) zap.Field {
	return zap.String("user-id", id)
}
