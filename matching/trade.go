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

package matching

import (
	"github.com/keshu12345/crypto-market/types"
)

// tradeHistory is a fixed size ring of the most recent trades of a book.
// Once full, every new trade evicts the oldest one.
type tradeHistory struct {
	buf   []types.Trade
	start int
	size  int
}

func newTradeHistory(capacity int) *tradeHistory {
	if capacity <= 0 {
		capacity = DefaultTradeHistorySize
	}
	return &tradeHistory{
		buf: make([]types.Trade, capacity),
	}
}

func (h *tradeHistory) add(trades ...types.Trade) {
	for _, t := range trades {
		if h.size < len(h.buf) {
			h.buf[(h.start+h.size)%len(h.buf)] = t
			h.size++
			continue
		}
		h.buf[h.start] = t
		h.start = (h.start + 1) % len(h.buf)
	}
}

// recent returns up to limit trades, newest first.
func (h *tradeHistory) recent(limit int) []types.Trade {
	if limit > h.size {
		limit = h.size
	}
	if limit <= 0 {
		return []types.Trade{}
	}
	out := make([]types.Trade, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.start + h.size - 1 - i) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

func (h *tradeHistory) len() int {
	return h.size
}

// resize keeps the newest trades that fit in the new capacity.
func (h *tradeHistory) resize(capacity int) {
	if capacity <= 0 || capacity == len(h.buf) {
		return
	}
	kept := h.recent(capacity)
	h.buf = make([]types.Trade, capacity)
	h.start, h.size = 0, 0
	for i := len(kept) - 1; i >= 0; i-- {
		h.add(kept[i])
	}
}
