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

package events

import (
	"context"

	"github.com/keshu12345/crypto-market/types"
)

type Order struct {
	*Base
	o types.Order
}

func NewOrderEvent(ctx context.Context, o types.Order) *Order {
	return &Order{
		Base: newBase(ctx, OrderEvent, o.Market),
		o:    o,
	}
}

func (o Order) IsUser(id string) bool {
	return o.o.UserID == id
}

func (o Order) UserID() string {
	return o.o.UserID
}

func (o *Order) Order() types.Order {
	return o.o
}

func (o Order) StreamMessage() StreamMessage {
	return o.streamMessage(o.o)
}
