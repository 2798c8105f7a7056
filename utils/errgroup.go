// Copyright (C) 2026 l3montree GmbH
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
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package utils

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs functions with bounded parallelism. Results are kept in the
// order the functions were submitted, not in completion order.
type Group[T any] struct {
	group *errgroup.Group
	slots []*T
}

func ErrGroup[T any](limit int) *Group[T] {
	g := &errgroup.Group{}
	g.SetLimit(limit)
	return &Group[T]{group: g}
}

// ErrGroupWithContext returns a group whose context is canceled as soon as one
// function fails.
func ErrGroupWithContext[T any](ctx context.Context, limit int) (*Group[T], context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	return &Group[T]{group: g}, ctx
}

// Go must not be called concurrently.
func (g *Group[T]) Go(f func() (T, error)) {
	slot := new(T)
	g.slots = append(g.slots, slot)
	g.group.Go(func() error {
		res, err := f()
		if err != nil {
			return err
		}
		*slot = res
		return nil
	})
}

func (g *Group[T]) WaitAndCollect() ([]T, error) {
	if err := g.group.Wait(); err != nil {
		return nil, err
	}
	return DereferenceSlice(g.slots), nil
}
