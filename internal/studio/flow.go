/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package studio

import (
	"context"
	"fmt"
	"slices"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
)

// updateItem replaces the first item matching id through fn, copying only the slice.
func updateItem[T any](items []T, idOf func(T) string, id string, fn func(T) T) ([]T, bool) {
	i := slices.IndexFunc(items, func(it T) bool { return idOf(it) == id })
	if i < 0 {
		return items, false
	}
	items = slices.Clone(items)
	items[i] = fn(items[i])
	return items, true
}

func sceneID(s domain.StoryScene) string { return s.ID }
func clipID(c domain.VideoClip) string   { return c.ID }

func updateScene(d domain.Document, id string, fn func(domain.StoryScene) domain.StoryScene) (domain.Document, error) {
	next, ok := updateItem(d.Scenes, sceneID, id, fn)
	if !ok {
		return d, fmt.Errorf("scene %q: %w", id, domain.ErrNotFound)
	}
	d.Scenes = next
	return d, nil
}

func updateClip(d domain.Document, id string, fn func(domain.VideoClip) domain.VideoClip) (domain.Document, error) {
	next, ok := updateItem(d.Clips, clipID, id, fn)
	if !ok {
		return d, fmt.Errorf("clip %q: %w", id, domain.ErrNotFound)
	}
	d.Clips = next
	return d, nil
}

// pending orders items by index and splits off the ones already done.
func pending[T any](items []T, index func(T) int, done func(T) bool) (todo, skipped []T) {
	items = slices.Clone(items)
	slices.SortStableFunc(items, func(a, b T) int { return index(a) - index(b) })
	for _, it := range items {
		if done(it) {
			skipped = append(skipped, it)
		} else {
			todo = append(todo, it)
		}
	}
	return todo, skipped
}

// settle applies the outcome of one submission. The cancellation guard and the ticket
// are checked here, at commit time: a stopped submission commits nothing and yields
// ErrStopped. A failed call commits onFail and returns callErr.
func settle(ctx context.Context, ed *editor.Editor, g *guard, epoch uint64, u *Unit, t Ticket,
	callErr error, onDone, onFail editor.Updater) error {
	if ctx.Err() != nil || !g.live(epoch) {
		u.Stop()
		return ErrStopped
	}
	if callErr != nil {
		if !u.Fail(t, callErr) {
			return ErrStopped
		}
		if err := ed.Apply(onFail, true); err != nil {
			return err
		}
		return callErr
	}
	if !u.Finish(t) {
		return ErrStopped
	}
	return ed.Apply(onDone, true)
}
