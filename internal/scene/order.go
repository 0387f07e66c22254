/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"slices"

	"canvasstudio/internal/domain"
)

// DisplayOrder is the layer-list order: topmost first, the reverse of LayerOrder.
func DisplayOrder(d domain.Document) []string {
	out := slices.Clone(d.LayerOrder)
	slices.Reverse(out)
	return out
}

func move(d domain.Document, id string, fn func(rest []string, i int) []string) (domain.Document, error) {
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	if !slices.Contains(d.LayerOrder, id) {
		return d, notFound("layer order entry", id)
	}
	d.LayerOrder = reorder(d.LayerOrder, func(rest []string) []string {
		return fn(rest, slices.Index(rest, id))
	})
	return d, nil
}

// MoveUp swaps id with the layer above it. It is a no-op at the top.
func MoveUp(d domain.Document, id string) (domain.Document, error) {
	return move(d, id, func(rest []string, i int) []string {
		if i < len(rest)-1 {
			rest[i], rest[i+1] = rest[i+1], rest[i]
		}
		return rest
	})
}

// MoveDown swaps id with the layer below it. It is a no-op at the bottom.
func MoveDown(d domain.Document, id string) (domain.Document, error) {
	return move(d, id, func(rest []string, i int) []string {
		if i > 0 {
			rest[i], rest[i-1] = rest[i-1], rest[i]
		}
		return rest
	})
}

// MoveToFront makes id the topmost layer, keeping the relative order of the others.
func MoveToFront(d domain.Document, id string) (domain.Document, error) {
	return move(d, id, func(rest []string, i int) []string {
		return append(slices.Delete(rest, i, i+1), id)
	})
}

// MoveToBack makes id the bottom-most layer, keeping the relative order of the others.
func MoveToBack(d domain.Document, id string) (domain.Document, error) {
	return move(d, id, func(rest []string, i int) []string {
		return slices.Insert(slices.Delete(rest, i, i+1), 0, id)
	})
}

// MoveTo places id at z-index to among the layers (0 = bottom), clamped to the valid range.
func MoveTo(d domain.Document, id string, to int) (domain.Document, error) {
	return move(d, id, func(rest []string, i int) []string {
		rest = slices.Delete(rest, i, i+1)
		to = max(0, min(to, len(rest)))
		return slices.Insert(rest, to, id)
	})
}

// Insert places an already stored layer id into LayerOrder. at < 0 appends it on top.
func Insert(d domain.Document, id string, at int) (domain.Document, error) {
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	if slices.Contains(d.LayerOrder, id) {
		return d, invalid("layer %q already ordered", id)
	}
	d.LayerOrder = reorder(d.LayerOrder, func(rest []string) []string {
		if at < 0 || at > len(rest) {
			return append(rest, id)
		}
		return slices.Insert(rest, at, id)
	})
	return d, nil
}

// AddLayer stores e and puts it on top. A missing id is generated and a zero opacity
// reads as fully opaque. It returns the id.
func AddLayer(d domain.Document, e domain.Entity) (domain.Document, string, error) {
	b := e.Base()
	if b.ID == "" {
		b.ID = domain.NewID()
	}
	if b.Opacity == 0 {
		b.Opacity = 1
	}
	e = e.WithBase(b)
	if b.ID == domain.GlobalFXID {
		return d, "", ErrGlobalFX
	}
	if _, _, exists := d.Resolve(b.ID); exists {
		return d, "", invalid("layer %q already exists", b.ID)
	}
	if !domain.Finite(b.X, b.Y, b.Width, b.Height, b.Rotation, b.Opacity) || b.Width <= 0 || b.Height <= 0 {
		return d, "", invalid("layer geometry %+v", b)
	}
	if b.Opacity < 0 || b.Opacity > 1 {
		return d, "", invalid("opacity %g", b.Opacity)
	}
	if s, ok := e.(domain.ShapeLayer); ok && !s.Shape.Valid() {
		return d, "", invalid("shape kind %q", s.Shape)
	}
	d = d.AddEntity(e)
	d, err := Insert(d, b.ID, -1)
	return d, b.ID, err
}

// DeleteLayer removes id from its collection, from LayerOrder and from every group.
// Groups left without members are deleted.
func DeleteLayer(d domain.Document, id string) (domain.Document, error) {
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	return removeLayers(d, []string{id}), nil
}

func removeLayers(d domain.Document, ids []string) domain.Document {
	for _, id := range ids {
		d = d.RemoveEntity(id)
	}
	d.LayerOrder = slices.DeleteFunc(slices.Clone(d.LayerOrder), func(id string) bool {
		return slices.Contains(ids, id)
	})
	return pruneGroups(d, ids)
}

// DuplicateLayer copies id with a fresh id directly above the source. It returns the new id.
func DuplicateLayer(d domain.Document, id string) (domain.Document, string, error) {
	e, _, err := resolveLayer(d, id)
	if err != nil {
		return d, "", err
	}
	b := e.Base()
	b.ID = domain.NewID()
	if b.Name != "" {
		b.Name += " copy"
	}
	b.X += 20
	b.Y += 20
	d = d.AddEntity(e.WithBase(b))
	d.LayerOrder = reorder(d.LayerOrder, func(rest []string) []string {
		return slices.Insert(rest, slices.Index(rest, id)+1, b.ID)
	})
	return d, b.ID, nil
}

// SetGlobalFXHidden toggles the canvas-wide effect pass.
func SetGlobalFXHidden(d domain.Document, hidden bool) domain.Document {
	d.Canvas.EffectsEnabled = !hidden
	return d
}

// SetGlobalFXLocked locks the canvas-wide effect settings against gestures.
func SetGlobalFXLocked(d domain.Document, locked bool) domain.Document {
	d.Canvas.EffectsLocked = locked
	return d
}

// ResetGlobalEffects is what "deleting" the sentinel means: the canvas effects return to identity.
func ResetGlobalEffects(d domain.Document) domain.Document {
	d.Canvas.Effects = domain.IdentityEffects()
	return d
}
