/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvariant marks a Document that breaks a structural invariant. It is a programming defect.
	ErrInvariant = errors.New("document invariant violated")
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("not found")
)

// Validate checks the structural invariants every committed Document must hold.
func Validate(d Document) error {
	if d.Canvas.Width <= 0 || d.Canvas.Height <= 0 {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvariant, d.Canvas.Width, d.Canvas.Height)
	}
	if !d.Canvas.Background.Mode.Valid() {
		return fmt.Errorf("%w: background mode %q", ErrInvariant, d.Canvas.Background.Mode)
	}

	live := make(map[string]struct{}, len(d.LayerOrder))
	for _, id := range d.LayerIDs() {
		if id == GlobalFXID {
			return fmt.Errorf("%w: layer uses reserved id %q", ErrInvariant, id)
		}
		if _, dup := live[id]; dup {
			return fmt.Errorf("%w: layer id %q used twice", ErrInvariant, id)
		}
		live[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(d.LayerOrder))
	sentinel := false
	for _, id := range d.LayerOrder {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q appears twice in layer order", ErrInvariant, id)
		}
		seen[id] = struct{}{}
		if id == GlobalFXID {
			sentinel = true
			continue
		}
		if _, ok := live[id]; !ok {
			return fmt.Errorf("%w: layer order entry %q does not resolve", ErrInvariant, id)
		}
	}
	if !sentinel {
		return fmt.Errorf("%w: layer order lacks %q", ErrInvariant, GlobalFXID)
	}
	for id := range live {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: layer %q missing from layer order", ErrInvariant, id)
		}
	}

	for _, g := range d.Groups {
		if len(g.LayerIDs) == 0 {
			return fmt.Errorf("%w: group %q is empty", ErrInvariant, g.ID)
		}
		for _, id := range g.LayerIDs {
			if _, ok := live[id]; !ok {
				return fmt.Errorf("%w: group %q references %q", ErrInvariant, g.ID, id)
			}
		}
	}

	for _, l := range d.ImageLayers {
		if l.Mask != nil && l.Mask.Type != "" && !l.Mask.Type.Valid() {
			return fmt.Errorf("%w: layer %q mask type %q", ErrInvariant, l.ID, l.Mask.Type)
		}
		if l.Mask != nil && !Finite(l.Mask.Feather, l.Mask.Scale, l.Mask.OffsetX, l.Mask.OffsetY) {
			return fmt.Errorf("%w: layer %q mask transform is not finite", ErrInvariant, l.ID)
		}
	}
	for _, l := range d.Shapes {
		if !l.Shape.Valid() {
			return fmt.Errorf("%w: layer %q shape kind %q", ErrInvariant, l.ID, l.Shape)
		}
	}
	for _, e := range d.entities() {
		b := e.Base()
		if !Finite(b.X, b.Y, b.Width, b.Height, b.Rotation, b.Opacity) {
			return fmt.Errorf("%w: layer %q geometry is not finite", ErrInvariant, b.ID)
		}
		if !b.Effects.finite() {
			return fmt.Errorf("%w: layer %q effect is not finite", ErrInvariant, b.ID)
		}
	}
	if !d.Canvas.Effects.finite() {
		return fmt.Errorf("%w: global effect is not finite", ErrInvariant)
	}
	return nil
}

func (d Document) entities() []Entity {
	out := make([]Entity, 0, len(d.ImageLayers)+len(d.Texts)+len(d.Shapes))
	for _, l := range d.ImageLayers {
		out = append(out, l)
	}
	for _, l := range d.Texts {
		out = append(out, l)
	}
	for _, l := range d.Shapes {
		out = append(out, l)
	}
	return out
}

func (e *EffectSet) finite() bool {
	if e == nil {
		return true
	}
	for _, v := range e.Params {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
