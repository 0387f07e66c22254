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
	"math"

	"canvasstudio/internal/domain"
)

// Geometry is a layer transform in canvas space.
type Geometry struct {
	X, Y          float64
	Width, Height float64
	Rotation      float64
}

// SetGeometry moves, resizes and rotates id. Rotation is normalised to [0, 360).
func SetGeometry(d domain.Document, id string, g Geometry) (domain.Document, error) {
	if !domain.Finite(g.X, g.Y, g.Width, g.Height, g.Rotation) || g.Width <= 0 || g.Height <= 0 {
		return d, invalid("geometry %+v", g)
	}
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	rot := math.Mod(g.Rotation, 360)
	if rot < 0 {
		rot += 360
	}
	d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer {
		l.X, l.Y, l.Width, l.Height, l.Rotation = g.X, g.Y, g.Width, g.Height, rot
		return l
	})
	return d, nil
}

// GeometryOf returns the current transform of id.
func GeometryOf(d domain.Document, id string) (Geometry, error) {
	e, _, err := resolveLayer(d, id)
	if err != nil {
		return Geometry{}, err
	}
	b := e.Base()
	return Geometry{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, Rotation: b.Rotation}, nil
}

func SetOpacity(d domain.Document, id string, opacity float64) (domain.Document, error) {
	if !domain.Finite(opacity) || opacity < 0 || opacity > 1 {
		return d, invalid("opacity %g", opacity)
	}
	return updateLayer(d, id, func(l domain.Layer) domain.Layer { l.Opacity = opacity; return l })
}

func SetHidden(d domain.Document, id string, hidden bool) (domain.Document, error) {
	if id == domain.GlobalFXID {
		return SetGlobalFXHidden(d, hidden), nil
	}
	return updateLayer(d, id, func(l domain.Layer) domain.Layer { l.Hidden = hidden; return l })
}

func SetLocked(d domain.Document, id string, locked bool) (domain.Document, error) {
	if id == domain.GlobalFXID {
		return SetGlobalFXLocked(d, locked), nil
	}
	return updateLayer(d, id, func(l domain.Layer) domain.Layer { l.Locked = locked; return l })
}

// Rename sets the display label. The id never changes.
func Rename(d domain.Document, id, name string) (domain.Document, error) {
	return updateLayer(d, id, func(l domain.Layer) domain.Layer { l.Name = name; return l })
}

func updateLayer(d domain.Document, id string, fn func(domain.Layer) domain.Layer) (domain.Document, error) {
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	d, _ = d.UpdateEntity(id, fn)
	return d, nil
}

// UpdateText edits the typography fields of a text layer.
func UpdateText(d domain.Document, id string, fn func(domain.TextLayer) domain.TextLayer) (domain.Document, error) {
	e, kind, err := resolveLayer(d, id)
	if err != nil {
		return d, err
	}
	if kind != domain.KindText {
		return d, invalid("layer %q is not text", id)
	}
	t := fn(e.(domain.TextLayer))
	if !domain.Finite(t.FontSize, t.LetterSpacing, t.LineHeight) || t.FontSize <= 0 {
		return d, invalid("font size %g", t.FontSize)
	}
	t.ID = id
	return d.ReplaceEntity(t), nil
}

// UpdateShape edits the paint fields of a shape layer.
func UpdateShape(d domain.Document, id string, fn func(domain.ShapeLayer) domain.ShapeLayer) (domain.Document, error) {
	e, kind, err := resolveLayer(d, id)
	if err != nil {
		return d, err
	}
	if kind != domain.KindShape {
		return d, invalid("layer %q is not a shape", id)
	}
	s := fn(e.(domain.ShapeLayer))
	if !s.Shape.Valid() {
		return d, invalid("shape kind %q", s.Shape)
	}
	if !domain.Finite(s.StrokeWidth, s.CornerRadius) || s.StrokeWidth < 0 {
		return d, invalid("stroke width %g", s.StrokeWidth)
	}
	s.ID = id
	return d.ReplaceEntity(s), nil
}

// SetFlip mirrors an image layer.
func SetFlip(d domain.Document, id string, flipX, flipY bool) (domain.Document, error) {
	_, kind, err := resolveLayer(d, id)
	if err != nil {
		return d, err
	}
	if kind != domain.KindImage {
		return d, invalid("layer %q is not an image", id)
	}
	img, _ := d.Image(id)
	img.FlipX, img.FlipY = flipX, flipY
	return d.ReplaceEntity(img), nil
}
