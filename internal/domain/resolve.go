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
	"slices"
	"strings"
)

// Resolve finds the entity behind id. The sentinel resolves to (nil, KindGlobalFX, true).
// Every panel and every ordering/grouping algorithm goes through this lookup.
func (d Document) Resolve(id string) (Entity, Kind, bool) {
	if id == GlobalFXID {
		return nil, KindGlobalFX, true
	}
	for _, l := range d.ImageLayers {
		if l.ID == id {
			return l, KindImage, true
		}
	}
	for _, l := range d.Texts {
		if l.ID == id {
			return l, KindText, true
		}
	}
	for _, l := range d.Shapes {
		if l.ID == id {
			return l, KindShape, true
		}
	}
	return nil, "", false
}

// Image returns the image layer with id.
func (d Document) Image(id string) (ImageLayer, bool) {
	for _, l := range d.ImageLayers {
		if l.ID == id {
			return l, true
		}
	}
	return ImageLayer{}, false
}

// GroupByID returns the group with id and its index.
func (d Document) GroupByID(id string) (Group, int, bool) {
	for i, g := range d.Groups {
		if g.ID == id {
			return g, i, true
		}
	}
	return Group{}, -1, false
}

// GroupOf returns the group containing layer id, if any.
func (d Document) GroupOf(id string) (Group, bool) {
	for _, g := range d.Groups {
		if g.Has(id) {
			return g, true
		}
	}
	return Group{}, false
}

// AssetByID returns the stash asset with id.
func (d Document) AssetByID(id string) (Asset, int, bool) {
	for i, a := range d.Stash {
		if a.ID == id {
			return a, i, true
		}
	}
	return Asset{}, -1, false
}

// LayerIDs returns the ids of all live layers (images, texts, shapes) without the sentinel.
func (d Document) LayerIDs() []string {
	out := make([]string, 0, len(d.ImageLayers)+len(d.Texts)+len(d.Shapes))
	for _, l := range d.ImageLayers {
		out = append(out, l.ID)
	}
	for _, l := range d.Texts {
		out = append(out, l.ID)
	}
	for _, l := range d.Shapes {
		out = append(out, l.ID)
	}
	return out
}

// IndexInOrder returns the z-index of id or -1.
func (d Document) IndexInOrder(id string) int { return slices.Index(d.LayerOrder, id) }

// UpdateEntity replaces the common fields of the entity behind id using fn.
// Only the slice holding that entity is copied.
func (d Document) UpdateEntity(id string, fn func(Layer) Layer) (Document, bool) {
	e, kind, ok := d.Resolve(id)
	if !ok || kind == KindGlobalFX {
		return d, false
	}
	return d.ReplaceEntity(e.WithBase(fn(e.Base()))), true
}

// ReplaceEntity stores e in place of the entity with the same id.
func (d Document) ReplaceEntity(e Entity) Document {
	id := e.Base().ID
	switch v := e.(type) {
	case ImageLayer:
		if i := slices.IndexFunc(d.ImageLayers, func(l ImageLayer) bool { return l.ID == id }); i >= 0 {
			d.ImageLayers = slices.Clone(d.ImageLayers)
			d.ImageLayers[i] = v
		}
	case TextLayer:
		if i := slices.IndexFunc(d.Texts, func(l TextLayer) bool { return l.ID == id }); i >= 0 {
			d.Texts = slices.Clone(d.Texts)
			d.Texts[i] = v
		}
	case ShapeLayer:
		if i := slices.IndexFunc(d.Shapes, func(l ShapeLayer) bool { return l.ID == id }); i >= 0 {
			d.Shapes = slices.Clone(d.Shapes)
			d.Shapes[i] = v
		}
	}
	return d
}

// AddEntity appends e to the collection of its kind. It does not touch LayerOrder.
func (d Document) AddEntity(e Entity) Document {
	switch v := e.(type) {
	case ImageLayer:
		d.ImageLayers = append(slices.Clip(d.ImageLayers), v)
	case TextLayer:
		d.Texts = append(slices.Clip(d.Texts), v)
	case ShapeLayer:
		d.Shapes = append(slices.Clip(d.Shapes), v)
	}
	return d
}

// RemoveEntity drops the entity with id from its collection. It does not touch LayerOrder.
func (d Document) RemoveEntity(id string) Document {
	_, kind, ok := d.Resolve(id)
	if !ok {
		return d
	}
	switch kind {
	case KindImage:
		d.ImageLayers = slices.DeleteFunc(slices.Clone(d.ImageLayers), func(l ImageLayer) bool { return l.ID == id })
	case KindText:
		d.Texts = slices.DeleteFunc(slices.Clone(d.Texts), func(l TextLayer) bool { return l.ID == id })
	case KindShape:
		d.Shapes = slices.DeleteFunc(slices.Clone(d.Shapes), func(l ShapeLayer) bool { return l.ID == id })
	}
	return d
}

// Description is what a layer list shows for one row.
type Description struct {
	Icon string
	Name string
	Kind Kind
}

// Describe dispatches on the layer variant. A nil entity describes the global-fx sentinel.
func Describe(e Entity) Description {
	if e == nil {
		return Description{Icon: "sparkles", Name: "Global FX", Kind: KindGlobalFX}
	}
	name := strings.TrimSpace(e.Base().Name)
	switch v := e.(type) {
	case ImageLayer:
		if name == "" {
			name = "Image"
		}
		return Description{Icon: "image", Name: name, Kind: KindImage}
	case TextLayer:
		if name == "" {
			name = truncate(strings.TrimSpace(v.Text), 24)
		}
		if name == "" {
			name = "Text"
		}
		return Description{Icon: "type", Name: name, Kind: KindText}
	case ShapeLayer:
		if name == "" && v.Shape != "" {
			name = strings.ToUpper(string(v.Shape[:1])) + string(v.Shape[1:])
		}
		if name == "" {
			name = "Shape"
		}
		return Description{Icon: "shapes", Name: name, Kind: KindShape}
	}
	return Description{Icon: "layers", Name: name}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
