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

// Kind tags the variant behind a layer id.
type Kind string

const (
	KindImage    Kind = "image"
	KindText     Kind = "text"
	KindShape    Kind = "shape"
	KindGlobalFX Kind = "global-fx"
)

// Layer holds the fields shared by every positioned layer.
// Locked blocks gestures only; direct API calls still mutate a locked layer.
type Layer struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	X              float64    `json:"x"`
	Y              float64    `json:"y"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	Rotation       float64    `json:"rotation"`
	Opacity        float64    `json:"opacity"`
	Locked         bool       `json:"locked"`
	Hidden         bool       `json:"hidden"`
	Effects        *EffectSet `json:"effects"`
	EffectsEnabled bool       `json:"effectsEnabled"`
}

// Entity is implemented by the three layer variants.
type Entity interface {
	Base() Layer
	Kind() Kind
	// WithBase returns a copy of the entity carrying l as its common fields.
	WithBase(l Layer) Entity
}

type ImageLayer struct {
	Layer
	Src     string `json:"src"`
	AssetID string `json:"assetId"`
	FlipX   bool   `json:"flipX"`
	FlipY   bool   `json:"flipY"`
	Mask    *Mask  `json:"mask"`
}

func (l ImageLayer) Base() Layer { return l.Layer }
func (l ImageLayer) Kind() Kind  { return KindImage }
func (l ImageLayer) WithBase(b Layer) Entity {
	l.Layer = b
	return l
}

type TextLayer struct {
	Layer
	Text          string  `json:"text"`
	FontFamily    string  `json:"fontFamily"`
	FontSize      float64 `json:"fontSize"`
	FontWeight    int     `json:"fontWeight"`
	Color         string  `json:"color"`
	Align         string  `json:"align"`
	LetterSpacing float64 `json:"letterSpacing"`
	LineHeight    float64 `json:"lineHeight"`
}

func (l TextLayer) Base() Layer { return l.Layer }
func (l TextLayer) Kind() Kind  { return KindText }
func (l TextLayer) WithBase(b Layer) Entity {
	l.Layer = b
	return l
}

// ShapeKind is the vector shape vocabulary.
type ShapeKind string

const (
	ShapeRect     ShapeKind = "rect"
	ShapeEllipse  ShapeKind = "ellipse"
	ShapeTriangle ShapeKind = "triangle"
	ShapeStar     ShapeKind = "star"
	ShapeLine     ShapeKind = "line"
)

// Valid reports whether k is one of the drawable shape kinds.
func (k ShapeKind) Valid() bool {
	switch k {
	case ShapeRect, ShapeEllipse, ShapeTriangle, ShapeStar, ShapeLine:
		return true
	}
	return false
}

type ShapeLayer struct {
	Layer
	Shape        ShapeKind `json:"shape"`
	Fill         string    `json:"fill"`
	Stroke       string    `json:"stroke"`
	StrokeWidth  float64   `json:"strokeWidth"`
	CornerRadius float64   `json:"cornerRadius"`
}

func (l ShapeLayer) Base() Layer { return l.Layer }
func (l ShapeLayer) Kind() Kind  { return KindShape }
func (l ShapeLayer) WithBase(b Layer) Entity {
	l.Layer = b
	return l
}

// Group is a logical overlay over existing LayerOrder entries. It owns no geometry.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	LayerIDs  []string `json:"layerIds"`
	Hidden    bool     `json:"hidden"`
	Locked    bool     `json:"locked"`
	Collapsed bool     `json:"collapsed"`
}

// Has reports whether id is a member of g.
func (g Group) Has(id string) bool {
	for _, m := range g.LayerIDs {
		if m == id {
			return true
		}
	}
	return false
}
