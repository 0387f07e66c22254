/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package matte renders the opacity mattes of image masks. A matte is a luminance
// PNG: white keeps the layer, black hides it.
package matte

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/raster"
)

// DefaultSize is the matte resolution used when none is configured.
const DefaultSize = 512

// Matte is a rendered mask resource. ID is unique per render.
type Matte struct {
	ID  string
	Src string
}

// Generator renders mattes at a fixed square resolution.
type Generator struct {
	Size int
}

// Render satisfies the mask callbacks of the scene package.
func (g Generator) Render(t domain.MaskType, feather float64, inverted bool) (string, string, error) {
	m, err := Generate(t, feather, inverted, g.Size)
	return m.ID, m.Src, err
}

// Generate renders the matte for type t. feather (0..100) softens the edge of the
// shape types and widens the transition band around 50% for the gradient types.
// inverted swaps opaque and transparent regions. Every call gets a fresh id.
func Generate(t domain.MaskType, feather float64, inverted bool, size int) (Matte, error) {
	if !t.Valid() {
		return Matte{}, fmt.Errorf("matte: unknown mask type %q", t)
	}
	if size <= 0 {
		size = DefaultSize
	}
	feather = math.Max(0, math.Min(100, feather))
	in, out := color.White, color.Black
	if inverted {
		in, out = out, in
	}

	dc := gg.NewContext(size, size)
	s := float64(size)
	if t.IsGradient() {
		band := math.Max(feather/100, 0.01) / 2
		var grad gg.Gradient
		if t == domain.MaskLinearGradient {
			grad = gg.NewLinearGradient(0, 0, 0, s)
		} else {
			grad = gg.NewRadialGradient(s/2, s/2, 0, s/2, s/2, s/2)
		}
		grad.AddColorStop(0, in)
		grad.AddColorStop(0.5-band, in)
		grad.AddColorStop(0.5+band, out)
		grad.AddColorStop(1, out)
		dc.SetFillStyle(grad)
		dc.DrawRectangle(0, 0, s, s)
		dc.Fill()
	} else {
		dc.SetColor(out)
		dc.Clear()
		// The feather band is drawn as nested shapes stepping from the outer colour to
		// the inner one.
		band := feather / 100 * s / 4
		steps := 1
		if band >= 1 {
			steps = min(int(band), 48)
		}
		for i := 1; i <= steps; i++ {
			inset := band * float64(i-1) / float64(steps)
			dc.SetColor(lerp(out, in, float64(i)/float64(steps)))
			shapePath(dc, t, s, inset)
			dc.Fill()
		}
	}

	src, err := raster.EncodePNGDataURL(dc.Image())
	if err != nil {
		return Matte{}, fmt.Errorf("matte: %w", err)
	}
	return Matte{ID: "matte-" + uuid.NewString(), Src: src}, nil
}

func shapePath(dc *gg.Context, t domain.MaskType, s, inset float64) {
	c := s / 2
	r := c - inset
	switch t {
	case domain.MaskEllipse:
		dc.DrawCircle(c, c, r)
	case domain.MaskRectangle:
		dc.DrawRectangle(inset, inset, s-2*inset, s-2*inset)
	case domain.MaskDiamond:
		dc.DrawRegularPolygon(4, c, c, r, -math.Pi/4)
	case domain.MaskHexagon:
		dc.DrawRegularPolygon(6, c, c, r, 0)
	}
}

func lerp(a, b color.Color, t float64) color.Color {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	f := func(x, y uint32) uint8 { return uint8((float64(x) + (float64(y)-float64(x))*t) / 257) }
	return color.NRGBA{R: f(ar, br), G: f(ag, bg), B: f(ab, bb), A: 255}
}
