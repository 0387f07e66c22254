/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package raster

import (
	"image"
	"image/color"
	"testing"

	"canvasstudio/internal/domain"
)

func solidDataURL(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	src, err := EncodePNGDataURL(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return src
}

func TestDataURLRoundTrip(t *testing.T) {
	src := solidDataURL(t, 3, 2, color.NRGBA{R: 255, A: 255})
	img, err := DecodeDataURL(src)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	if w, h, err := Bounds(src); err != nil || w != 3 || h != 2 {
		t.Fatalf("Bounds = %d %d %v", w, h, err)
	}
	if _, err := DecodeDataURL("https://example.com/a.png"); err == nil {
		t.Fatalf("remote url accepted")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":      {255, 255, 255, 255},
		"#102030":   {0x10, 0x20, 0x30, 255},
		"#ffffff22": {255, 255, 255, 0x22},
	}
	for in, want := range cases {
		if got := ParseColor(in, color.Black); got != want {
			t.Fatalf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
	if got := ParseColor("tomato", color.Black); got != color.Black {
		t.Fatalf("named colors are not supported, got %v", got)
	}
}

func TestRenderDrawsLayersInOrder(t *testing.T) {
	d := domain.NewDocument("r", 40, 20)
	d.Texts = []domain.TextLayer{}
	d.Canvas.Background.Color = "#0000ff"
	red := domain.ImageLayer{Layer: domain.Layer{ID: "red", X: 0, Y: 0, Width: 20, Height: 20, Opacity: 1}, Src: solidDataURL(t, 4, 4, color.NRGBA{R: 255, A: 255})}
	green := domain.ImageLayer{Layer: domain.Layer{ID: "green", X: 10, Y: 0, Width: 20, Height: 20, Opacity: 1}, Src: solidDataURL(t, 4, 4, color.NRGBA{G: 255, A: 255})}
	d = d.AddEntity(red).AddEntity(green)
	d.LayerOrder = []string{domain.GlobalFXID, "red", "green"}

	img, err := Compositor{}.Render(d)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c := img.NRGBAAt(5, 10); c.R < 250 || c.G > 5 {
		t.Fatalf("red area = %v", c)
	}
	if c := img.NRGBAAt(15, 10); c.G < 250 || c.R > 5 {
		t.Fatalf("overlap should show the upper layer, got %v", c)
	}
	if c := img.NRGBAAt(35, 10); c.B < 250 {
		t.Fatalf("background = %v", c)
	}

	d.ImageLayers[1].Hidden = true
	img, _ = Compositor{}.Render(d)
	if c := img.NRGBAAt(15, 10); c.R < 250 {
		t.Fatalf("hidden layer drawn: %v", c)
	}
}

func TestRenderLayersCropsToBox(t *testing.T) {
	d := domain.NewDocument("r", 100, 100)
	a := domain.ShapeLayer{Layer: domain.Layer{ID: "a", X: 10, Y: 20, Width: 10, Height: 10, Opacity: 1}, Shape: domain.ShapeRect, Fill: "#ff0000"}
	b := domain.ShapeLayer{Layer: domain.Layer{ID: "b", X: 30, Y: 25, Width: 10, Height: 15, Opacity: 1}, Shape: domain.ShapeEllipse, Fill: "#00ff00"}
	d = d.AddEntity(a).AddEntity(b)
	d.LayerOrder = append(d.LayerOrder, "a", "b")

	img, box, err := Compositor{}.RenderLayers(d, []string{"b", "a"})
	if err != nil {
		t.Fatalf("RenderLayers: %v", err)
	}
	if box.X != 10 || box.Y != 20 || box.Width != 30 || box.Height != 20 {
		t.Fatalf("box = %+v", box)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Fatalf("image bounds = %v", img.Bounds())
	}
	if c := img.NRGBAAt(5, 5); c.R < 250 || c.A < 250 {
		t.Fatalf("first member missing: %v", c)
	}
	if c := img.NRGBAAt(15, 2); c.A != 0 {
		t.Fatalf("gap should be transparent: %v", c)
	}
}

func TestApplyEffectsIdentityKeepsPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 120, G: 60, B: 30, A: 255})
	ApplyEffects(img, domain.IdentityEffects().Resolved())
	if c := img.NRGBAAt(0, 0); c != (color.NRGBA{R: 120, G: 60, B: 30, A: 255}) {
		t.Fatalf("identity changed pixel: %v", c)
	}
	ApplyEffects(img, domain.IdentityEffects().With(domain.FxInvert, 1).Resolved())
	if c := img.NRGBAAt(0, 0); c.R != 135 {
		t.Fatalf("invert = %v", c)
	}
}
