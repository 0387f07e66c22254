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
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"

	"github.com/fogleman/gg"

	"canvasstudio/internal/domain"
)

// Compositor flattens documents into images.
type Compositor struct {
	// Scale multiplies the output resolution. Zero means 1.
	Scale float64
}

func (c Compositor) scale() float64 {
	if c.Scale <= 0 {
		return 1
	}
	return c.Scale
}

// Render draws the background, every visible layer in z-order and the global effect pass.
func (c Compositor) Render(d domain.Document) (*image.NRGBA, error) {
	s := c.scale()
	w, h := int(math.Round(float64(d.Canvas.Width)*s)), int(math.Round(float64(d.Canvas.Height)*s))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: canvas size %dx%d", d.Canvas.Width, d.Canvas.Height)
	}
	dc := gg.NewContext(w, h)
	if err := c.drawBackground(dc, d.Canvas); err != nil {
		return nil, err
	}
	for _, id := range d.LayerOrder {
		if err := c.drawLayer(dc, d, id, 0, 0); err != nil {
			return nil, err
		}
	}
	out := toNRGBA(dc.Image())
	if d.Canvas.EffectsEnabled && !d.Canvas.Effects.IsIdentity() {
		ApplyEffects(out, d.Canvas.Effects.Resolved())
	}
	return out, nil
}

// RenderLayers composites only ids, bottom to top by LayerOrder, on a transparent
// surface cropped to their joint bounding box. It returns the image and the box in
// canvas space, ready to become the merged layer.
func (c Compositor) RenderLayers(d domain.Document, ids []string) (*image.NRGBA, domain.Layer, error) {
	var box domain.Layer
	minX, minY, maxX, maxY := math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, id := range ids {
		e, _, ok := d.Resolve(id)
		if !ok || e == nil {
			return nil, box, fmt.Errorf("render layers: %q: %w", id, domain.ErrNotFound)
		}
		x0, y0, x1, y1 := rotatedBounds(e.Base())
		minX, minY = math.Min(minX, x0), math.Min(minY, y0)
		maxX, maxY = math.Max(maxX, x1), math.Max(maxY, y1)
	}
	if len(ids) == 0 || maxX <= minX || maxY <= minY {
		return nil, box, errors.New("render layers: empty selection")
	}
	s := c.scale()
	dc := gg.NewContext(int(math.Ceil((maxX-minX)*s)), int(math.Ceil((maxY-minY)*s)))
	for _, id := range d.LayerOrder {
		if !slices.Contains(ids, id) {
			continue
		}
		if err := c.drawLayer(dc, d, id, minX, minY); err != nil {
			return nil, box, err
		}
	}
	box = domain.Layer{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY, Opacity: 1}
	return toNRGBA(dc.Image()), box, nil
}

func (c Compositor) drawLayer(dc *gg.Context, d domain.Document, id string, ox, oy float64) error {
	e, kind, ok := d.Resolve(id)
	if !ok {
		return fmt.Errorf("draw layer %q: %w", id, domain.ErrNotFound)
	}
	if kind == domain.KindGlobalFX {
		return nil
	}
	b := e.Base()
	if b.Hidden || b.Opacity <= 0 {
		return nil
	}
	s := c.scale()
	w, h := int(math.Round(b.Width*s)), int(math.Round(b.Height*s))
	if w <= 0 || h <= 0 {
		return nil
	}
	var (
		px  *image.NRGBA
		err error
	)
	switch v := e.(type) {
	case domain.ImageLayer:
		px, err = renderImage(v, w, h)
	case domain.TextLayer:
		px, err = renderText(v, w, h, s)
	case domain.ShapeLayer:
		px = renderShape(v, w, h, s)
	}
	if err != nil {
		return fmt.Errorf("draw layer %q: %w", id, err)
	}
	if b.EffectsEnabled && !b.Effects.IsIdentity() {
		ApplyEffects(px, b.Effects.Resolved())
	}
	MultiplyAlpha(px, b.Opacity)

	x, y := (b.X-ox)*s, (b.Y-oy)*s
	dc.Push()
	dc.RotateAbout(gg.Radians(b.Rotation), x+float64(w)/2, y+float64(h)/2)
	dc.DrawImage(px, int(math.Round(x)), int(math.Round(y)))
	dc.Pop()
	return nil
}

func renderImage(l domain.ImageLayer, w, h int) (*image.NRGBA, error) {
	src, err := DecodeDataURL(l.Src)
	if err != nil {
		return nil, err
	}
	px := Scale(src, w, h)
	if l.FlipX || l.FlipY {
		px = flip(px, l.FlipX, l.FlipY)
	}
	if l.Mask != nil && l.Mask.Enabled && l.Mask.MatteSrc != "" {
		if err := applyMatte(px, *l.Mask); err != nil {
			return nil, err
		}
	}
	return px, nil
}

var textAlign = map[string]gg.Align{"left": gg.AlignLeft, "center": gg.AlignCenter, "right": gg.AlignRight}

func renderText(l domain.TextLayer, w, h int, s float64) (*image.NRGBA, error) {
	face, err := Face(max(l.FontSize, 1)*s, l.FontWeight)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(w, h)
	dc.SetFontFace(face)
	dc.SetColor(ParseColor(l.Color, color.White))
	lineHeight := l.LineHeight
	if lineHeight <= 0 {
		lineHeight = 1.2
	}
	dc.DrawStringWrapped(l.Text, 0, 0, 0, 0, float64(w), lineHeight, textAlign[l.Align])
	return toNRGBA(dc.Image()), nil
}

func renderShape(l domain.ShapeLayer, w, h int, s float64) *image.NRGBA {
	dc := gg.NewContext(w, h)
	sw := l.StrokeWidth * s
	fw, fh := float64(w), float64(h)
	switch l.Shape {
	case domain.ShapeEllipse:
		dc.DrawEllipse(fw/2, fh/2, fw/2-sw/2, fh/2-sw/2)
	case domain.ShapeTriangle:
		dc.MoveTo(fw/2, sw/2)
		dc.LineTo(fw-sw/2, fh-sw/2)
		dc.LineTo(sw/2, fh-sw/2)
		dc.ClosePath()
	case domain.ShapeStar:
		for i := 0; i < 10; i++ {
			r := 0.5
			if i%2 == 1 {
				r = 0.2
			}
			a := -math.Pi/2 + float64(i)*math.Pi/5
			dc.LineTo(fw/2+math.Cos(a)*r*(fw-sw), fh/2+math.Sin(a)*r*(fh-sw))
		}
		dc.ClosePath()
	case domain.ShapeLine:
		dc.DrawLine(0, fh/2, fw, fh/2)
		dc.SetColor(ParseColor(l.Stroke, ParseColor(l.Fill, color.White)))
		dc.SetLineWidth(max(sw, 1))
		dc.Stroke()
		return toNRGBA(dc.Image())
	default:
		if l.CornerRadius > 0 {
			dc.DrawRoundedRectangle(sw/2, sw/2, fw-sw, fh-sw, l.CornerRadius*s)
		} else {
			dc.DrawRectangle(sw/2, sw/2, fw-sw, fh-sw)
		}
	}
	dc.SetColor(ParseColor(l.Fill, color.Transparent))
	dc.FillPreserve()
	if sw > 0 {
		dc.SetColor(ParseColor(l.Stroke, color.Black))
		dc.SetLineWidth(sw)
		dc.Stroke()
	}
	dc.ClearPath()
	return toNRGBA(dc.Image())
}

// applyMatte multiplies px alpha by the matte luminance. The matte is scaled and
// offset inside the layer box; the area it no longer covers takes its corner value.
func applyMatte(px *image.NRGBA, m domain.Mask) error {
	matte, err := DecodeDataURL(m.MatteSrc)
	if err != nil {
		return fmt.Errorf("matte: %w", err)
	}
	w, h := px.Bounds().Dx(), px.Bounds().Dy()
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	mc := gg.NewContext(w, h)
	mb := matte.Bounds()
	mc.SetColor(matte.At(mb.Min.X, mb.Min.Y))
	mc.Clear()
	sized := Scale(matte, int(float64(w)*scale), int(float64(h)*scale))
	mc.DrawImageAnchored(sized, int(float64(w)/2+m.OffsetX), int(float64(h)/2+m.OffsetY), 0.5, 0.5)
	lum := toNRGBA(mc.Image())
	for i := 0; i+3 < len(px.Pix); i += 4 {
		l := (0.2126*float64(lum.Pix[i]) + 0.7152*float64(lum.Pix[i+1]) + 0.0722*float64(lum.Pix[i+2])) / 255
		px.Pix[i+3] = clamp8(float64(px.Pix[i+3]) / 255 * l)
	}
	return nil
}

func (c Compositor) drawBackground(dc *gg.Context, cv domain.Canvas) error {
	bg := cv.Background
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetColor(ParseColor(bg.Color, color.Black))
	dc.Clear()
	switch bg.Mode {
	case domain.BackgroundGradient:
		from, to := ParseColor(bg.Gradient.From, color.Black), ParseColor(bg.Gradient.To, color.White)
		var grad gg.Gradient
		if bg.Gradient.Kind == "radial" {
			grad = gg.NewRadialGradient(w/2, h/2, 0, w/2, h/2, math.Max(w, h)/2)
		} else {
			a := gg.Radians(bg.Gradient.Angle - 90)
			dx, dy := math.Cos(a)*w/2, math.Sin(a)*h/2
			grad = gg.NewLinearGradient(w/2-dx, h/2-dy, w/2+dx, h/2+dy)
		}
		grad.AddColorStop(0, from)
		grad.AddColorStop(1, to)
		dc.SetFillStyle(grad)
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	case domain.BackgroundImage:
		if bg.Image.Src == "" {
			return nil
		}
		src, err := DecodeDataURL(bg.Image.Src)
		if err != nil {
			return fmt.Errorf("background: %w", err)
		}
		sb := src.Bounds()
		k := math.Max(w/float64(sb.Dx()), h/float64(sb.Dy()))
		if bg.Image.Fit == "contain" {
			k = math.Min(w/float64(sb.Dx()), h/float64(sb.Dy()))
		}
		px := Scale(src, int(float64(sb.Dx())*k), int(float64(sb.Dy())*k))
		MultiplyAlpha(px, bg.Image.Opacity)
		dc.DrawImageAnchored(px, int(w/2), int(h/2), 0.5, 0.5)
	case domain.BackgroundPattern:
		step := 24 * math.Max(bg.Pattern.Scale, 0.1) * c.scale()
		dc.SetColor(ParseColor(bg.Pattern.Color, color.White))
		switch bg.Pattern.Kind {
		case "grid":
			dc.SetLineWidth(1)
			for x := 0.0; x < w; x += step {
				dc.DrawLine(x, 0, x, h)
			}
			for y := 0.0; y < h; y += step {
				dc.DrawLine(0, y, w, y)
			}
			dc.Stroke()
		case "stripes":
			dc.SetLineWidth(step / 4)
			for x := -h; x < w; x += step {
				dc.DrawLine(x, h, x+h, 0)
			}
			dc.Stroke()
		default:
			for y := step / 2; y < h; y += step {
				for x := step / 2; x < w; x += step {
					dc.DrawCircle(x, y, step/10)
				}
			}
			dc.Fill()
		}
	}
	return nil
}

// rotatedBounds is the axis-aligned box of a layer after rotation about its centre.
func rotatedBounds(b domain.Layer) (x0, y0, x1, y1 float64) {
	cx, cy := b.X+b.Width/2, b.Y+b.Height/2
	a := gg.Radians(b.Rotation)
	hw := (math.Abs(b.Width*math.Cos(a)) + math.Abs(b.Height*math.Sin(a))) / 2
	hh := (math.Abs(b.Width*math.Sin(a)) + math.Abs(b.Height*math.Cos(a))) / 2
	return cx - hw, cy - hh, cx + hw, cy + hh
}

func flip(src *image.NRGBA, fx, fy bool) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sx, sy := x, y
			if fx {
				sx = b.Max.X - 1 - (x - b.Min.X)
			}
			if fy {
				sy = b.Max.Y - 1 - (y - b.Min.Y)
			}
			dst.SetNRGBA(x, y, src.NRGBAAt(sx, sy))
		}
	}
	return dst
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
