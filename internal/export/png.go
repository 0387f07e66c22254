/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes the flattened canvas of a document to image and print formats.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/fogleman/gg"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/raster"
)

// Options controls raster export.
// Scale multiplies the canvas size in pixels; zero means 1.
// IncludeGuides draws the safe-area hairline on top of the image when the canvas has one.
type Options struct {
	Scale         float64
	IncludeGuides bool
	GuideColor    color.Color
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// Flatten renders doc at the option scale, guides included when requested.
func Flatten(doc domain.Document, opt Options) (image.Image, error) {
	img, err := raster.Compositor{Scale: opt.scale()}.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if !opt.IncludeGuides || doc.Canvas.SafeArea <= 0 {
		return img, nil
	}
	dc := gg.NewContextForImage(img)
	guide := opt.GuideColor
	if guide == nil {
		guide = color.NRGBA{R: 255, A: 255}
	}
	dc.SetColor(guide)
	dc.SetLineWidth(1)
	w, h := float64(dc.Width()), float64(dc.Height())
	inset := doc.Canvas.SafeArea * opt.scale()
	dc.DrawRectangle(inset, inset, w-2*inset, h-2*inset)
	dc.Stroke()
	return dc.Image(), nil
}

// PNG writes the flattened canvas as PNG.
func PNG(doc domain.Document, w io.Writer, opt Options) error {
	img, err := Flatten(doc, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
