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
	"canvasstudio/internal/domain"
)

// MaxCanvasSide bounds canvas dimensions.
const MaxCanvasSide = 8192

// ResizeCanvas changes the canvas size. Layers keep their canvas-space geometry.
func ResizeCanvas(d domain.Document, width, height int) (domain.Document, error) {
	if width <= 0 || height <= 0 || width > MaxCanvasSide || height > MaxCanvasSide {
		return d, invalid("canvas size %dx%d", width, height)
	}
	d.Canvas.Width, d.Canvas.Height = width, height
	return d, nil
}

// SetBackgroundMode switches the active presentation. Settings of the other modes are kept.
func SetBackgroundMode(d domain.Document, mode domain.BackgroundMode) (domain.Document, error) {
	if !mode.Valid() {
		return d, invalid("background mode %q", mode)
	}
	d.Canvas.Background.Mode = mode
	return d, nil
}

// SetBackgroundColor edits the solid setting and makes it active.
func SetBackgroundColor(d domain.Document, color string) (domain.Document, error) {
	if color == "" {
		return d, invalid("empty background color")
	}
	d.Canvas.Background.Color = color
	d.Canvas.Background.Mode = domain.BackgroundSolid
	return d, nil
}

// SetGradient edits the gradient setting and makes it active.
func SetGradient(d domain.Document, g domain.Gradient) (domain.Document, error) {
	if g.Kind != "linear" && g.Kind != "radial" {
		return d, invalid("gradient kind %q", g.Kind)
	}
	d.Canvas.Background.Gradient = g
	d.Canvas.Background.Mode = domain.BackgroundGradient
	return d, nil
}

// SetBackdropImage edits the image setting and makes it active.
func SetBackdropImage(d domain.Document, img domain.BackdropImage) (domain.Document, error) {
	if !domain.Finite(img.Opacity) || img.Opacity < 0 || img.Opacity > 1 {
		return d, invalid("backdrop opacity %g", img.Opacity)
	}
	if img.Fit == "" {
		img.Fit = "cover"
	}
	d.Canvas.Background.Image = img
	d.Canvas.Background.Mode = domain.BackgroundImage
	return d, nil
}

// SetPattern edits the pattern setting and makes it active.
func SetPattern(d domain.Document, p domain.Pattern) (domain.Document, error) {
	if !domain.Finite(p.Scale) || p.Scale <= 0 {
		return d, invalid("pattern scale %g", p.Scale)
	}
	d.Canvas.Background.Pattern = p
	d.Canvas.Background.Mode = domain.BackgroundPattern
	return d, nil
}

// SetOverlays toggles guides and rulers and sets the safe-area inset in pixels.
func SetOverlays(d domain.Document, guides, rulers bool, safeArea float64) (domain.Document, error) {
	if !domain.Finite(safeArea) || safeArea < 0 || safeArea*2 >= float64(min(d.Canvas.Width, d.Canvas.Height)) {
		return d, invalid("safe area %g", safeArea)
	}
	d.Canvas.ShowGuides, d.Canvas.ShowRulers, d.Canvas.SafeArea = guides, rulers, safeArea
	return d, nil
}
