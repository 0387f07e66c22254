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
	"math"

	"canvasstudio/internal/domain"
)

// ApplyEffects runs the colour part of the effect pipeline over img in place.
// Spatial effects (blur, warp, grain, vignette) are preview-only and skipped here.
func ApplyEffects(img *image.NRGBA, v domain.EffectValues) {
	exposure := math.Pow(2, v.Exposure/100)
	temp := v.Temperature / 100 * 0.15
	tint := v.Tint / 100 * 0.1
	for i := 0; i+3 < len(img.Pix); i += 4 {
		r := float64(img.Pix[i]) / 255
		g := float64(img.Pix[i+1]) / 255
		b := float64(img.Pix[i+2]) / 255

		r, g, b = r*v.Brightness*exposure, g*v.Brightness*exposure, b*v.Brightness*exposure
		r, g, b = (r-0.5)*v.Contrast+0.5, (g-0.5)*v.Contrast+0.5, (b-0.5)*v.Contrast+0.5
		r, b = r+temp, b-temp
		g -= tint

		lum := 0.2126*r + 0.7152*g + 0.0722*b
		r, g, b = lum+(r-lum)*v.Saturate, lum+(g-lum)*v.Saturate, lum+(b-lum)*v.Saturate

		if v.Grayscale > 0 {
			lum = 0.2126*r + 0.7152*g + 0.0722*b
			r, g, b = mix(r, lum, v.Grayscale), mix(g, lum, v.Grayscale), mix(b, lum, v.Grayscale)
		}
		if v.Sepia > 0 {
			sr := 0.393*r + 0.769*g + 0.189*b
			sg := 0.349*r + 0.686*g + 0.168*b
			sb := 0.272*r + 0.534*g + 0.131*b
			r, g, b = mix(r, sr, v.Sepia), mix(g, sg, v.Sepia), mix(b, sb, v.Sepia)
		}
		if v.Invert > 0 {
			r, g, b = mix(r, 1-r, v.Invert), mix(g, 1-g, v.Invert), mix(b, 1-b, v.Invert)
		}

		img.Pix[i] = clamp8(r)
		img.Pix[i+1] = clamp8(g)
		img.Pix[i+2] = clamp8(b)
	}
}

// MultiplyAlpha scales the alpha channel of img by f in place.
func MultiplyAlpha(img *image.NRGBA, f float64) {
	if f >= 1 {
		return
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = clamp8(float64(img.Pix[i]) / 255 * f)
	}
}

func mix(a, b, t float64) float64 { return a + (b-a)*t }

func clamp8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
