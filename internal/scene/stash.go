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
	"slices"
	"strings"

	"canvasstudio/internal/domain"
)

// CanvasFit is the share of the canvas an asset placed on it may occupy.
const CanvasFit = 0.7

// AddAsset appends a buffer asset to the stash and returns its id.
func AddAsset(d domain.Document, a domain.Asset) (domain.Document, string) {
	if a.ID == "" {
		a.ID = domain.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = domain.Now()
	}
	if a.Source == "" {
		a.Source = domain.AssetUploaded
	}
	a.Backup = false
	d.Stash = append(slices.Clip(d.Stash), a)
	return d, a.ID
}

// PromoteAsset moves a buffer asset to the library. Promotion is one-way.
func PromoteAsset(d domain.Document, id string) (domain.Document, error) {
	a, i, ok := d.AssetByID(id)
	if !ok {
		return d, notFound("asset", id)
	}
	if a.Backup {
		return d, nil
	}
	a.Backup = true
	d.Stash = slices.Clone(d.Stash)
	d.Stash[i] = a
	return d, nil
}

// DiscardAsset removes an asset from the stash. Canvas layers made from it stay.
func DiscardAsset(d domain.Document, id string) (domain.Document, error) {
	_, i, ok := d.AssetByID(id)
	if !ok {
		return d, notFound("asset", id)
	}
	d.Stash = slices.Delete(slices.Clone(d.Stash), i, i+1)
	return d, nil
}

// ClearBuffer discards every asset not promoted to the library.
func ClearBuffer(d domain.Document) domain.Document {
	if !slices.ContainsFunc(d.Stash, func(a domain.Asset) bool { return !a.Backup }) {
		return d
	}
	d.Stash = slices.DeleteFunc(slices.Clone(d.Stash), func(a domain.Asset) bool { return !a.Backup })
	return d
}

// Buffer and Library split the stash by promotion state.
func Buffer(d domain.Document) []domain.Asset {
	return slices.DeleteFunc(slices.Clone(d.Stash), func(a domain.Asset) bool { return a.Backup })
}

func Library(d domain.Document) []domain.Asset {
	return slices.DeleteFunc(slices.Clone(d.Stash), func(a domain.Asset) bool { return !a.Backup })
}

// FitSize scales w x h uniformly so it fits CanvasFit of the canvas in both directions.
// Unknown asset dimensions are treated as square.
func FitSize(c domain.Canvas, w, h int) (float64, float64) {
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	maxW, maxH := float64(c.Width)*CanvasFit, float64(c.Height)*CanvasFit
	s := min(maxW/float64(w), maxH/float64(h))
	return float64(w) * s, float64(h) * s
}

// AddAssetToCanvas creates a centred image layer on top that copies the asset payload.
// The stash is not modified. It returns the new layer id.
func AddAssetToCanvas(d domain.Document, assetID string) (domain.Document, string, error) {
	a, _, ok := d.AssetByID(assetID)
	if !ok {
		return d, "", notFound("asset", assetID)
	}
	w, h := FitSize(d.Canvas, a.Width, a.Height)
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = "Image"
	}
	img := domain.ImageLayer{
		Layer: domain.Layer{
			ID:      domain.NewID(),
			Name:    name,
			X:       (float64(d.Canvas.Width) - w) / 2,
			Y:       (float64(d.Canvas.Height) - h) / 2,
			Width:   w,
			Height:  h,
			Opacity: 1,
		},
		Src:     a.Src,
		AssetID: a.ID,
	}
	return AddLayer(d, img)
}
