/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package studio

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/raster"
	"canvasstudio/internal/scene"
)

// DefaultVariants is the number of images generated per request.
const DefaultVariants = 4

func failureKind(err error) string { return aigen.Classify(err).String() }

// ImageStudio generates N variants of one prompt in parallel. The variants become
// visible together, after every call resolved, and land in the stash buffer in one commit.
type ImageStudio struct {
	svc      aigen.Service
	ed       *editor.Editor
	variants int
	events   EventFunc
	log      *slog.Logger

	unit    *Unit
	results atomic.Pointer[[]aigen.Image]
}

func NewImageStudio(svc aigen.Service, ed *editor.Editor, variants int, events EventFunc) *ImageStudio {
	if variants <= 0 {
		variants = DefaultVariants
	}
	return &ImageStudio{
		svc:      svc,
		ed:       ed,
		variants: variants,
		events:   events,
		log:      applog.WithComponent("studio").With(slog.String("flow", "image")),
		unit:     NewUnit("image-studio"),
	}
}

// CurrentResults returns the last complete batch. It never exposes a partial batch.
func (s *ImageStudio) CurrentResults() []aigen.Image {
	if p := s.results.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *ImageStudio) State() UnitState { return s.unit.State() }

// Stop discards the batch in flight.
func (s *ImageStudio) Stop() { s.unit.Stop() }

// Generate runs the batch and returns the ids of the stashed assets. Any failing
// variant fails the whole batch; the error is surfaced to the caller.
func (s *ImageStudio) Generate(ctx context.Context, req aigen.ImageRequest) ([]string, error) {
	if req.Prompt == "" {
		return nil, scene.ErrValidation
	}
	t, err := s.unit.Begin()
	if err != nil {
		return nil, err
	}
	req.References = slices.Clone(req.References)
	if req.AspectRatio == "" {
		req.AspectRatio = aigen.Square
	}

	out := make([]aigen.Image, s.variants)
	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			img, err := s.svc.GenerateImage(gctx, req)
			if err != nil {
				return err
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.unit.Fail(t, err) {
			s.log.Warn("image batch failed", slog.Any("err", err))
			emit(s.events, "image", err)
			return nil, err
		}
		return nil, ErrStopped
	}
	if !s.unit.Finish(t) {
		s.log.Info("image batch discarded after stop")
		return nil, ErrStopped
	}
	s.results.Store(&out)
	emit(s.events, "image", nil)

	assets := make([]domain.Asset, len(out))
	ids := make([]string, len(out))
	for i, img := range out {
		assets[i] = generatedAsset(img, req.Prompt)
		ids[i] = assets[i].ID
	}
	err = s.ed.Apply(func(d domain.Document) (domain.Document, error) {
		for _, a := range assets {
			d, _ = scene.AddAsset(d, a)
		}
		return d, nil
	}, true)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func generatedAsset(img aigen.Image, prompt string) domain.Asset {
	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 {
		if bw, bh, err := raster.Bounds(img.Src); err == nil {
			w, h = bw, bh
		}
	}
	return domain.Asset{
		ID:        domain.NewID(),
		Src:       img.Src,
		Name:      truncate(prompt, 40),
		CreatedAt: domain.Now(),
		Width:     w,
		Height:    h,
		Source:    domain.AssetGenerated,
		Prompt:    prompt,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
