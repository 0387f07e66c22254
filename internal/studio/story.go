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
	"errors"
	"log/slog"
	"strings"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/scene"
)

// ScenePlan describes one scene of a story campaign.
type ScenePlan struct {
	Title  string
	Script string
	Prompt string
}

// StoryFlow generates one image per story scene, sequentially. Scenes already done are
// skipped, so a stopped or partly failed campaign resumes where it left off.
type StoryFlow struct {
	svc    aigen.Service
	ed     *editor.Editor
	aspect aigen.AspectRatio
	events EventFunc
	log    *slog.Logger

	units units
	guard guard
}

func NewStoryFlow(svc aigen.Service, ed *editor.Editor, aspect aigen.AspectRatio, events EventFunc) *StoryFlow {
	if !aspect.Valid() {
		aspect = aigen.Landscape
	}
	return &StoryFlow{
		svc:    svc,
		ed:     ed,
		aspect: aspect,
		events: events,
		log:    applog.WithComponent("studio").With(slog.String("flow", "story")),
	}
}

// Plan appends scenes in order and returns their ids.
func (f *StoryFlow) Plan(plans []ScenePlan) ([]string, error) {
	ids := make([]string, len(plans))
	for i, p := range plans {
		if strings.TrimSpace(p.Prompt) == "" && strings.TrimSpace(p.Script) == "" {
			return nil, scene.ErrValidation
		}
		ids[i] = domain.NewID()
	}
	err := f.ed.Apply(func(d domain.Document) (domain.Document, error) {
		next := append([]domain.StoryScene(nil), d.Scenes...)
		for i, p := range plans {
			next = append(next, domain.StoryScene{
				ID: ids[i], Index: len(next), Title: p.Title, Script: p.Script, Prompt: p.Prompt,
				Status: domain.StatusIdle,
			})
		}
		d.Scenes = next
		return d, nil
	}, true)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Status is the live status of a scene: generating while a submission is in flight,
// otherwise the committed status.
func (f *StoryFlow) Status(id string) domain.GenStatus {
	if st := f.units.get(id).State(); st.Status == domain.StatusGenerating {
		return st.Status
	}
	for _, s := range f.ed.Document().Scenes {
		if s.ID == id {
			return s.Status
		}
	}
	return domain.StatusIdle
}

// Stop discards every in-flight scene and ends a running batch before its next commit.
func (f *StoryFlow) Stop() {
	f.guard.stop()
	f.units.stopAll()
}

// Generate runs one scene and surfaces its error.
func (f *StoryFlow) Generate(ctx context.Context, sceneID string) error {
	for _, s := range f.ed.Document().Scenes {
		if s.ID == sceneID {
			return f.run(ctx, s, f.guard.epoch.Load())
		}
	}
	return domain.ErrNotFound
}

// RunAll submits every scene not yet done, in index order. A failing scene is marked
// and skipped; Stop or ctx cancellation ends the batch without committing the scene in flight.
func (f *StoryFlow) RunAll(ctx context.Context) (Report, error) {
	var rep Report
	epoch, ok := f.guard.start()
	if !ok {
		return rep, ErrBusy
	}
	defer f.guard.done()

	todo, skipped := pending(f.ed.Document().Scenes,
		func(s domain.StoryScene) int { return s.Index },
		func(s domain.StoryScene) bool { return s.Status == domain.StatusDone })
	for _, s := range skipped {
		rep.Skipped = append(rep.Skipped, s.ID)
	}
	for _, s := range todo {
		if ctx.Err() != nil || !f.guard.live(epoch) {
			rep.Stopped = true
			break
		}
		rep.Submitted = append(rep.Submitted, s.ID)
		err := f.run(ctx, s, epoch)
		switch {
		case errors.Is(err, ErrStopped):
			rep.Stopped = true
		case err != nil:
			rep.Failed = append(rep.Failed, s.ID)
			f.log.Warn("scene failed, continuing", slog.String("scene", s.ID), slog.Any("err", err))
		}
		if rep.Stopped {
			break
		}
	}
	f.log.Info("story batch finished", slog.Int("submitted", len(rep.Submitted)),
		slog.Int("skipped", len(rep.Skipped)), slog.Int("failed", len(rep.Failed)), slog.Bool("stopped", rep.Stopped))
	return rep, nil
}

func (f *StoryFlow) run(ctx context.Context, s domain.StoryScene, epoch uint64) error {
	u := f.units.get(s.ID)
	t, err := u.Begin()
	if err != nil {
		return err
	}
	prompt := s.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = s.Script
	}
	img, callErr := f.svc.GenerateImage(ctx, aigen.ImageRequest{Prompt: prompt, AspectRatio: f.aspect})
	emit(f.events, "story", callErr)

	var asset domain.Asset
	if callErr == nil {
		asset = generatedAsset(img, prompt)
	}
	onDone := func(d domain.Document) (domain.Document, error) {
		d, _ = scene.AddAsset(d, asset)
		return updateScene(d, s.ID, func(sc domain.StoryScene) domain.StoryScene {
			sc.Status, sc.ImageSrc, sc.AssetID, sc.Error = domain.StatusDone, img.Src, asset.ID, ""
			return sc
		})
	}
	onFail := func(d domain.Document) (domain.Document, error) {
		return updateScene(d, s.ID, func(sc domain.StoryScene) domain.StoryScene {
			sc.Status, sc.Error = domain.StatusError, aigen.UserMessage(callErr)
			return sc
		})
	}
	return settle(ctx, f.ed, &f.guard, epoch, u, t, callErr, onDone, onFail)
}
