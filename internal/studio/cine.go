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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/scene"
)

// DefaultPollInterval is the delay between two polls of a video job.
const DefaultPollInterval = 10 * time.Second

// CineStudio generates video clips. Each clip is a long-running job polled at a
// fixed interval until it finishes, fails, or the user stops it.
type CineStudio struct {
	svc      aigen.Service
	ed       *editor.Editor
	interval time.Duration
	events   EventFunc
	log      *slog.Logger

	units units
	guard guard
}

func NewCineStudio(svc aigen.Service, ed *editor.Editor, pollInterval time.Duration, events EventFunc) *CineStudio {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &CineStudio{
		svc:      svc,
		ed:       ed,
		interval: pollInterval,
		events:   events,
		log:      applog.WithComponent("studio").With(slog.String("flow", "cine")),
	}
}

// AddClip appends an idle clip and returns its id.
func (c *CineStudio) AddClip(prompt string, aspect aigen.AspectRatio, resolution string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", scene.ErrValidation)
	}
	if !aspect.Valid() {
		aspect = aigen.Landscape
	}
	if resolution == "" {
		resolution = "720p"
	}
	return c.appendClip(domain.VideoClip{Prompt: prompt, AspectRatio: string(aspect), Resolution: resolution})
}

func (c *CineStudio) appendClip(clip domain.VideoClip) (string, error) {
	clip.ID, clip.Status = domain.NewID(), domain.StatusIdle
	err := c.ed.Apply(func(d domain.Document) (domain.Document, error) {
		clip.Index = len(d.Clips)
		d.Clips = append(append([]domain.VideoClip(nil), d.Clips...), clip)
		return d, nil
	}, true)
	return clip.ID, err
}

func (c *CineStudio) clip(id string) (domain.VideoClip, bool) {
	for _, cl := range c.ed.Document().Clips {
		if cl.ID == id {
			return cl, true
		}
	}
	return domain.VideoClip{}, false
}

// Status is the live status of a clip.
func (c *CineStudio) Status(id string) domain.GenStatus {
	if st := c.units.get(id).State(); st.Status == domain.StatusGenerating {
		return st.Status
	}
	cl, _ := c.clip(id)
	if cl.Status == "" {
		return domain.StatusIdle
	}
	return cl.Status
}

func (c *CineStudio) Stop() {
	c.guard.stop()
	c.units.stopAll()
}

// GenerateClip runs one clip and surfaces its error.
func (c *CineStudio) GenerateClip(ctx context.Context, id string) error {
	cl, ok := c.clip(id)
	if !ok {
		return fmt.Errorf("clip %q: %w", id, domain.ErrNotFound)
	}
	return c.run(ctx, cl, c.guard.epoch.Load())
}

// ExtendClip creates a continuation of a finished clip and generates it. The source
// must carry the provider handle; a clip restored without one cannot be extended.
func (c *CineStudio) ExtendClip(ctx context.Context, sourceID, prompt string) (string, error) {
	src, ok := c.clip(sourceID)
	if !ok {
		return "", fmt.Errorf("clip %q: %w", sourceID, domain.ErrNotFound)
	}
	if src.Status != domain.StatusDone || src.Handle == "" {
		return "", fmt.Errorf("%w: clip %q has no continuation handle", scene.ErrValidation, sourceID)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = src.Prompt
	}
	id, err := c.appendClip(domain.VideoClip{
		Prompt: prompt, AspectRatio: src.AspectRatio, Resolution: src.Resolution, ContinuationOf: src.ID,
	})
	if err != nil {
		return "", err
	}
	return id, c.GenerateClip(ctx, id)
}

// RunAll generates every clip not yet done, in index order, skipping failures.
func (c *CineStudio) RunAll(ctx context.Context) (Report, error) {
	var rep Report
	epoch, ok := c.guard.start()
	if !ok {
		return rep, ErrBusy
	}
	defer c.guard.done()

	todo, skipped := pending(c.ed.Document().Clips,
		func(cl domain.VideoClip) int { return cl.Index },
		func(cl domain.VideoClip) bool { return cl.Status == domain.StatusDone })
	for _, cl := range skipped {
		rep.Skipped = append(rep.Skipped, cl.ID)
	}
	for _, cl := range todo {
		if ctx.Err() != nil || !c.guard.live(epoch) {
			rep.Stopped = true
			break
		}
		rep.Submitted = append(rep.Submitted, cl.ID)
		err := c.run(ctx, cl, epoch)
		if errors.Is(err, ErrStopped) {
			rep.Stopped = true
			break
		}
		if err != nil {
			rep.Failed = append(rep.Failed, cl.ID)
			c.log.Warn("clip failed, continuing", slog.String("clip", cl.ID), slog.Any("err", err))
		}
	}
	return rep, nil
}

func (c *CineStudio) request(cl domain.VideoClip) (aigen.VideoRequest, error) {
	req := aigen.VideoRequest{Prompt: cl.Prompt, AspectRatio: aigen.AspectRatio(cl.AspectRatio), Resolution: cl.Resolution}
	if cl.ContinuationOf == "" {
		return req, nil
	}
	src, ok := c.clip(cl.ContinuationOf)
	if !ok || src.Handle == "" {
		return req, fmt.Errorf("%w: continuation source %q has no handle", scene.ErrValidation, cl.ContinuationOf)
	}
	req.ContinuationOf = src.Handle
	return req, nil
}

func (c *CineStudio) run(ctx context.Context, cl domain.VideoClip, epoch uint64) error {
	u := c.units.get(cl.ID)
	t, err := u.Begin()
	if err != nil {
		return err
	}
	var video aigen.Video
	req, callErr := c.request(cl)
	if callErr == nil {
		video, callErr = c.generate(ctx, req, func() bool { return c.guard.live(epoch) && u.State().Status == domain.StatusGenerating })
	}
	if !errors.Is(callErr, ErrStopped) {
		emit(c.events, "video", callErr)
	}

	onDone := func(d domain.Document) (domain.Document, error) {
		return updateClip(d, cl.ID, func(v domain.VideoClip) domain.VideoClip {
			v.Status, v.VideoSrc, v.Handle, v.Error = domain.StatusDone, video.Src, video.Handle, ""
			return v
		})
	}
	onFail := func(d domain.Document) (domain.Document, error) {
		return updateClip(d, cl.ID, func(v domain.VideoClip) domain.VideoClip {
			v.Status, v.Error = domain.StatusError, aigen.UserMessage(callErr)
			return v
		})
	}
	if errors.Is(callErr, ErrStopped) {
		u.Stop()
		return ErrStopped
	}
	return settle(ctx, c.ed, &c.guard, epoch, u, t, callErr, onDone, onFail)
}

// generate starts the job and polls it on a ticker. A poll failure ends the wait with
// that error; there is no retry limit otherwise.
func (c *CineStudio) generate(ctx context.Context, req aigen.VideoRequest, live func() bool) (aigen.Video, error) {
	job, err := c.svc.GenerateVideo(ctx, req)
	if err != nil {
		return aigen.Video{}, err
	}
	l := c.log.With(slog.String("job", job.ID()))
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for polls := 1; ; polls++ {
		res, err := job.Poll(ctx)
		if err != nil {
			l.Warn("poll failed", slog.Int("poll", polls), slog.Any("err", err))
			return aigen.Video{}, err
		}
		if res.Done {
			if res.Err != nil {
				return aigen.Video{}, res.Err
			}
			if res.Video == nil {
				return aigen.Video{}, fmt.Errorf("%w: job finished without video", aigen.ErrGeneration)
			}
			l.Debug("job done", slog.Int("polls", polls))
			return *res.Video, nil
		}
		select {
		case <-ctx.Done():
			return aigen.Video{}, ctx.Err()
		case <-ticker.C:
		}
		if !live() {
			return aigen.Video{}, ErrStopped
		}
	}
}
