/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"
	"time"

	applog "canvasstudio/internal/log"
)

func (e *Editor) markDirty() {
	if e.opts.Saver == nil {
		return
	}
	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

// RunAutosave saves the committed document once commits have been quiet for the
// debounce interval. A failed save is logged and retried on the next tick. It returns
// when ctx is done, after a last flush of pending changes.
func (e *Editor) RunAutosave(ctx context.Context) {
	if e.opts.Saver == nil {
		return
	}
	l := applog.WithOperation(applog.WithComponent("autosave"), "loop")
	timer := time.NewTimer(e.opts.AutosaveDebounce)
	timer.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			if pending {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				if err := e.Flush(flushCtx); err != nil {
					l.Error("final autosave failed", slog.Any("err", err))
				}
				cancel()
			}
			return
		case <-e.dirty:
			pending = true
			timer.Reset(e.opts.AutosaveDebounce)
		case <-timer.C:
			if err := e.Flush(ctx); err != nil {
				l.Warn("autosave failed, will retry", slog.Any("err", err))
				timer.Reset(e.opts.AutosaveDebounce)
				continue
			}
			pending = false
		}
	}
}

// Flush saves the committed document now.
func (e *Editor) Flush(ctx context.Context) error {
	if e.opts.Saver == nil {
		return nil
	}
	doc := e.Committed()
	start := time.Now()
	if err := e.opts.Saver.Save(applog.ContextWithDocument(ctx, doc.ID), doc); err != nil {
		return err
	}
	e.log.Debug("saved", slog.Duration("took", time.Since(start)))
	return nil
}
