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
	"fmt"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/raster"
	"canvasstudio/internal/scene"
)

// Panel commands. Validation happens inside the scene functions, so a rejected
// command never reaches history.

func (e *Editor) commit(label string, fn Updater) error { return e.apply(label, fn, true) }

// gesture guards fn with the lock state of id.
func (e *Editor) gesture(label, id string, commit bool, fn Updater) error {
	return e.apply(label, func(d domain.Document) (domain.Document, error) {
		if err := checkUnlocked(d, id); err != nil {
			return d, err
		}
		return fn(d)
	}, commit)
}

func checkUnlocked(d domain.Document, id string) error {
	ent, kind, ok := d.Resolve(id)
	switch {
	case !ok:
		return fmt.Errorf("layer %q: %w", id, domain.ErrNotFound)
	case kind == domain.KindGlobalFX:
		if d.Canvas.EffectsLocked {
			return fmt.Errorf("global fx: %w", ErrLocked)
		}
	case ent.Base().Locked:
		return fmt.Errorf("layer %q: %w", id, ErrLocked)
	}
	return nil
}

func checkAllUnlocked(d domain.Document, ids []string) error {
	for _, id := range ids {
		if err := checkUnlocked(d, id); err != nil {
			return err
		}
	}
	return nil
}

// Selection

func (e *Editor) Selection() scene.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel
}

func (e *Editor) setSelection(fn func(scene.Selection, domain.Document) scene.Selection) scene.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel = fn(e.sel, e.cur)
	return e.sel
}

func (e *Editor) Select(id string) scene.Selection {
	return e.setSelection(func(s scene.Selection, _ domain.Document) scene.Selection { return s.Click(id) })
}

func (e *Editor) ToggleSelect(id string) scene.Selection {
	return e.setSelection(func(s scene.Selection, _ domain.Document) scene.Selection { return s.ToggleClick(id) })
}

func (e *Editor) RangeSelect(id string) scene.Selection {
	return e.setSelection(func(s scene.Selection, d domain.Document) scene.Selection {
		return s.RangeClick(id, scene.DisplayOrder(d))
	})
}

func (e *Editor) SelectGroup(groupID string) (scene.Selection, error) {
	var err error
	sel := e.setSelection(func(s scene.Selection, d domain.Document) scene.Selection {
		g, _, ok := d.GroupByID(groupID)
		if !ok {
			err = fmt.Errorf("group %q: %w", groupID, domain.ErrNotFound)
			return s
		}
		return s.ClickGroupHeader(g)
	})
	return sel, err
}

func (e *Editor) ClearSelection() {
	e.setSelection(func(s scene.Selection, _ domain.Document) scene.Selection { return s.Clear() })
}

// Panel is the panel the primary selection opens.
func (e *Editor) Panel() scene.Panel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return scene.PanelFor(e.sel.Primary(), e.cur)
}

// Layers panel

func (e *Editor) MoveUp(id string) error {
	return e.commit("move up", func(d domain.Document) (domain.Document, error) { return scene.MoveUp(d, id) })
}

func (e *Editor) MoveDown(id string) error {
	return e.commit("move down", func(d domain.Document) (domain.Document, error) { return scene.MoveDown(d, id) })
}

func (e *Editor) MoveToFront(id string) error {
	return e.commit("bring to front", func(d domain.Document) (domain.Document, error) { return scene.MoveToFront(d, id) })
}

func (e *Editor) MoveToBack(id string) error {
	return e.commit("send to back", func(d domain.Document) (domain.Document, error) { return scene.MoveToBack(d, id) })
}

func (e *Editor) MoveTo(id string, index int) error {
	return e.commit("reorder", func(d domain.Document) (domain.Document, error) { return scene.MoveTo(d, id, index) })
}

// Delete removes ids in one commit. Deleting the sentinel resets the global effects.
func (e *Editor) Delete(ids ...string) error {
	return e.commit("delete", func(d domain.Document) (domain.Document, error) {
		for _, id := range ids {
			if id == domain.GlobalFXID {
				d = scene.ResetGlobalEffects(d)
				continue
			}
			if err := checkUnlocked(d, id); err != nil {
				return d, err
			}
			var err error
			if d, err = scene.DeleteLayer(d, id); err != nil {
				return d, err
			}
		}
		return d, nil
	})
}

// DeleteSelection deletes the selected layers and clears the selection.
func (e *Editor) DeleteSelection() error {
	if err := e.Delete(e.Selection().IDs...); err != nil {
		return err
	}
	e.ClearSelection()
	return nil
}

func (e *Editor) Duplicate(id string) (string, error) {
	var newID string
	err := e.commit("duplicate", func(d domain.Document) (domain.Document, error) {
		var err error
		d, newID, err = scene.DuplicateLayer(d, id)
		return d, err
	})
	return newID, err
}

func (e *Editor) SetHidden(id string, hidden bool) error {
	return e.commit("visibility", func(d domain.Document) (domain.Document, error) { return scene.SetHidden(d, id, hidden) })
}

func (e *Editor) SetLocked(id string, locked bool) error {
	return e.commit("lock", func(d domain.Document) (domain.Document, error) { return scene.SetLocked(d, id, locked) })
}

func (e *Editor) Rename(id, name string) error {
	return e.commit("rename", func(d domain.Document) (domain.Document, error) { return scene.Rename(d, id, name) })
}

// Group groups ids, or the current selection when ids is empty.
func (e *Editor) Group(name string, ids ...string) (string, error) {
	if len(ids) == 0 {
		ids = e.Selection().IDs
	}
	var gid string
	err := e.commit("group", func(d domain.Document) (domain.Document, error) {
		var err error
		d, gid, err = scene.Group(d, ids, name)
		return d, err
	})
	return gid, err
}

func (e *Editor) Ungroup(groupID string) error {
	return e.commit("ungroup", func(d domain.Document) (domain.Document, error) { return scene.Ungroup(d, groupID) })
}

func (e *Editor) SetGroupHidden(groupID string, hidden bool) error {
	return e.commit("group visibility", func(d domain.Document) (domain.Document, error) {
		return scene.SetGroupHidden(d, groupID, hidden)
	})
}

func (e *Editor) SetGroupLocked(groupID string, locked bool) error {
	return e.commit("group lock", func(d domain.Document) (domain.Document, error) {
		return scene.SetGroupLocked(d, groupID, locked)
	})
}

func (e *Editor) SetGroupCollapsed(groupID string, collapsed bool) error {
	return e.commit("group collapse", func(d domain.Document) (domain.Document, error) {
		return scene.SetGroupCollapsed(d, groupID, collapsed)
	})
}

func (e *Editor) RenameGroup(groupID, name string) error {
	return e.commit("rename group", func(d domain.Document) (domain.Document, error) {
		return scene.RenameGroup(d, groupID, name)
	})
}

// Merge flattens ids (or the members of groupID) into one image layer at the slot of
// the topmost member. Locked members refuse the merge. Rendering happens outside the
// gateway on a snapshot; the splice is one commit and fails if a member disappeared
// or became locked in between.
func (e *Editor) Merge(ids []string, groupID string) (string, error) {
	snap := e.Document()
	targets, err := scene.MergeTargets(snap, ids, groupID)
	if err != nil {
		return "", err
	}
	if err := checkAllUnlocked(snap, targets); err != nil {
		return "", err
	}
	img, box, err := e.opts.Compositor.RenderLayers(snap, targets)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}
	src, err := raster.EncodePNGDataURL(img)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}
	box.ID, box.Name = domain.NewID(), "Merged layer"
	merged := domain.ImageLayer{Layer: box, Src: src}
	err = e.commit("merge", func(d domain.Document) (domain.Document, error) {
		if _, err := scene.MergeTargets(d, targets, ""); err != nil {
			return d, err
		}
		if err := checkAllUnlocked(d, targets); err != nil {
			return d, err
		}
		return scene.SpliceMerged(d, targets, merged)
	})
	if err != nil {
		return "", err
	}
	return merged.ID, nil
}

// Geometry and content gestures

// Transform moves, resizes or rotates id. Drag handlers send commit=false while dragging
// and commit=true on release.
func (e *Editor) Transform(id string, g scene.Geometry, commit bool) error {
	return e.gesture("transform", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.SetGeometry(d, id, g)
	})
}

func (e *Editor) SetOpacity(id string, opacity float64, commit bool) error {
	return e.gesture("opacity", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.SetOpacity(d, id, opacity)
	})
}

func (e *Editor) SetFlip(id string, flipX, flipY bool) error {
	return e.gesture("flip", id, true, func(d domain.Document) (domain.Document, error) {
		return scene.SetFlip(d, id, flipX, flipY)
	})
}

func (e *Editor) AddText(t domain.TextLayer) (string, error) { return e.addLayer("add text", t) }

func (e *Editor) AddShape(s domain.ShapeLayer) (string, error) { return e.addLayer("add shape", s) }

func (e *Editor) AddImage(img domain.ImageLayer) (string, error) { return e.addLayer("add image", img) }

func (e *Editor) addLayer(label string, ent domain.Entity) (string, error) {
	var id string
	err := e.commit(label, func(d domain.Document) (domain.Document, error) {
		var err error
		d, id, err = scene.AddLayer(d, ent)
		return d, err
	})
	return id, err
}

func (e *Editor) EditText(id string, fn func(domain.TextLayer) domain.TextLayer, commit bool) error {
	return e.gesture("edit text", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.UpdateText(d, id, fn)
	})
}

func (e *Editor) EditShape(id string, fn func(domain.ShapeLayer) domain.ShapeLayer, commit bool) error {
	return e.gesture("edit shape", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.UpdateShape(d, id, fn)
	})
}

// Masking panel

func (e *Editor) EnableMask(id string, t domain.MaskType) error {
	return e.gesture("enable mask", id, true, func(d domain.Document) (domain.Document, error) {
		return scene.EnableMask(d, id, t, e.opts.Matte)
	})
}

func (e *Editor) SetMaskParams(id string, p scene.MaskParams, commit bool) error {
	return e.gesture("mask", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.SetMaskParams(d, id, p, e.opts.Matte)
	})
}

func (e *Editor) SetMaskTransform(id string, scale, offsetX, offsetY float64, commit bool) error {
	return e.gesture("mask transform", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.SetMaskTransform(d, id, scale, offsetX, offsetY)
	})
}

func (e *Editor) DisableMask(id string) error {
	return e.gesture("disable mask", id, true, func(d domain.Document) (domain.Document, error) {
		return scene.DisableMask(d, id)
	})
}

// FX panel

// UpdateEffect is the slider path: previews while scrubbing, one commit on release.
func (e *Editor) UpdateEffect(id string, key domain.EffectKey, value float64, commit bool) error {
	return e.gesture("effect "+string(key), id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.UpdateEffect(d, id, key, value)
	})
}

func (e *Editor) SetShadowColor(id, color string, commit bool) error {
	return e.gesture("shadow color", id, commit, func(d domain.Document) (domain.Document, error) {
		return scene.SetShadowColor(d, id, color)
	})
}

func (e *Editor) ResetEffects(id string) error {
	return e.gesture("reset effects", id, true, func(d domain.Document) (domain.Document, error) {
		return scene.ResetEffects(d, id)
	})
}

func (e *Editor) ApplyPreset(id, preset string) error {
	return e.gesture("preset "+preset, id, true, func(d domain.Document) (domain.Document, error) {
		return scene.ApplyPreset(d, id, preset)
	})
}

func (e *Editor) SetEffectsEnabled(id string, enabled bool) error {
	return e.commit("effects toggle", func(d domain.Document) (domain.Document, error) {
		return scene.SetEffectsEnabled(d, id, enabled)
	})
}

// Assets panel

func (e *Editor) AddAsset(a domain.Asset) (string, error) {
	var id string
	err := e.commit("add asset", func(d domain.Document) (domain.Document, error) {
		d, id = scene.AddAsset(d, a)
		return d, nil
	})
	return id, err
}

func (e *Editor) PromoteAsset(id string) error {
	return e.commit("promote asset", func(d domain.Document) (domain.Document, error) { return scene.PromoteAsset(d, id) })
}

func (e *Editor) DiscardAsset(id string) error {
	return e.commit("discard asset", func(d domain.Document) (domain.Document, error) { return scene.DiscardAsset(d, id) })
}

func (e *Editor) ClearBuffer() error {
	return e.commit("clear buffer", func(d domain.Document) (domain.Document, error) { return scene.ClearBuffer(d), nil })
}

func (e *Editor) AddAssetToCanvas(assetID string) (string, error) {
	var id string
	err := e.commit("place asset", func(d domain.Document) (domain.Document, error) {
		var err error
		d, id, err = scene.AddAssetToCanvas(d, assetID)
		return d, err
	})
	return id, err
}

// Canvas panel

func (e *Editor) ResizeCanvas(w, h int) error {
	return e.commit("resize canvas", func(d domain.Document) (domain.Document, error) { return scene.ResizeCanvas(d, w, h) })
}

func (e *Editor) SetBackgroundMode(m domain.BackgroundMode) error {
	return e.commit("background", func(d domain.Document) (domain.Document, error) { return scene.SetBackgroundMode(d, m) })
}

func (e *Editor) SetBackgroundColor(c string) error {
	return e.commit("background", func(d domain.Document) (domain.Document, error) { return scene.SetBackgroundColor(d, c) })
}

func (e *Editor) SetGradient(g domain.Gradient) error {
	return e.commit("background", func(d domain.Document) (domain.Document, error) { return scene.SetGradient(d, g) })
}

func (e *Editor) SetBackdropImage(img domain.BackdropImage) error {
	return e.commit("background", func(d domain.Document) (domain.Document, error) { return scene.SetBackdropImage(d, img) })
}

func (e *Editor) SetPattern(p domain.Pattern) error {
	return e.commit("background", func(d domain.Document) (domain.Document, error) { return scene.SetPattern(d, p) })
}

func (e *Editor) SetOverlays(guides, rulers bool, safeArea float64) error {
	return e.commit("overlays", func(d domain.Document) (domain.Document, error) {
		return scene.SetOverlays(d, guides, rulers, safeArea)
	})
}
