/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
	"canvasstudio/internal/scene"
)

// opRequest is the body of POST /api/documents/:id/ops. Fields are read per op.
type opRequest struct {
	Op    string   `json:"op"`
	ID    string   `json:"id"`
	IDs   []string `json:"ids"`
	Name  string   `json:"name"`
	Key   string   `json:"key"`
	Value float64  `json:"value"`
	Index int      `json:"index"`
	Mode  string   `json:"mode"`
	Color string   `json:"color"`
	Flag  bool     `json:"flag"`
}

type opFunc func(ed *editor.Editor, req opRequest) (string, error)

var ops = map[string]opFunc{
	"move-up":    func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.MoveUp(r.ID) },
	"move-down":  func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.MoveDown(r.ID) },
	"move-front": func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.MoveToFront(r.ID) },
	"move-back":  func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.MoveToBack(r.ID) },
	"move-to":    func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.MoveTo(r.ID, r.Index) },
	"group": func(ed *editor.Editor, r opRequest) (string, error) {
		return ed.Group(r.Name, r.IDs...)
	},
	"ungroup": func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.Ungroup(r.ID) },
	"merge": func(ed *editor.Editor, r opRequest) (string, error) {
		return ed.Merge(r.IDs, r.ID)
	},
	"delete": func(ed *editor.Editor, r opRequest) (string, error) {
		ids := r.IDs
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
		return "", ed.Delete(ids...)
	},
	"duplicate": func(ed *editor.Editor, r opRequest) (string, error) { return ed.Duplicate(r.ID) },
	"rename":    func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.Rename(r.ID, r.Name) },
	"hide":      func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.SetHidden(r.ID, r.Flag) },
	"lock":      func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.SetLocked(r.ID, r.Flag) },
	"opacity":   func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.SetOpacity(r.ID, r.Value, true) },
	"effect": func(ed *editor.Editor, r opRequest) (string, error) {
		return "", ed.UpdateEffect(targetOrGlobal(r.ID), domain.EffectKey(r.Key), r.Value, true)
	},
	"reset-effects": func(ed *editor.Editor, r opRequest) (string, error) {
		return "", ed.ResetEffects(targetOrGlobal(r.ID))
	},
	"preset": func(ed *editor.Editor, r opRequest) (string, error) {
		return "", ed.ApplyPreset(targetOrGlobal(r.ID), r.Name)
	},
	"mask": func(ed *editor.Editor, r opRequest) (string, error) {
		if r.Mode == "" || r.Mode == "none" {
			return "", ed.DisableMask(r.ID)
		}
		return "", ed.EnableMask(r.ID, domain.MaskType(r.Mode))
	},
	"promote":             func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.PromoteAsset(r.ID) },
	"discard":             func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.DiscardAsset(r.ID) },
	"clear-buffer":        func(ed *editor.Editor, r opRequest) (string, error) { return "", ed.ClearBuffer() },
	"add-asset-to-canvas": func(ed *editor.Editor, r opRequest) (string, error) { return ed.AddAssetToCanvas(r.ID) },
	"background": func(ed *editor.Editor, r opRequest) (string, error) {
		if r.Mode != "" {
			if err := ed.SetBackgroundMode(domain.BackgroundMode(r.Mode)); err != nil {
				return "", err
			}
		}
		if r.Color != "" {
			return "", ed.SetBackgroundColor(r.Color)
		}
		return "", nil
	},
}

func targetOrGlobal(id string) string {
	if id == "" {
		return domain.GlobalFXID
	}
	return id
}

// applyOp runs one named editor operation and answers with the committed document
// and, for ops that create something, the new id.
func (s *Server) applyOp(c fiber.Ctx) error {
	var req opRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	fn, ok := ops[req.Op]
	if !ok {
		return s.fail(c, fmt.Errorf("unknown op %q: %w", req.Op, scene.ErrValidation))
	}
	ss, err := s.session(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	created, err := fn(ss.ed, req)
	if err != nil {
		return s.fail(c, err)
	}
	resp := fiber.Map{"document": ss.ed.Committed()}
	if created != "" {
		resp["id"] = created
	}
	return c.JSON(resp)
}
