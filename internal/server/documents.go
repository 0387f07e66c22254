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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/export"
	"canvasstudio/internal/storage"
)

type documentSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Layers    int    `json:"layers"`
	UpdatedAt string `json:"updatedAt"`
}

func (s *Server) listDocuments(c fiber.Ctx) error {
	docs, err := s.store.GetAll(s.ctx)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		if live, ok := s.liveDocument(d.ID); ok {
			d = live
		}
		out = append(out, documentSummary{
			ID:        d.ID,
			Name:      d.Name,
			Width:     d.Canvas.Width,
			Height:    d.Canvas.Height,
			Layers:    len(d.LayerOrder),
			UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return c.JSON(out)
}

type createRequest struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) createDocument(c fiber.Ctx) error {
	req := createRequest{Name: "Untitled", Width: 1080, Height: 1080}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "invalid json")
		}
	}
	if req.Width <= 0 || req.Height <= 0 {
		return badRequest(c, "width and height must be positive")
	}
	doc := domain.NewDocument(req.Name, req.Width, req.Height)
	if err := s.store.Save(s.ctx, doc); err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(doc)
}

func (s *Server) getDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if live, ok := s.liveDocument(id); ok {
		return c.JSON(live)
	}
	doc, err := s.store.Get(s.ctx, id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(doc)
}

// putDocument replaces a document wholesale. An open session is reset, which
// clears its undo history.
func (s *Server) putDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == domain.DraftID {
		return badRequest(c, "the draft document cannot be stored")
	}
	var doc domain.Document
	if err := json.Unmarshal(c.Body(), &doc); err != nil {
		return badRequest(c, "invalid json")
	}
	doc.ID = id
	doc.UpdatedAt = domain.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	if err := domain.Validate(doc); err != nil {
		return s.fail(c, err)
	}
	s.mu.Lock()
	ss, live := s.sessions[id]
	s.mu.Unlock()
	if live {
		if err := ss.ed.Reset(doc); err != nil {
			return s.fail(c, err)
		}
	}
	if err := s.store.Save(s.ctx, doc); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(doc)
}

func (s *Server) deleteDocument(c fiber.Ctx) error {
	id := c.Params("id")
	s.dropSession(id)
	if err := s.store.Delete(s.ctx, id); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) listRevisions(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	revs, err := s.store.Revisions(s.ctx, c.Params("id"), limit)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]fiber.Map, 0, len(revs))
	for _, r := range revs {
		out = append(out, fiber.Map{"savedAt": r.SavedAt, "name": r.Doc.Name, "layers": len(r.Doc.LayerOrder)})
	}
	return c.JSON(out)
}

func (s *Server) undo(c fiber.Ctx) error { return s.travel(c, true) }
func (s *Server) redo(c fiber.Ctx) error { return s.travel(c, false) }

func (s *Server) travel(c fiber.Ctx, back bool) error {
	ss, err := s.session(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	moved, verb := false, "redo"
	if back {
		moved, verb = ss.ed.Undo(), "undo"
	} else {
		moved = ss.ed.Redo()
	}
	if !moved {
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "nothing to " + verb})
	}
	return c.JSON(ss.ed.Committed())
}

func (s *Server) exportDocument(c fiber.Ctx) error {
	id := c.Params("id")
	doc, ok := s.liveDocument(id)
	if !ok {
		var err error
		if doc, err = s.store.Get(s.ctx, id); err != nil {
			return s.fail(c, err)
		}
	}
	scale := 1.0
	if v := c.Query("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f > 8 {
			return badRequest(c, "scale must be in (0, 8]")
		}
		scale = f
	}
	guides := c.Query("guides") == "1" || c.Query("guides") == "true"

	var buf bytes.Buffer
	var err error
	switch format := c.Query("format", "png"); format {
	case "png":
		c.Set(fiber.HeaderContentType, "image/png")
		err = export.PNG(doc, &buf, export.Options{Scale: scale, IncludeGuides: guides})
	case "pdf":
		c.Set(fiber.HeaderContentType, "application/pdf")
		err = export.PDF(doc, &buf, export.PDFOptions{DPI: int(72 * scale), IncludeGuides: guides})
	case "project":
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		var data []byte
		if data, err = storage.ExportProject(doc); err == nil {
			buf.Write(data)
		}
	default:
		return badRequest(c, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return s.fail(c, err)
	}
	return c.Send(buf.Bytes())
}

// importDocument stores a project file. A file carrying the draft id or an id
// already in use is stored under a fresh id.
func (s *Server) importDocument(c fiber.Ctx) error {
	doc, err := storage.ImportProject(c.Body())
	if err != nil {
		return s.fail(c, err)
	}
	if doc.ID == "" || doc.ID == domain.DraftID {
		doc.ID = domain.NewID()
	} else if _, err := s.store.Get(s.ctx, doc.ID); err == nil {
		doc.ID = domain.NewID()
	}
	if err := s.store.Save(s.ctx, doc); err != nil {
		return s.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": doc.ID})
}

type imagesRequest struct {
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspectRatio"`
	References  []string `json:"references"`
}

func (s *Server) generateImages(c fiber.Ctx) error {
	if s.opts.AI == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "ai service not configured"})
	}
	var req imagesRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.Prompt == "" {
		return badRequest(c, "prompt is required")
	}
	aspect := aigen.AspectRatio(req.AspectRatio)
	if aspect == "" {
		aspect = aigen.Square
	}
	if !aspect.Valid() {
		return badRequest(c, "unsupported aspect ratio")
	}
	ss, err := s.session(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	ids, err := ss.images.Generate(s.ctx, aigen.ImageRequest{Prompt: req.Prompt, AspectRatio: aspect, References: req.References})
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": aigen.UserMessage(err), "kind": aigen.Classify(err).String()})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"assets": ids})
}
