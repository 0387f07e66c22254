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
	"net/http"

	"github.com/gofiber/fiber/v3"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/storage"
)

func (s *Server) listNotes(c fiber.Ctx) error {
	notes, err := s.store.AllNotes(s.ctx)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(notes)
}

func (s *Server) getNote(c fiber.Ctx) error {
	n, err := s.store.GetNote(s.ctx, c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(n)
}

func (s *Server) putNote(c fiber.Ctx) error {
	id := c.Params("id")
	if id == domain.DraftID {
		return badRequest(c, "the draft note cannot be stored")
	}
	var n storage.Note
	if err := json.Unmarshal(c.Body(), &n); err != nil {
		return badRequest(c, "invalid json")
	}
	n.ID = id
	if err := s.store.SaveNote(s.ctx, n); err != nil {
		return s.fail(c, err)
	}
	saved, err := s.store.GetNote(s.ctx, id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(saved)
}

func (s *Server) deleteNote(c fiber.Ctx) error {
	if err := s.store.DeleteNote(s.ctx, c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
