/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server exposes documents, notes and editor operations over HTTP.
//
// Each open document is backed by one editor session. Sessions autosave through
// the same backend that serves reads, so a GET after an operation reflects the
// live editor state even before the debounced save lands.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/editor"
	applog "canvasstudio/internal/log"
	"canvasstudio/internal/scene"
	"canvasstudio/internal/storage"
	"canvasstudio/internal/studio"
	"canvasstudio/internal/version"
)

// Options configures the API server.
type Options struct {
	Strict           bool
	HistoryDepth     int
	AutosaveDebounce time.Duration
	// AI enables the image generation route. Nil answers 503.
	AI       aigen.Service
	Variants int
	Events   studio.EventFunc
}

type session struct {
	ed     *editor.Editor
	images *studio.ImageStudio
	cancel context.CancelFunc
	done   chan struct{}
}

// Server routes API requests to the backend and to editor sessions.
type Server struct {
	app   *fiber.App
	store storage.Backend
	opts  Options
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	listening atomic.Bool

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds a server over store. Call Shutdown to flush open sessions.
func New(store storage.Backend, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:    store,
		opts:     opts,
		log:      applog.WithComponent("server"),
		ctx:      ctx,
		cancel:   cancel,
		sessions: map[string]*session{},
	}
	s.app = fiber.New(fiber.Config{
		AppName:   "canvasstudio " + version.String(),
		BodyLimit: 64 << 20,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version.String()})
	})

	api := s.app.Group("/api")
	api.Get("/documents", s.listDocuments)
	api.Post("/documents", s.createDocument)
	api.Get("/documents/:id", s.getDocument)
	api.Put("/documents/:id", s.putDocument)
	api.Delete("/documents/:id", s.deleteDocument)
	api.Get("/documents/:id/revisions", s.listRevisions)
	api.Post("/documents/:id/ops", s.applyOp)
	api.Post("/documents/:id/undo", s.undo)
	api.Post("/documents/:id/redo", s.redo)
	api.Get("/documents/:id/export", s.exportDocument)
	api.Post("/documents/:id/images", s.generateImages)
	api.Post("/import", s.importDocument)

	api.Get("/notes", s.listNotes)
	api.Get("/notes/:id", s.getNote)
	api.Put("/notes/:id", s.putNote)
	api.Delete("/notes/:id", s.deleteNote)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", slog.String("addr", addr))
	s.listening.Store(true)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting requests and saves every open session.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.listening.Swap(false) {
		err = s.app.ShutdownWithContext(ctx)
	}
	s.mu.Lock()
	open := s.sessions
	s.sessions = map[string]*session{}
	s.mu.Unlock()
	for id, ss := range open {
		s.stopSession(ss)
		if ferr := ss.ed.Flush(ctx); ferr != nil {
			s.log.Error("flush on shutdown failed", slog.String("doc_id", id), slog.Any("err", ferr))
			err = errors.Join(err, ferr)
		}
	}
	s.cancel()
	return err
}

func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", c.Response().StatusCode()),
		slog.Duration("took", time.Since(start)),
	)
	return err
}

// session returns the live editor for id, loading it from the store on first use.
// The store is read without holding s.mu; when two requests race on the same id the
// first to register wins and the other load is discarded.
func (s *Server) session(id string) (*session, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return ss, nil
	}
	doc, err := s.store.Get(s.ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[id]; ok {
		return ss, nil
	}
	ed := editor.New(doc, editor.Options{
		Strict:           s.opts.Strict,
		HistoryDepth:     s.opts.HistoryDepth,
		AutosaveDebounce: s.opts.AutosaveDebounce,
		Saver:            s.store,
	})
	ctx, cancel := context.WithCancel(applog.ContextWithDocument(s.ctx, id))
	ss = &session{ed: ed, cancel: cancel, done: make(chan struct{})}
	if s.opts.AI != nil {
		ss.images = studio.NewImageStudio(s.opts.AI, ed, s.opts.Variants, s.opts.Events)
	}
	go func() {
		defer close(ss.done)
		ed.RunAutosave(ctx)
	}()
	s.sessions[id] = ss
	return ss, nil
}

func (s *Server) stopSession(ss *session) {
	if ss.images != nil {
		ss.images.Stop()
	}
	ss.cancel()
	<-ss.done
}

// dropSession ends the session for id without saving it again.
func (s *Server) dropSession(id string) *session {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	s.stopSession(ss)
	return ss
}

func (s *Server) liveDocument(id string) (domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[id]; ok {
		return ss.ed.Committed(), true
	}
	return domain.Document{}, false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrValidation), errors.Is(err, scene.ErrGlobalFX), errors.Is(err, storage.ErrSchema):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrLocked), errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvariant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, aigen.ErrQuota):
		return http.StatusTooManyRequests
	case errors.Is(err, aigen.ErrCredentialExpired), errors.Is(err, aigen.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.Path()), slog.Any("err", err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
