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
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/raster"
	"canvasstudio/internal/storage"
)

func newTestServer(t *testing.T, opts Options) (*Server, storage.Backend) {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.Options{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "studio.db"),
	})
	require.NoError(t, err)
	if opts.AutosaveDebounce == 0 {
		opts.AutosaveDebounce = time.Hour
	}
	s := New(store, opts)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		_ = store.Close()
	})
	return s, store
}

func call(t *testing.T, s *Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createDoc(t *testing.T, s *Server) domain.Document {
	t.Helper()
	resp := call(t, s, http.MethodPost, "/api/documents", createRequest{Name: "Launch", Width: 320, Height: 240})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Document](t, resp)
}

type opResponse struct {
	Document domain.Document `json:"document"`
	ID       string          `json:"id"`
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	resp := call(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestDocumentLifecycle(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	doc := createDoc(t, s)

	list := decode[[]documentSummary](t, call(t, s, http.MethodGet, "/api/documents", nil))
	require.Len(t, list, 1)
	require.Equal(t, doc.ID, list[0].ID)
	require.Equal(t, 320, list[0].Width)

	got := decode[domain.Document](t, call(t, s, http.MethodGet, "/api/documents/"+doc.ID, nil))
	require.Equal(t, doc.LayerOrder, got.LayerOrder)

	got.Name = "Renamed"
	resp := call(t, s, http.MethodPut, "/api/documents/"+doc.ID, got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Renamed", decode[domain.Document](t, resp).Name)

	resp = call(t, s, http.MethodDelete, "/api/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = call(t, s, http.MethodGet, "/api/documents/"+doc.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutRejectsBrokenDocument(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	doc := createDoc(t, s)
	doc.LayerOrder = append(doc.LayerOrder, "ghost")
	resp := call(t, s, http.MethodPut, "/api/documents/"+doc.ID, doc)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOpsUndoRedo(t *testing.T) {
	s, store := newTestServer(t, Options{})
	doc := createDoc(t, s)
	path := "/api/documents/" + doc.ID

	resp := call(t, s, http.MethodPost, path+"/ops", opRequest{Op: "move-front", ID: domain.HeadlineID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	moved := decode[opResponse](t, resp).Document
	require.Equal(t, []string{domain.GlobalFXID, domain.SubtitleID, domain.HeadlineID}, moved.LayerOrder)

	live := decode[domain.Document](t, call(t, s, http.MethodGet, path, nil))
	require.Equal(t, moved.LayerOrder, live.LayerOrder)

	resp = call(t, s, http.MethodPost, path+"/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, doc.LayerOrder, decode[domain.Document](t, resp).LayerOrder)

	resp = call(t, s, http.MethodPost, path+"/undo", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = call(t, s, http.MethodPost, path+"/redo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, s, http.MethodPost, path+"/ops", opRequest{Op: "group", IDs: []string{domain.HeadlineID, domain.SubtitleID}, Name: "Copy"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	grouped := decode[opResponse](t, resp)
	require.NotEmpty(t, grouped.ID)
	require.Len(t, grouped.Document.Groups, 1)

	resp = call(t, s, http.MethodPost, path+"/ops", opRequest{Op: "effect", Key: string(domain.FxBrightness), Value: 1.4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fx := decode[opResponse](t, resp).Document
	require.InDelta(t, 1.4, fx.Canvas.Effects.Get(domain.FxBrightness), 1e-9)

	require.NoError(t, s.Shutdown(context.Background()))
	saved, err := store.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, saved.Groups, 1)
}

func TestOpErrors(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	doc := createDoc(t, s)
	path := "/api/documents/" + doc.ID + "/ops"

	require.Equal(t, http.StatusBadRequest, call(t, s, http.MethodPost, path, opRequest{Op: "teleport"}).StatusCode)
	require.Equal(t, http.StatusBadRequest, call(t, s, http.MethodPost, path, []byte("{")).StatusCode)
	require.Equal(t, http.StatusNotFound, call(t, s, http.MethodPost, path, opRequest{Op: "move-up", ID: "nope"}).StatusCode)
	require.Equal(t, http.StatusBadRequest, call(t, s, http.MethodPost, path, opRequest{Op: "group", IDs: []string{domain.HeadlineID}}).StatusCode)
	require.Equal(t, http.StatusNotFound, call(t, s, http.MethodPost, "/api/documents/missing/ops", opRequest{Op: "move-up", ID: domain.HeadlineID}).StatusCode)

	resp := call(t, s, http.MethodPost, path, opRequest{Op: "lock", ID: domain.HeadlineID, Flag: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = call(t, s, http.MethodPost, path, opRequest{Op: "delete", ID: domain.HeadlineID})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestExportAndImport(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	doc := createDoc(t, s)
	path := "/api/documents/" + doc.ID + "/export"

	resp := call(t, s, http.MethodGet, path+"?format=png&scale=0.5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 160, 120), img.Bounds())

	resp = call(t, s, http.MethodGet, path+"?format=pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	require.Equal(t, http.StatusBadRequest, call(t, s, http.MethodGet, path+"?format=gif", nil).StatusCode)
	require.Equal(t, http.StatusBadRequest, call(t, s, http.MethodGet, path+"?scale=-1", nil).StatusCode)

	resp = call(t, s, http.MethodGet, path+"?format=project", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	project, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	resp = call(t, s, http.MethodPost, "/api/import", project)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	imported := decode[map[string]string](t, resp)["id"]
	require.NotEqual(t, doc.ID, imported, "colliding ids get a fresh one")

	got := decode[domain.Document](t, call(t, s, http.MethodGet, "/api/documents/"+imported, nil))
	require.Equal(t, doc.Name, got.Name)

	require.Equal(t, http.StatusBadRequest, call(t, s, http.MethodPost, "/api/import", []byte(`{"format":"other"}`)).StatusCode)
}

func TestNotes(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	resp := call(t, s, http.MethodPut, "/api/notes/n1", storage.Note{Title: "Ideas", Body: "neon"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	n := decode[storage.Note](t, resp)
	require.Equal(t, "n1", n.ID)
	require.Equal(t, "Ideas", n.Title)

	notes := decode[[]storage.Note](t, call(t, s, http.MethodGet, "/api/notes", nil))
	require.Len(t, notes, 1)

	require.Equal(t, http.StatusNoContent, call(t, s, http.MethodDelete, "/api/notes/n1", nil).StatusCode)
	require.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, "/api/notes/n1", nil).StatusCode)
}

type fakeAI struct{ src string }

func (f fakeAI) GenerateImage(context.Context, aigen.ImageRequest) (aigen.Image, error) {
	return aigen.Image{Src: f.src, Width: 8, Height: 4}, nil
}
func (fakeAI) GenerateVideo(context.Context, aigen.VideoRequest) (aigen.Job, error) {
	return nil, aigen.ErrGeneration
}
func (fakeAI) DescribeImage(context.Context, string) (string, error)            { return "", nil }
func (fakeAI) DetectObjects(context.Context, string) ([]aigen.Detection, error) { return nil, nil }
func (fakeAI) RefinePrompt(_ context.Context, text string) (string, error)      { return text, nil }
func (fakeAI) Chat(context.Context, []aigen.ChatMessage, aigen.ChatMessage) (string, error) {
	return "", nil
}

func TestGenerateImages(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	doc := createDoc(t, s)
	path := "/api/documents/" + doc.ID + "/images"
	require.Equal(t, http.StatusServiceUnavailable, call(t, s, http.MethodPost, path, imagesRequest{Prompt: "x"}).StatusCode)

	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	src, err := raster.EncodePNGDataURL(img)
	require.NoError(t, err)

	s2, _ := newTestServer(t, Options{AI: fakeAI{src: src}, Variants: 2})
	doc = createDoc(t, s2)
	path = "/api/documents/" + doc.ID + "/images"
	require.Equal(t, http.StatusBadRequest, call(t, s2, http.MethodPost, path, imagesRequest{}).StatusCode)
	require.Equal(t, http.StatusBadRequest, call(t, s2, http.MethodPost, path, imagesRequest{Prompt: "x", AspectRatio: "7:3"}).StatusCode)

	resp := call(t, s2, http.MethodPost, path, imagesRequest{Prompt: "sunset"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, decode[map[string][]string](t, resp)["assets"], 2)

	got := decode[domain.Document](t, call(t, s2, http.MethodGet, "/api/documents/"+doc.ID, nil))
	require.Len(t, got.Stash, 2)
}

// gatedStore blocks loads of one document until gate is closed.
type gatedStore struct {
	storage.Backend
	hold  string
	gate  chan struct{}
	loads atomic.Int32
}

func (g *gatedStore) Get(ctx context.Context, id string) (domain.Document, error) {
	if id == g.hold {
		g.loads.Add(1)
		<-g.gate
	}
	return g.Backend.Get(ctx, id)
}

func TestSlowLoadDoesNotBlockOtherDocuments(t *testing.T) {
	s, store := newTestServer(t, Options{})
	slow, fast := createDoc(t, s), createDoc(t, s)
	s.dropSession(slow.ID)
	s.dropSession(fast.ID)
	gated := &gatedStore{Backend: store, hold: slow.ID, gate: make(chan struct{})}
	s.store = gated

	var slowSess *session
	slowDone := make(chan error, 1)
	go func() {
		var err error
		slowSess, err = s.session(slow.ID)
		slowDone <- err
	}()
	require.Eventually(t, func() bool { return gated.loads.Load() == 1 }, 5*time.Second, 5*time.Millisecond)

	fastDone := make(chan error, 1)
	go func() {
		_, err := s.session(fast.ID)
		fastDone <- err
	}()
	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(gated.gate)
		t.Fatalf("loading one document blocked another")
	}

	close(gated.gate)
	require.NoError(t, <-slowDone)
	again, err := s.session(slow.ID)
	require.NoError(t, err)
	require.Same(t, slowSess, again)
}

func TestConcurrentLoadsShareOneSession(t *testing.T) {
	s, store := newTestServer(t, Options{})
	doc := createDoc(t, s)
	s.dropSession(doc.ID)
	gated := &gatedStore{Backend: store, hold: doc.ID, gate: make(chan struct{})}
	s.store = gated

	const callers = 8
	got := make([]*session, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = s.session(doc.ID)
		}()
	}
	require.Eventually(t, func() bool { return gated.loads.Load() == callers }, 5*time.Second, 5*time.Millisecond)
	close(gated.gate)
	wg.Wait()

	for i, ss := range got {
		require.NoError(t, errs[i])
		require.Same(t, got[0], ss)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.sessions, 1)
	require.Same(t, got[0], s.sessions[doc.ID])
}
