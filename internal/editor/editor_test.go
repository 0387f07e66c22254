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
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/scene"
)

func newTestEditor(t *testing.T, opts Options) (*Editor, string) {
	t.Helper()
	d := domain.NewDocument("t", 400, 200)
	d, id, err := scene.AddLayer(d, domain.ShapeLayer{
		Layer: domain.Layer{Name: "box", X: 10, Y: 10, Width: 40, Height: 20},
		Shape: domain.ShapeRect, Fill: "#ff0000",
	})
	if err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	if opts.Matte == nil {
		opts.Matte = func(domain.MaskType, float64, bool) (string, string, error) {
			return domain.NewID(), "data:image/png;base64,", nil
		}
	}
	return New(d, opts), id
}

func TestPreviewsThenCommitMakeOneEntry(t *testing.T) {
	e, id := newTestEditor(t, Options{})
	before := e.Document()
	for i := 1; i <= 5; i++ {
		if err := e.Transform(id, scene.Geometry{X: float64(10 + i), Y: 10, Width: 40, Height: 20}, false); err != nil {
			t.Fatalf("preview %d: %v", i, err)
		}
	}
	if u, _ := e.HistoryDepth(); u != 0 {
		t.Fatalf("previews recorded %d history entries", u)
	}
	if err := e.Transform(id, scene.Geometry{X: 99, Y: 10, Width: 40, Height: 20}, true); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if u, _ := e.HistoryDepth(); u != 1 {
		t.Fatalf("history depth = %d, want 1", u)
	}
	if g, _ := scene.GeometryOf(e.Document(), id); g.X != 99 {
		t.Fatalf("x = %v after commit", g.X)
	}
	if !e.Undo() {
		t.Fatalf("Undo returned false")
	}
	if !reflect.DeepEqual(e.Document(), before) {
		t.Fatalf("undo did not restore the state before the first preview")
	}
	if !e.Redo() {
		t.Fatalf("Redo returned false")
	}
	if g, _ := scene.GeometryOf(e.Document(), id); g.X != 99 {
		t.Fatalf("x = %v after redo", g.X)
	}
}

func TestRevertDropsPreviews(t *testing.T) {
	e, id := newTestEditor(t, Options{})
	if err := e.SetOpacity(id, 0.2, false); err != nil {
		t.Fatalf("preview: %v", err)
	}
	e.Revert()
	if !reflect.DeepEqual(e.Document(), e.Committed()) {
		t.Fatalf("revert kept the preview")
	}
}

func TestUpdaterFailureLeavesDocument(t *testing.T) {
	e, _ := newTestEditor(t, Options{})
	before := e.Document()
	boom := errors.New("boom")
	if err := e.Apply(func(d domain.Document) (domain.Document, error) {
		d.Name = "changed"
		return d, boom
	}, true); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := e.Apply(func(d domain.Document) (domain.Document, error) {
		panic("kaput")
	}, true); !errors.Is(err, ErrUpdaterPanic) {
		t.Fatalf("panic err = %v", err)
	}
	if !reflect.DeepEqual(e.Document(), before) {
		t.Fatalf("document changed after failed updaters")
	}
	if u, _ := e.HistoryDepth(); u != 0 {
		t.Fatalf("failed updaters recorded history")
	}
}

func breakOrder(d domain.Document) (domain.Document, error) {
	d.LayerOrder = slices.DeleteFunc(slices.Clone(d.LayerOrder), func(id string) bool { return id == domain.GlobalFXID })
	return d, nil
}

func TestInvariantViolationRejected(t *testing.T) {
	e, _ := newTestEditor(t, Options{})
	if err := e.Apply(breakOrder, true); !errors.Is(err, domain.ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
	if !slices.Contains(e.Document().LayerOrder, domain.GlobalFXID) {
		t.Fatalf("broken document was committed")
	}
}

func TestStrictModePanicsOnInvariantViolation(t *testing.T) {
	e, _ := newTestEditor(t, Options{Strict: true})
	defer func() {
		if recover() == nil {
			t.Fatalf("strict editor did not panic")
		}
	}()
	_ = e.Apply(breakOrder, true)
}

func TestGesturesRespectLocks(t *testing.T) {
	e, id := newTestEditor(t, Options{})
	if err := e.SetLocked(id, true); err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	if err := e.Transform(id, scene.Geometry{X: 1, Y: 1, Width: 5, Height: 5}, true); !errors.Is(err, ErrLocked) {
		t.Fatalf("transform on locked layer err = %v", err)
	}
	if err := e.UpdateEffect(id, domain.FxBrightness, 1.5, true); !errors.Is(err, ErrLocked) {
		t.Fatalf("effect on locked layer err = %v", err)
	}
	if err := e.SetLocked(domain.GlobalFXID, true); err != nil {
		t.Fatalf("lock global fx: %v", err)
	}
	if err := e.UpdateEffect(domain.GlobalFXID, domain.FxContrast, 1.2, true); !errors.Is(err, ErrLocked) {
		t.Fatalf("global effect while locked err = %v", err)
	}
	// Direct Apply bypasses gesture locks.
	if err := e.Apply(func(d domain.Document) (domain.Document, error) { return scene.Rename(d, id, "renamed") }, true); err != nil {
		t.Fatalf("direct apply on locked layer: %v", err)
	}
}

func TestDeleteSelectionPrunesSelection(t *testing.T) {
	e, id := newTestEditor(t, Options{})
	e.Select(id)
	if e.Panel() != scene.PanelShapes {
		t.Fatalf("panel = %v", e.Panel())
	}
	if err := e.DeleteSelection(); err != nil {
		t.Fatalf("DeleteSelection: %v", err)
	}
	if _, _, ok := e.Document().Resolve(id); ok {
		t.Fatalf("layer still present")
	}
	if len(e.Selection().IDs) != 0 {
		t.Fatalf("selection = %v", e.Selection())
	}
	if e.Panel() != scene.PanelCanvas {
		t.Fatalf("panel after delete = %v", e.Panel())
	}
}

func TestMergeReplacesMembers(t *testing.T) {
	e, a := newTestEditor(t, Options{})
	b, err := e.AddShape(domain.ShapeLayer{Layer: domain.Layer{X: 30, Y: 20, Width: 40, Height: 40}, Shape: domain.ShapeEllipse, Fill: "#00ff00"})
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	merged, err := e.Merge([]string{a, b}, "")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	d := e.Document()
	img, ok := d.Image(merged)
	if !ok {
		t.Fatalf("merged layer missing")
	}
	if img.X != 10 || img.Y != 10 || img.Width != 60 || img.Height != 50 {
		t.Fatalf("merged box = %v,%v %vx%v", img.X, img.Y, img.Width, img.Height)
	}
	for _, id := range []string{a, b} {
		if _, _, ok := d.Resolve(id); ok {
			t.Fatalf("member %s survived merge", id)
		}
	}
	if u, _ := e.HistoryDepth(); u != 2 {
		t.Fatalf("history depth = %d, want 2 (add + merge)", u)
	}
}

func TestMergeRefusesLockedMembers(t *testing.T) {
	e, a := newTestEditor(t, Options{})
	b, err := e.AddShape(domain.ShapeLayer{Layer: domain.Layer{X: 30, Y: 20, Width: 40, Height: 40}, Shape: domain.ShapeEllipse, Fill: "#00ff00"})
	if err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	if err := e.SetLocked(b, true); err != nil {
		t.Fatalf("SetLocked: %v", err)
	}
	gid, err := e.Group("pair", a, b)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	before := e.Document()
	depth, _ := e.HistoryDepth()
	if _, err := e.Merge([]string{a, b}, ""); !errors.Is(err, ErrLocked) {
		t.Fatalf("merge with locked member err = %v", err)
	}
	if _, err := e.Merge(nil, gid); !errors.Is(err, ErrLocked) {
		t.Fatalf("group merge with locked member err = %v", err)
	}
	if !reflect.DeepEqual(e.Document(), before) {
		t.Fatalf("document changed by refused merge")
	}
	if u, _ := e.HistoryDepth(); u != depth {
		t.Fatalf("history depth = %d, want %d", u, depth)
	}
}

func TestNonFiniteEffectKeepsDocumentExportable(t *testing.T) {
	e, id := newTestEditor(t, Options{})
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := e.UpdateEffect(id, domain.FxBrightness, bad, true); !errors.Is(err, scene.ErrValidation) {
			t.Fatalf("UpdateEffect(%v) err = %v", bad, err)
		}
		if err := e.UpdateEffect(domain.GlobalFXID, domain.FxBlur, bad, false); !errors.Is(err, scene.ErrValidation) {
			t.Fatalf("global UpdateEffect(%v) err = %v", bad, err)
		}
		if err := e.SetOpacity(id, bad, true); !errors.Is(err, scene.ErrValidation) {
			t.Fatalf("SetOpacity(%v) err = %v", bad, err)
		}
	}
	if _, err := json.Marshal(e.Document()); err != nil {
		t.Fatalf("document no longer encodes: %v", err)
	}
}

type fakeSaver struct {
	mu    sync.Mutex
	fails int
	saved []domain.Document
	ch    chan struct{}
}

func (f *fakeSaver) Save(_ context.Context, doc domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("disk full")
	}
	f.saved = append(f.saved, doc)
	select {
	case f.ch <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func TestAutosaveDebouncesAndRetries(t *testing.T) {
	s := &fakeSaver{fails: 1, ch: make(chan struct{}, 1)}
	e, id := newTestEditor(t, Options{Saver: s, AutosaveDebounce: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.RunAutosave(ctx)
		close(done)
	}()
	for i := 0; i < 5; i++ {
		if err := e.Rename(id, "name"+string(rune('a'+i))); err != nil {
			t.Fatalf("Rename: %v", err)
		}
	}
	select {
	case <-s.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("autosave never succeeded")
	}
	cancel()
	<-done
	if n := s.count(); n != 1 {
		t.Fatalf("saves = %d, want 1 after debounce", n)
	}
	ent, _, _ := s.saved[0].Resolve(id)
	if ent.Base().Name != "namee" {
		t.Fatalf("saved name = %q", ent.Base().Name)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	e, id := newTestEditor(t, Options{})
	ch, cancel := e.Subscribe(4)
	defer cancel()
	if err := e.SetOpacity(id, 0.5, false); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if err := e.SetOpacity(id, 0.5, true); err != nil {
		t.Fatalf("commit: %v", err)
	}
	first, second := <-ch, <-ch
	if first.Committed || !second.Committed {
		t.Fatalf("committed flags = %v, %v", first.Committed, second.Committed)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after cancel")
	}
}
