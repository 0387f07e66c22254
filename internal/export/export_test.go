/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"canvasstudio/internal/domain"
	"canvasstudio/internal/scene"
)

func testDoc(t *testing.T) domain.Document {
	t.Helper()
	d := domain.NewDocument("Summer Sale!", 200, 100)
	d, _, err := scene.AddLayer(d, domain.ShapeLayer{Layer: domain.Layer{X: 20, Y: 20, Width: 60, Height: 40}, Shape: domain.ShapeRect, Fill: "#ff0000"})
	if err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	return d
}

func TestPNGSizeFollowsScale(t *testing.T) {
	var buf bytes.Buffer
	if err := PNG(testDoc(t), &buf, Options{Scale: 2}); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("size = %v", b)
	}
}

func TestPDFHasHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(testDoc(t), &buf, PDFOptions{DPI: 72, IncludeGuides: true}); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:8])
	}
}

func TestBatchExportPrintPreset(t *testing.T) {
	dir := t.TempDir()
	guides := false
	paths, err := BatchExport(testDoc(t), BatchOptions{Preset: PresetPrint, Scale: 1, IncludeGuides: &guides, OutDir: dir})
	if err != nil {
		t.Fatalf("BatchExport: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if !strings.HasPrefix(filepath.Base(p), "summer-sale.") {
			t.Fatalf("unexpected name %s", p)
		}
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("missing output %s: %v", p, err)
		}
	}
	if _, err := BatchExport(testDoc(t), BatchOptions{Formats: []string{"gif"}, OutDir: dir}); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
