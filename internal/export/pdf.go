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
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"canvasstudio/internal/domain"
)

// PDFOptions controls PDF export. The page is the canvas in points; the artwork is
// embedded as one raster image rendered at DPI.
type PDFOptions struct {
	// DPI of the embedded raster; zero means 144.
	DPI           int
	IncludeGuides bool
	Author        string
}

// PDF writes the flattened canvas as a single-page PDF.
func PDF(doc domain.Document, w io.Writer, opt PDFOptions) error {
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 144
	}
	img, err := Flatten(doc, Options{Scale: float64(dpi) / 72})
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode artwork: %w", err)
	}

	pw, ph := float64(doc.Canvas.Width), float64(doc.Canvas.Height)
	// Use points for 1:1 mapping from canvas pixels to PDF
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetTitle(doc.Name, true)
	author := opt.Author
	if author == "" {
		author = "Canvas Studio"
	}
	pdf.SetAuthor(author, true)
	pdf.SetCreationDate(doc.UpdatedAt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: pw, Ht: ph})

	pdf.RegisterImageOptionsReader("artwork", gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions("artwork", 0, 0, pw, ph, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	if opt.IncludeGuides && doc.Canvas.SafeArea > 0 {
		inset := doc.Canvas.SafeArea
		pdf.SetDrawColor(255, 0, 0)
		pdf.SetLineWidth(0.5)
		pdf.Rect(inset, inset, pw-2*inset, ph-2*inset, "D")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
