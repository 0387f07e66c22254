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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"canvasstudio/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb       PresetName = "web"
	PresetPrint     PresetName = "print"
	PresetThumbnail PresetName = "thumbnail"
)

// BatchOptions controls export of one document into several formats.
//
// Path semantics: OutDir receives <slug>.png, <slug>.pdf and so on; it is created if missing.
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // allowed: png, pdf; empty means preset defaults
	Scale         float64  // when > 0 overrides the preset raster scale
	IncludeGuides *bool    // when set, overrides preset's default for guides
	OutDir        string
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"png"}
	}
}

func presetScale(p PresetName) float64 {
	switch p {
	case PresetPrint:
		return 300.0 / 72
	case PresetThumbnail:
		return 0.25
	default:
		return 1
	}
}

func presetIncludeGuides(p PresetName) bool { return p == PresetPrint }

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a document name into a file name stem.
func Slug(name string) string {
	s := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "canvas"
	}
	return s
}

// BatchExport writes doc in every requested format and returns the written paths.
func BatchExport(doc domain.Document, opt BatchOptions) ([]string, error) {
	if opt.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(opt.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	scale := presetScale(opt.Preset)
	if opt.Scale > 0 {
		scale = opt.Scale
	}
	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}

	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		path := filepath.Join(opt.OutDir, Slug(doc.Name)+"."+f)
		file, err := os.Create(path)
		if err != nil {
			return out, err
		}
		switch f {
		case "png":
			err = PNG(doc, file, Options{Scale: scale, IncludeGuides: guides})
		case "pdf":
			err = PDF(doc, file, PDFOptions{DPI: int(scale * 72), IncludeGuides: guides})
		default:
			err = fmt.Errorf("unsupported format %q", f)
		}
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return out, fmt.Errorf("%s export: %w", f, err)
		}
		out = append(out, path)
	}
	return out, nil
}
