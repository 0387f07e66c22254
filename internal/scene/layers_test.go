/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"math"
	"testing"

	"canvasstudio/internal/domain"
)

func TestNonFiniteValuesRejected(t *testing.T) {
	f := &fakeMatte{}
	base := docWith(domain.GlobalFXID, "A")
	base, err := EnableMask(base, "A", domain.MaskEllipse, f.gen)
	if err != nil {
		t.Fatalf("EnableMask: %v", err)
	}
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		ops := map[string]func(domain.Document) (domain.Document, error){
			"effect": func(d domain.Document) (domain.Document, error) {
				return UpdateEffect(d, "A", domain.FxBrightness, bad)
			},
			"global effect": func(d domain.Document) (domain.Document, error) {
				return UpdateEffect(d, domain.GlobalFXID, domain.FxBlur, bad)
			},
			"opacity": func(d domain.Document) (domain.Document, error) { return SetOpacity(d, "A", bad) },
			"x": func(d domain.Document) (domain.Document, error) {
				return SetGeometry(d, "A", Geometry{X: bad, Width: 10, Height: 10})
			},
			"y": func(d domain.Document) (domain.Document, error) {
				return SetGeometry(d, "A", Geometry{Y: bad, Width: 10, Height: 10})
			},
			"width": func(d domain.Document) (domain.Document, error) {
				return SetGeometry(d, "A", Geometry{Width: bad, Height: 10})
			},
			"height": func(d domain.Document) (domain.Document, error) {
				return SetGeometry(d, "A", Geometry{Width: 10, Height: bad})
			},
			"rotation": func(d domain.Document) (domain.Document, error) {
				return SetGeometry(d, "A", Geometry{Width: 10, Height: 10, Rotation: bad})
			},
			"mask scale":    func(d domain.Document) (domain.Document, error) { return SetMaskTransform(d, "A", bad, 0, 0) },
			"mask offset x": func(d domain.Document) (domain.Document, error) { return SetMaskTransform(d, "A", 1, bad, 0) },
			"mask offset y": func(d domain.Document) (domain.Document, error) { return SetMaskTransform(d, "A", 1, 0, bad) },
			"feather": func(d domain.Document) (domain.Document, error) {
				return SetMaskParams(d, "A", MaskParams{Type: domain.MaskEllipse, Feather: bad}, f.gen)
			},
			"safe area": func(d domain.Document) (domain.Document, error) { return SetOverlays(d, true, true, bad) },
			"add layer": func(d domain.Document) (domain.Document, error) {
				d, _, err := AddLayer(d, domain.ShapeLayer{Layer: domain.Layer{X: bad, Width: 5, Height: 5}, Shape: domain.ShapeRect})
				return d, err
			},
		}
		for name, op := range ops {
			got, err := op(base)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%s(%v) err = %v, want validation error", name, bad, err)
			}
			if len(got.LayerOrder) != len(base.LayerOrder) || domain.Validate(got) != nil {
				t.Fatalf("%s(%v) changed the document", name, bad)
			}
		}
	}
}

func TestShapeKindRequired(t *testing.T) {
	d := docWith(domain.GlobalFXID)
	for _, kind := range []domain.ShapeKind{"", "hexagon"} {
		if _, _, err := AddLayer(d, domain.ShapeLayer{Layer: domain.Layer{Width: 5, Height: 5}, Shape: kind}); !errors.Is(err, ErrValidation) {
			t.Fatalf("AddLayer(shape %q) err = %v", kind, err)
		}
	}
	d, id, err := AddLayer(d, domain.ShapeLayer{Layer: domain.Layer{Width: 5, Height: 5}, Shape: domain.ShapeLine})
	if err != nil {
		t.Fatalf("AddLayer: %v", err)
	}
	mustValid(t, d)
	_, err = UpdateShape(d, id, func(s domain.ShapeLayer) domain.ShapeLayer { s.Shape = ""; return s })
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("UpdateShape to empty kind err = %v", err)
	}
}
