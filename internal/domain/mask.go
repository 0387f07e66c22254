/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// MaskType is the closed mask shape vocabulary.
type MaskType string

const (
	MaskEllipse        MaskType = "ellipse"
	MaskRectangle      MaskType = "rectangle"
	MaskDiamond        MaskType = "diamond"
	MaskHexagon        MaskType = "hexagon"
	MaskLinearGradient MaskType = "linear-gradient"
	MaskRadialVignette MaskType = "radial-vignette"
)

// Valid reports whether t belongs to the vocabulary.
func (t MaskType) Valid() bool {
	switch t {
	case MaskEllipse, MaskRectangle, MaskDiamond, MaskHexagon, MaskLinearGradient, MaskRadialVignette:
		return true
	}
	return false
}

// IsGradient reports whether feather acts as a transition band instead of an edge blur.
func (t MaskType) IsGradient() bool { return t == MaskLinearGradient || t == MaskRadialVignette }

// Mask clips an image layer. Scale and offsets transform the mask content
// independently of the layer. MatteID/MatteSrc describe the derived matte and are
// regenerated whenever Type, Feather or Inverted change.
type Mask struct {
	Enabled  bool     `json:"enabled"`
	Type     MaskType `json:"type"`
	Feather  float64  `json:"feather"`
	Inverted bool     `json:"inverted"`
	Scale    float64  `json:"scale"`
	OffsetX  float64  `json:"offsetX"`
	OffsetY  float64  `json:"offsetY"`
	MatteID  string   `json:"matteId"`
	MatteSrc string   `json:"matteSrc"`
}

// DefaultMask is the state a layer receives the first time masking is enabled.
func DefaultMask(t MaskType) Mask {
	return Mask{Enabled: true, Type: t, Feather: 0, Inverted: false, Scale: 1, OffsetX: 0, OffsetY: 0}
}
