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
	"canvasstudio/internal/domain"
)

// MatteFunc renders the matte of a mask and returns its resource id and payload.
type MatteFunc func(t domain.MaskType, feather float64, inverted bool) (id, src string, err error)

// MaskParams are the mask fields that require a new matte when they change.
type MaskParams struct {
	Type     domain.MaskType
	Feather  float64
	Inverted bool
}

func maskTarget(d domain.Document, id string) (domain.ImageLayer, error) {
	_, kind, err := resolveLayer(d, id)
	if err != nil {
		return domain.ImageLayer{}, err
	}
	if kind != domain.KindImage {
		return domain.ImageLayer{}, invalid("layer %q is a %s, masks apply to images", id, kind)
	}
	img, _ := d.Image(id)
	return img, nil
}

func withMatte(m domain.Mask, gen MatteFunc) (domain.Mask, error) {
	id, src, err := gen(m.Type, m.Feather, m.Inverted)
	if err != nil {
		return m, err
	}
	m.MatteID, m.MatteSrc = id, src
	return m, nil
}

// EnableMask turns masking on for image id. A layer without mask state starts from
// domain.DefaultMask; an existing mask keeps its parameters. t may be empty to keep the
// current type.
func EnableMask(d domain.Document, id string, t domain.MaskType, gen MatteFunc) (domain.Document, error) {
	img, err := maskTarget(d, id)
	if err != nil {
		return d, err
	}
	var m domain.Mask
	if img.Mask == nil {
		if t == "" {
			t = domain.MaskEllipse
		}
		m = domain.DefaultMask(t)
	} else {
		m = *img.Mask
		m.Enabled = true
		if t != "" {
			m.Type = t
		}
	}
	if !m.Type.Valid() {
		return d, invalid("mask type %q", m.Type)
	}
	if m, err = withMatte(m, gen); err != nil {
		return d, err
	}
	img.Mask = &m
	return d.ReplaceEntity(img), nil
}

// SetMaskParams changes type, feather or inversion and regenerates the matte.
// Unchanged parameters leave the document as is.
func SetMaskParams(d domain.Document, id string, p MaskParams, gen MatteFunc) (domain.Document, error) {
	if !p.Type.Valid() {
		return d, invalid("mask type %q", p.Type)
	}
	if !domain.Finite(p.Feather) || p.Feather < 0 || p.Feather > 100 {
		return d, invalid("feather %g outside [0, 100]", p.Feather)
	}
	img, err := maskTarget(d, id)
	if err != nil {
		return d, err
	}
	m := domain.DefaultMask(p.Type)
	if img.Mask != nil {
		m = *img.Mask
		if m.Type == p.Type && m.Feather == p.Feather && m.Inverted == p.Inverted && m.MatteID != "" {
			return d, nil
		}
	}
	m.Type, m.Feather, m.Inverted = p.Type, p.Feather, p.Inverted
	if m, err = withMatte(m, gen); err != nil {
		return d, err
	}
	img.Mask = &m
	return d.ReplaceEntity(img), nil
}

// SetMaskTransform moves and scales the mask content independently of the layer.
func SetMaskTransform(d domain.Document, id string, scale, offsetX, offsetY float64) (domain.Document, error) {
	if !domain.Finite(scale, offsetX, offsetY) || scale <= 0 {
		return d, invalid("mask transform %g (%g, %g)", scale, offsetX, offsetY)
	}
	img, err := maskTarget(d, id)
	if err != nil {
		return d, err
	}
	if img.Mask == nil {
		return d, invalid("layer %q has no mask", id)
	}
	m := *img.Mask
	m.Scale, m.OffsetX, m.OffsetY = scale, offsetX, offsetY
	img.Mask = &m
	return d.ReplaceEntity(img), nil
}

// DisableMask drops the matte and every mask parameter. Re-enabling starts from defaults.
func DisableMask(d domain.Document, id string) (domain.Document, error) {
	img, err := maskTarget(d, id)
	if err != nil {
		return d, err
	}
	if img.Mask == nil {
		return d, nil
	}
	img.Mask = nil
	return d.ReplaceEntity(img), nil
}
