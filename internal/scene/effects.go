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
	"maps"
	"slices"

	"canvasstudio/internal/domain"
)

func checkEffect(key domain.EffectKey, value float64) error {
	if !key.Known() {
		return invalid("unknown effect %q", key)
	}
	lo, hi := key.Range()
	if !domain.Finite(value) || value < lo || value > hi {
		return invalid("effect %s=%g outside [%g, %g]", key, value, lo, hi)
	}
	return nil
}

// UpdateEffect overlays key=value on the target's effect set and turns the target's
// effect pipeline on. Every other key keeps its previous or identity value.
// The sentinel id routes to UpdateGlobalEffect.
func UpdateEffect(d domain.Document, id string, key domain.EffectKey, value float64) (domain.Document, error) {
	if err := checkEffect(key, value); err != nil {
		return d, err
	}
	if id == domain.GlobalFXID {
		return UpdateGlobalEffect(d, key, value)
	}
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer {
		l.Effects = l.Effects.With(key, value)
		l.EffectsEnabled = true
		return l
	})
	return d, nil
}

// SetShadowColor sets the drop-shadow color of id with the same activation rule as UpdateEffect.
func SetShadowColor(d domain.Document, id, color string) (domain.Document, error) {
	if color == "" {
		return d, invalid("empty shadow color")
	}
	if id == domain.GlobalFXID {
		d.Canvas.Effects = d.Canvas.Effects.WithShadowColor(color)
		d.Canvas.EffectsEnabled = true
		return d, nil
	}
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer {
		l.Effects = l.Effects.WithShadowColor(color)
		l.EffectsEnabled = true
		return l
	})
	return d, nil
}

// UpdateGlobalEffect applies the same merge rule to the canvas-level set.
func UpdateGlobalEffect(d domain.Document, key domain.EffectKey, value float64) (domain.Document, error) {
	if err := checkEffect(key, value); err != nil {
		return d, err
	}
	d.Canvas.Effects = d.Canvas.Effects.With(key, value)
	d.Canvas.EffectsEnabled = true
	return d, nil
}

// ResetEffects restores the complete identity set on id.
func ResetEffects(d domain.Document, id string) (domain.Document, error) {
	if id == domain.GlobalFXID {
		return ResetGlobalEffects(d), nil
	}
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer {
		l.Effects = domain.IdentityEffects()
		return l
	})
	return d, nil
}

// SetEffectsEnabled switches the effect pipeline of id without touching its parameters.
func SetEffectsEnabled(d domain.Document, id string, enabled bool) (domain.Document, error) {
	if id == domain.GlobalFXID {
		return SetGlobalFXHidden(d, !enabled), nil
	}
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer { l.EffectsEnabled = enabled; return l })
	return d, nil
}

var presets = map[string]map[domain.EffectKey]float64{
	"vivid":   {domain.FxSaturate: 1.45, domain.FxContrast: 1.15, domain.FxVibrance: 25, domain.FxClarity: 10},
	"noir":    {domain.FxGrayscale: 1, domain.FxContrast: 1.35, domain.FxVignette: 35, domain.FxGrain: 12},
	"warm":    {domain.FxTemperature: 30, domain.FxSaturate: 1.1, domain.FxBrightness: 1.05},
	"cool":    {domain.FxTemperature: -30, domain.FxTint: -5, domain.FxSaturate: 0.95},
	"vintage": {domain.FxSepia: 0.45, domain.FxContrast: 0.9, domain.FxVignette: 40, domain.FxGrain: 20, domain.FxBlacks: 15},
	"fade":    {domain.FxContrast: 0.8, domain.FxBlacks: 25, domain.FxSaturate: 0.8},
}

// Presets lists the preset names in stable order.
func Presets() []string {
	return slices.Sorted(maps.Keys(presets))
}

// ApplyPreset replaces the effect set of id with the identity set overlaid by the named preset.
func ApplyPreset(d domain.Document, id, name string) (domain.Document, error) {
	p, ok := presets[name]
	if !ok {
		return d, invalid("unknown preset %q", name)
	}
	set := domain.IdentityEffects()
	for k, v := range p {
		set = set.With(k, v)
	}
	if id == domain.GlobalFXID {
		d.Canvas.Effects = set
		d.Canvas.EffectsEnabled = true
		return d, nil
	}
	if _, _, err := resolveLayer(d, id); err != nil {
		return d, err
	}
	d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer {
		l.Effects = set
		l.EffectsEnabled = true
		return l
	})
	return d, nil
}
