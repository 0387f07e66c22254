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

import "maps"

// EffectKey names one scalar parameter of the effect pipeline.
type EffectKey string

const (
	FxBrightness    EffectKey = "brightness"
	FxContrast      EffectKey = "contrast"
	FxExposure      EffectKey = "exposure"
	FxHighlights    EffectKey = "highlights"
	FxShadows       EffectKey = "shadows"
	FxWhites        EffectKey = "whites"
	FxBlacks        EffectKey = "blacks"
	FxSaturate      EffectKey = "saturate"
	FxVibrance      EffectKey = "vibrance"
	FxHueRotate     EffectKey = "hueRotate"
	FxTemperature   EffectKey = "temperature"
	FxTint          EffectKey = "tint"
	FxGrayscale     EffectKey = "grayscale"
	FxSepia         EffectKey = "sepia"
	FxInvert        EffectKey = "invert"
	FxBlur          EffectKey = "blur"
	FxBackdropBlur  EffectKey = "backdropBlur"
	FxClarity       EffectKey = "clarity"
	FxDehaze        EffectKey = "dehaze"
	FxVignette      EffectKey = "vignette"
	FxGrain         EffectKey = "grain"
	FxSkewX         EffectKey = "skewX"
	FxSkewY         EffectKey = "skewY"
	FxShadowX       EffectKey = "shadowX"
	FxShadowY       EffectKey = "shadowY"
	FxShadowBlur    EffectKey = "shadowBlur"
	FxShadowOpacity EffectKey = "shadowOpacity"
)

// DefaultShadowColor is the identity drop-shadow color.
const DefaultShadowColor = "#000000"

type effectSpec struct {
	identity float64
	min, max float64
}

var effectSpecs = map[EffectKey]effectSpec{
	FxBrightness:    {1, 0, 3},
	FxContrast:      {1, 0, 3},
	FxExposure:      {0, -100, 100},
	FxHighlights:    {0, -100, 100},
	FxShadows:       {0, -100, 100},
	FxWhites:        {0, -100, 100},
	FxBlacks:        {0, -100, 100},
	FxSaturate:      {1, 0, 3},
	FxVibrance:      {0, -100, 100},
	FxHueRotate:     {0, 0, 360},
	FxTemperature:   {0, -100, 100},
	FxTint:          {0, -100, 100},
	FxGrayscale:     {0, 0, 1},
	FxSepia:         {0, 0, 1},
	FxInvert:        {0, 0, 1},
	FxBlur:          {0, 0, 100},
	FxBackdropBlur:  {0, 0, 100},
	FxClarity:       {0, -100, 100},
	FxDehaze:        {0, -100, 100},
	FxVignette:      {0, 0, 100},
	FxGrain:         {0, 0, 100},
	FxSkewX:         {0, -60, 60},
	FxSkewY:         {0, -60, 60},
	FxShadowX:       {0, -500, 500},
	FxShadowY:       {0, -500, 500},
	FxShadowBlur:    {0, 0, 200},
	FxShadowOpacity: {0, 0, 1},
}

// EffectKeys lists every known key.
func EffectKeys() []EffectKey {
	keys := make([]EffectKey, 0, len(effectSpecs))
	for k := range effectSpecs {
		keys = append(keys, k)
	}
	return keys
}

// Known reports whether k is a recognised effect parameter.
func (k EffectKey) Known() bool {
	_, ok := effectSpecs[k]
	return ok
}

// Identity returns the neutral value of k.
func (k EffectKey) Identity() float64 { return effectSpecs[k].identity }

// Range returns the accepted bounds of k.
func (k EffectKey) Range() (float64, float64) {
	s := effectSpecs[k]
	return s.min, s.max
}

// EffectSet is a possibly partial set of effect parameters. A missing key means
// "identity for that key", never zero. Sets are immutable once attached to a layer.
type EffectSet struct {
	Params      map[EffectKey]float64 `json:"params"`
	ShadowColor string                `json:"shadowColor"`
}

// IdentityEffects returns the complete neutral set.
func IdentityEffects() *EffectSet {
	p := make(map[EffectKey]float64, len(effectSpecs))
	for k, s := range effectSpecs {
		p[k] = s.identity
	}
	return &EffectSet{Params: p, ShadowColor: DefaultShadowColor}
}

// Get returns the value of k, defaulting to identity. A nil set reads as identity.
func (e *EffectSet) Get(k EffectKey) float64 {
	if e != nil {
		if v, ok := e.Params[k]; ok {
			return v
		}
	}
	return k.Identity()
}

// Shadow returns the drop-shadow color, defaulting to identity.
func (e *EffectSet) Shadow() string {
	if e == nil || e.ShadowColor == "" {
		return DefaultShadowColor
	}
	return e.ShadowColor
}

// With returns a copy of e (identity-defaulted when nil) with k set to v.
func (e *EffectSet) With(k EffectKey, v float64) *EffectSet {
	out := e.clone()
	out.Params[k] = v
	return out
}

// WithShadowColor returns a copy of e with the drop-shadow color replaced.
func (e *EffectSet) WithShadowColor(c string) *EffectSet {
	out := e.clone()
	out.ShadowColor = c
	return out
}

func (e *EffectSet) clone() *EffectSet {
	out := &EffectSet{Params: map[EffectKey]float64{}, ShadowColor: DefaultShadowColor}
	if e != nil {
		maps.Copy(out.Params, e.Params)
		if e.ShadowColor != "" {
			out.ShadowColor = e.ShadowColor
		}
	}
	return out
}

// IsIdentity reports whether every parameter resolves to its neutral value.
func (e *EffectSet) IsIdentity() bool {
	for k, s := range effectSpecs {
		if e.Get(k) != s.identity {
			return false
		}
	}
	return e.Shadow() == DefaultShadowColor
}

// DropShadow is the resolved drop-shadow parameter group.
type DropShadow struct {
	X       float64
	Y       float64
	Blur    float64
	Color   string
	Opacity float64
}

// EffectValues is a fully resolved effect set.
type EffectValues struct {
	Brightness, Contrast, Exposure      float64
	Highlights, Shadows, Whites, Blacks float64
	Saturate, Vibrance, HueRotate       float64
	Temperature, Tint                   float64
	Grayscale, Sepia, Invert            float64
	Blur, BackdropBlur, Clarity, Dehaze float64
	Vignette, Grain, SkewX, SkewY       float64
	DropShadow                          DropShadow
}

// Resolved merges e over the identity set.
func (e *EffectSet) Resolved() EffectValues {
	return EffectValues{
		Brightness:   e.Get(FxBrightness),
		Contrast:     e.Get(FxContrast),
		Exposure:     e.Get(FxExposure),
		Highlights:   e.Get(FxHighlights),
		Shadows:      e.Get(FxShadows),
		Whites:       e.Get(FxWhites),
		Blacks:       e.Get(FxBlacks),
		Saturate:     e.Get(FxSaturate),
		Vibrance:     e.Get(FxVibrance),
		HueRotate:    e.Get(FxHueRotate),
		Temperature:  e.Get(FxTemperature),
		Tint:         e.Get(FxTint),
		Grayscale:    e.Get(FxGrayscale),
		Sepia:        e.Get(FxSepia),
		Invert:       e.Get(FxInvert),
		Blur:         e.Get(FxBlur),
		BackdropBlur: e.Get(FxBackdropBlur),
		Clarity:      e.Get(FxClarity),
		Dehaze:       e.Get(FxDehaze),
		Vignette:     e.Get(FxVignette),
		Grain:        e.Get(FxGrain),
		SkewX:        e.Get(FxSkewX),
		SkewY:        e.Get(FxSkewY),
		DropShadow: DropShadow{
			X:       e.Get(FxShadowX),
			Y:       e.Get(FxShadowY),
			Blur:    e.Get(FxShadowBlur),
			Color:   e.Shadow(),
			Opacity: e.Get(FxShadowOpacity),
		},
	}
}
