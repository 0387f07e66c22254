/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package domain defines the layered document (scene graph) of Canvas Studio.
//
// A Document is a value. Updaters receive one and return the next; slices are
// shared between versions and must never be modified in place. Helpers in this
// package copy only the branch they touch.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// GlobalFXID is the sentinel entry of LayerOrder standing for the canvas-wide effect pass.
const GlobalFXID = "global-fx"

// Legacy text slots every new document starts with.
const (
	HeadlineID = "headline"
	SubtitleID = "subtitle"
)

// DraftID is the reserved id of an unsaved scratch document.
const DraftID = "draft"

// Document is the aggregate edited by every panel.
// LayerOrder encodes z-order: index 0 is bottom-most, the last entry is top-most.
type Document struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Canvas      Canvas       `json:"canvas"`
	ImageLayers []ImageLayer `json:"imageLayers"`
	Texts       []TextLayer  `json:"texts"`
	Shapes      []ShapeLayer `json:"shapes"`
	Groups      []Group      `json:"groups"`
	LayerOrder  []string     `json:"layerOrder"`
	Stash       []Asset      `json:"stash"`
	Clips       []VideoClip  `json:"clips"`
	Scenes      []StoryScene `json:"scenes"`
}

// Canvas holds document-wide settings.
type Canvas struct {
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	Background     Background `json:"background"`
	Effects        *EffectSet `json:"effects"`
	EffectsEnabled bool       `json:"effectsEnabled"`
	EffectsLocked  bool       `json:"effectsLocked"`
	ShowGuides     bool       `json:"showGuides"`
	ShowRulers     bool       `json:"showRulers"`
	SafeArea       float64    `json:"safeArea"`
}

// BackgroundMode selects which of the retained background settings is presented.
type BackgroundMode string

const (
	BackgroundSolid    BackgroundMode = "solid"
	BackgroundGradient BackgroundMode = "gradient"
	BackgroundImage    BackgroundMode = "image"
	BackgroundPattern  BackgroundMode = "pattern"
)

// Valid reports whether m is one of the four presentations.
func (m BackgroundMode) Valid() bool {
	switch m {
	case BackgroundSolid, BackgroundGradient, BackgroundImage, BackgroundPattern:
		return true
	}
	return false
}

// Background keeps the settings of all four presentations; only Mode is active.
type Background struct {
	Mode     BackgroundMode `json:"mode"`
	Color    string         `json:"color"`
	Gradient Gradient       `json:"gradient"`
	Image    BackdropImage  `json:"image"`
	Pattern  Pattern        `json:"pattern"`
}

type Gradient struct {
	Kind  string  `json:"kind"` // linear | radial
	From  string  `json:"from"`
	To    string  `json:"to"`
	Angle float64 `json:"angle"`
}

type BackdropImage struct {
	Src     string  `json:"src"`
	Fit     string  `json:"fit"` // cover | contain
	Opacity float64 `json:"opacity"`
}

type Pattern struct {
	Kind  string  `json:"kind"` // dots | grid | stripes
	Color string  `json:"color"`
	Scale float64 `json:"scale"`
}

// NewID returns a fresh entity identifier.
func NewID() string { return uuid.NewString() }

// Now returns the current time in the form stored on documents (UTC, millisecond precision).
func Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// NewDocument builds an empty project with the legacy headline/subtitle slots.
func NewDocument(name string, width, height int) Document {
	now := Now()
	headline := TextLayer{
		Layer:      Layer{ID: HeadlineID, Name: "Headline", X: float64(width) * 0.1, Y: float64(height) * 0.1, Width: float64(width) * 0.8, Height: 120, Opacity: 1},
		Text:       "Your headline",
		FontFamily: "Inter",
		FontSize:   72,
		FontWeight: 800,
		Color:      "#ffffff",
		Align:      "center",
		LineHeight: 1.1,
	}
	subtitle := TextLayer{
		Layer:      Layer{ID: SubtitleID, Name: "Subtitle", X: float64(width) * 0.1, Y: float64(height)*0.1 + 140, Width: float64(width) * 0.8, Height: 60, Opacity: 1},
		Text:       "Supporting line",
		FontFamily: "Inter",
		FontSize:   32,
		FontWeight: 400,
		Color:      "#e5e7eb",
		Align:      "center",
		LineHeight: 1.3,
	}
	return Document{
		ID:        NewID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Canvas: Canvas{
			Width:  width,
			Height: height,
			Background: Background{
				Mode:     BackgroundSolid,
				Color:    "#111827",
				Gradient: Gradient{Kind: "linear", From: "#111827", To: "#4f46e5", Angle: 135},
				Image:    BackdropImage{Fit: "cover", Opacity: 1},
				Pattern:  Pattern{Kind: "dots", Color: "#ffffff22", Scale: 1},
			},
			EffectsEnabled: true,
		},
		ImageLayers: []ImageLayer{},
		Texts:       []TextLayer{headline, subtitle},
		Shapes:      []ShapeLayer{},
		Groups:      []Group{},
		LayerOrder:  []string{GlobalFXID, HeadlineID, SubtitleID},
		Stash:       []Asset{},
		Clips:       []VideoClip{},
		Scenes:      []StoryScene{},
	}
}
