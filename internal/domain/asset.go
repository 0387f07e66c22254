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

import "time"

// AssetSource records how an asset entered the stash.
type AssetSource string

const (
	AssetUploaded  AssetSource = "upload"
	AssetGenerated AssetSource = "generated"
)

// Asset is a reusable stash image. Backup=false is a buffer asset, Backup=true a library asset.
// Placing an asset on the canvas copies its payload into a new image layer.
type Asset struct {
	ID        string      `json:"id"`
	Src       string      `json:"src"`
	Name      string      `json:"name"`
	Backup    bool        `json:"backup"`
	CreatedAt time.Time   `json:"createdAt"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Source    AssetSource `json:"source"`
	Prompt    string      `json:"prompt"`
}

// GenStatus is the generation-unit state machine: idle -> generating -> done | error.
type GenStatus string

const (
	StatusIdle       GenStatus = "idle"
	StatusGenerating GenStatus = "generating"
	StatusDone       GenStatus = "done"
	StatusError      GenStatus = "error"
)

// VideoClip is one unit of the cine studio. Handle is the provider reference needed
// to extend the clip; VideoSrc alone cannot be extended.
type VideoClip struct {
	ID             string    `json:"id"`
	Index          int       `json:"index"`
	Prompt         string    `json:"prompt"`
	AspectRatio    string    `json:"aspectRatio"`
	Resolution     string    `json:"resolution"`
	Status         GenStatus `json:"status"`
	VideoSrc       string    `json:"videoSrc"`
	Handle         string    `json:"handle"`
	ContinuationOf string    `json:"continuationOf"`
	Error          string    `json:"error"`
}

// StoryScene is one unit of the story campaign flow.
type StoryScene struct {
	ID       string    `json:"id"`
	Index    int       `json:"index"`
	Title    string    `json:"title"`
	Script   string    `json:"script"`
	Prompt   string    `json:"prompt"`
	Status   GenStatus `json:"status"`
	ImageSrc string    `json:"imageSrc"`
	AssetID  string    `json:"assetId"`
	Error    string    `json:"error"`
}
