/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package aigen is the contract between the studio flows and the external AI
// generation service, plus an HTTP implementation of it.
package aigen

import "context"

// AspectRatio is the output frame requested from the service.
type AspectRatio string

const (
	Square    AspectRatio = "1:1"
	Landscape AspectRatio = "16:9"
	Portrait  AspectRatio = "9:16"
	Classic   AspectRatio = "4:3"
	Tall      AspectRatio = "3:4"
)

// Valid reports whether a is one of the supported ratios.
func (a AspectRatio) Valid() bool {
	switch a {
	case Square, Landscape, Portrait, Classic, Tall:
		return true
	}
	return false
}

// ImageRequest asks for one image. References are data URLs; nil means text-to-image.
type ImageRequest struct {
	Prompt      string      `json:"prompt"`
	AspectRatio AspectRatio `json:"aspectRatio"`
	References  []string    `json:"references,omitempty"`
}

// Image is a generated picture as a data URL.
type Image struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// VideoRequest starts a video job. ContinuationOf carries the provider handle of the
// clip to extend; it is exclusive with References.
type VideoRequest struct {
	Prompt         string      `json:"prompt"`
	AspectRatio    AspectRatio `json:"aspectRatio"`
	Resolution     string      `json:"resolution"`
	References     []string    `json:"references,omitempty"`
	ContinuationOf string      `json:"continuationOf,omitempty"`
}

// Video is a finished clip. Handle is the provider reference needed to extend it.
type Video struct {
	Src    string `json:"src"`
	Handle string `json:"handle"`
}

// PollResult is one observation of a long-running job.
type PollResult struct {
	Done  bool
	Video *Video
	Err   error
}

// Job is a long-running video generation.
type Job interface {
	ID() string
	Poll(ctx context.Context) (PollResult, error)
}

// Box is a detection rectangle in normalised [0,1] image coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Detection struct {
	Label string `json:"label"`
	Box   Box    `json:"box"`
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role        string   `json:"role"` // user | model
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

// Service is the AI generation collaborator. Implementations must allow parallel calls.
type Service interface {
	GenerateImage(ctx context.Context, req ImageRequest) (Image, error)
	GenerateVideo(ctx context.Context, req VideoRequest) (Job, error)
	DescribeImage(ctx context.Context, image string) (string, error)
	DetectObjects(ctx context.Context, image string) ([]Detection, error)
	RefinePrompt(ctx context.Context, text string) (string, error)
	Chat(ctx context.Context, history []ChatMessage, msg ChatMessage) (string, error)
}
