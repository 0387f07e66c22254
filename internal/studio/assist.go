/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package studio

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"canvasstudio/internal/aigen"
	"canvasstudio/internal/domain"
	"canvasstudio/internal/scene"
)

// Assist wraps the single-shot helpers of the studio: describing and analysing a
// layer, refining a prompt and a running chat. They read a snapshot and never commit.
type Assist struct {
	svc aigen.Service
	doc func() domain.Document

	mu      sync.Mutex
	history []aigen.ChatMessage
}

// NewAssist reads images from doc, typically Editor.Document.
func NewAssist(svc aigen.Service, doc func() domain.Document) *Assist {
	return &Assist{svc: svc, doc: doc}
}

func (a *Assist) imageSrc(layerID string) (string, error) {
	img, ok := a.doc().Image(layerID)
	if !ok {
		return "", fmt.Errorf("image layer %q: %w", layerID, domain.ErrNotFound)
	}
	return img.Src, nil
}

// Describe returns a caption for an image layer.
func (a *Assist) Describe(ctx context.Context, layerID string) (string, error) {
	src, err := a.imageSrc(layerID)
	if err != nil {
		return "", err
	}
	return a.svc.DescribeImage(ctx, src)
}

// Detect lists the objects found in an image layer.
func (a *Assist) Detect(ctx context.Context, layerID string) ([]aigen.Detection, error) {
	src, err := a.imageSrc(layerID)
	if err != nil {
		return nil, err
	}
	return a.svc.DetectObjects(ctx, src)
}

func (a *Assist) Refine(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", scene.ErrValidation)
	}
	return a.svc.RefinePrompt(ctx, prompt)
}

// Chat sends text with optional attachments and records both turns on success.
func (a *Assist) Chat(ctx context.Context, text string, attachments ...string) (string, error) {
	a.mu.Lock()
	history := slices.Clone(a.history)
	a.mu.Unlock()

	msg := aigen.ChatMessage{Role: "user", Text: text, Attachments: attachments}
	reply, err := a.svc.Chat(ctx, history, msg)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.history = append(a.history, msg, aigen.ChatMessage{Role: "model", Text: reply})
	a.mu.Unlock()
	return reply, nil
}

func (a *Assist) History() []aigen.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.history)
}

func (a *Assist) ResetChat() {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
}
