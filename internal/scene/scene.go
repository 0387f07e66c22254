/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene holds the pure Document -> Document algorithms behind every panel:
// z-order, grouping and merge splicing, effects, masks, background and the asset stash.
//
// Functions never modify their input. They copy only the branch they change so the
// caller can compare slices by identity.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"canvasstudio/internal/domain"
)

var (
	// ErrValidation rejects a request before it reaches the document.
	ErrValidation = errors.New("invalid request")
	// ErrGlobalFX rejects operations the global-fx sentinel does not support.
	ErrGlobalFX = errors.New("operation not allowed on global fx")
)

func notFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, domain.ErrNotFound)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// resolveLayer resolves id to a real layer, rejecting the sentinel.
func resolveLayer(d domain.Document, id string) (domain.Entity, domain.Kind, error) {
	if id == domain.GlobalFXID {
		return nil, domain.KindGlobalFX, ErrGlobalFX
	}
	e, k, ok := d.Resolve(id)
	if !ok {
		return nil, "", notFound("layer", id)
	}
	return e, k, nil
}

// reorder applies fn to the layer ids without the sentinel and restores the
// sentinel at its pinned slot: first stays first, last stays last, otherwise the
// same absolute index.
func reorder(order []string, fn func([]string) []string) []string {
	at := slices.Index(order, domain.GlobalFXID)
	rest := make([]string, 0, len(order))
	for _, id := range order {
		if id != domain.GlobalFXID {
			rest = append(rest, id)
		}
	}
	rest = fn(rest)
	switch {
	case at < 0:
		return rest
	case at == len(order)-1 && at != 0, at > len(rest):
		return append(rest, domain.GlobalFXID)
	default:
		return slices.Insert(rest, at, domain.GlobalFXID)
	}
}
