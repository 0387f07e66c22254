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
	"slices"

	"canvasstudio/internal/domain"
)

// Selection is the ordered set of selected ids. The last id is the primary target of
// single-layer panels; LastActive anchors range selection.
type Selection struct {
	IDs        []string
	LastActive string
}

// Click replaces the selection with id.
func (s Selection) Click(id string) Selection {
	return Selection{IDs: []string{id}, LastActive: id}
}

// ToggleClick adds or removes id without touching the rest.
func (s Selection) ToggleClick(id string) Selection {
	if i := slices.Index(s.IDs, id); i >= 0 {
		return Selection{IDs: slices.Delete(slices.Clone(s.IDs), i, i+1), LastActive: id}
	}
	return Selection{IDs: append(slices.Clip(s.IDs), id), LastActive: id}
}

// RangeClick selects the inclusive run of display between LastActive and id, ending at
// id. Without a usable anchor it behaves like Click. The anchor is kept.
func (s Selection) RangeClick(id string, display []string) Selection {
	from, to := slices.Index(display, s.LastActive), slices.Index(display, id)
	if from < 0 || to < 0 {
		return s.Click(id)
	}
	ids := make([]string, 0, abs(to-from)+1)
	step := 1
	if to < from {
		step = -1
	}
	for i := from; ; i += step {
		ids = append(ids, display[i])
		if i == to {
			break
		}
	}
	return Selection{IDs: ids, LastActive: s.LastActive}
}

// ClickGroupHeader selects every member of g as a unit.
func (s Selection) ClickGroupHeader(g domain.Group) Selection {
	if len(g.LayerIDs) == 0 {
		return Selection{}
	}
	return Selection{IDs: slices.Clone(g.LayerIDs), LastActive: g.LayerIDs[len(g.LayerIDs)-1]}
}

func (s Selection) Clear() Selection { return Selection{} }

// Primary is the last selected id, or "".
func (s Selection) Primary() string {
	if len(s.IDs) == 0 {
		return ""
	}
	return s.IDs[len(s.IDs)-1]
}

func (s Selection) Contains(id string) bool { return slices.Contains(s.IDs, id) }

// Prune drops ids that no longer resolve in d.
func (s Selection) Prune(d domain.Document) Selection {
	gone := func(id string) bool {
		_, _, ok := d.Resolve(id)
		return !ok
	}
	if !slices.ContainsFunc(s.IDs, gone) && (s.LastActive == "" || !gone(s.LastActive)) {
		return s
	}
	out := Selection{IDs: slices.DeleteFunc(slices.Clone(s.IDs), gone), LastActive: s.LastActive}
	if out.LastActive != "" && gone(out.LastActive) {
		out.LastActive = out.Primary()
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
