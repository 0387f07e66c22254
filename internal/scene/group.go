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
	"fmt"
	"slices"
	"strings"

	"canvasstudio/internal/domain"
)

// Group creates a group over ids without touching their z-slots. A layer belongs to at
// most one group; it leaves its previous group, which is deleted if it empties.
func Group(d domain.Document, ids []string, name string) (domain.Document, string, error) {
	members := compact(ids)
	if len(members) < 2 {
		return d, "", invalid("a group needs at least two layers, got %d", len(members))
	}
	for _, id := range members {
		if _, _, err := resolveLayer(d, id); err != nil {
			return d, "", err
		}
	}
	d = pruneGroups(d, members)
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Group %d", len(d.Groups)+1)
	}
	g := domain.Group{ID: domain.NewID(), Name: name, LayerIDs: members}
	d.Groups = append(slices.Clip(d.Groups), g)
	return d, g.ID, nil
}

// Ungroup deletes the group. Members keep their z-slots and their last cascaded flags.
func Ungroup(d domain.Document, groupID string) (domain.Document, error) {
	_, i, ok := d.GroupByID(groupID)
	if !ok {
		return d, notFound("group", groupID)
	}
	d.Groups = slices.Delete(slices.Clone(d.Groups), i, i+1)
	return d, nil
}

func updateGroup(d domain.Document, groupID string, fn func(domain.Group) domain.Group) (domain.Document, domain.Group, error) {
	g, i, ok := d.GroupByID(groupID)
	if !ok {
		return d, g, notFound("group", groupID)
	}
	g = fn(g)
	d.Groups = slices.Clone(d.Groups)
	d.Groups[i] = g
	return d, g, nil
}

// SetGroupHidden writes hidden to the group and every member in one step.
func SetGroupHidden(d domain.Document, groupID string, hidden bool) (domain.Document, error) {
	d, g, err := updateGroup(d, groupID, func(g domain.Group) domain.Group { g.Hidden = hidden; return g })
	if err != nil {
		return d, err
	}
	for _, id := range g.LayerIDs {
		d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer { l.Hidden = hidden; return l })
	}
	return d, nil
}

// SetGroupLocked writes locked to the group and every member in one step.
func SetGroupLocked(d domain.Document, groupID string, locked bool) (domain.Document, error) {
	d, g, err := updateGroup(d, groupID, func(g domain.Group) domain.Group { g.Locked = locked; return g })
	if err != nil {
		return d, err
	}
	for _, id := range g.LayerIDs {
		d, _ = d.UpdateEntity(id, func(l domain.Layer) domain.Layer { l.Locked = locked; return l })
	}
	return d, nil
}

func SetGroupCollapsed(d domain.Document, groupID string, collapsed bool) (domain.Document, error) {
	d, _, err := updateGroup(d, groupID, func(g domain.Group) domain.Group { g.Collapsed = collapsed; return g })
	return d, err
}

func RenameGroup(d domain.Document, groupID, name string) (domain.Document, error) {
	if strings.TrimSpace(name) == "" {
		return d, invalid("group name is empty")
	}
	d, _, err := updateGroup(d, groupID, func(g domain.Group) domain.Group { g.Name = name; return g })
	return d, err
}

// pruneGroups drops ids from every group and deletes groups left empty.
// The group slice is copied only when something changes.
func pruneGroups(d domain.Document, ids []string) domain.Document {
	touched := slices.ContainsFunc(d.Groups, func(g domain.Group) bool {
		return slices.ContainsFunc(g.LayerIDs, func(id string) bool { return slices.Contains(ids, id) })
	})
	if !touched {
		return d
	}
	out := make([]domain.Group, 0, len(d.Groups))
	for _, g := range d.Groups {
		g.LayerIDs = slices.DeleteFunc(slices.Clone(g.LayerIDs), func(id string) bool {
			return slices.Contains(ids, id)
		})
		if len(g.LayerIDs) > 0 {
			out = append(out, g)
		}
	}
	d.Groups = out
	return d
}

// MergeTargets resolves the layers a merge collapses, either the members of groupID or
// ids, sorted bottom to top by LayerOrder. That is the compositing order.
func MergeTargets(d domain.Document, ids []string, groupID string) ([]string, error) {
	if groupID != "" {
		g, _, ok := d.GroupByID(groupID)
		if !ok {
			return nil, notFound("group", groupID)
		}
		ids = g.LayerIDs
	}
	targets := compact(ids)
	if len(targets) < 2 {
		return nil, invalid("merge needs at least two layers, got %d", len(targets))
	}
	for _, id := range targets {
		if _, _, err := resolveLayer(d, id); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(targets, func(a, b string) int { return d.IndexInOrder(a) - d.IndexInOrder(b) })
	return targets, nil
}

// SpliceMerged replaces targets by merged. The merged layer takes the z-slot of the
// topmost target; the targets are deleted along with their group memberships.
func SpliceMerged(d domain.Document, targets []string, merged domain.ImageLayer) (domain.Document, error) {
	if len(targets) == 0 {
		return d, invalid("nothing to merge")
	}
	if merged.ID == "" {
		merged.ID = domain.NewID()
	}
	top, topIdx := "", -1
	for _, id := range targets {
		if i := d.IndexInOrder(id); i > topIdx {
			top, topIdx = id, i
		}
	}
	if topIdx < 0 {
		return d, notFound("layer order entry", targets[0])
	}
	order := make([]string, 0, len(d.LayerOrder)-len(targets)+1)
	for _, id := range d.LayerOrder {
		switch {
		case id == top:
			order = append(order, merged.ID)
		case slices.Contains(targets, id):
		default:
			order = append(order, id)
		}
	}
	d = removeLayers(d, targets)
	d = d.AddEntity(merged)
	d.LayerOrder = order
	return d, nil
}

// compact drops empty and repeated ids, keeping the first occurrence.
func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
