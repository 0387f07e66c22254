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
	"errors"
	"slices"
	"testing"

	"canvasstudio/internal/domain"
)

func TestDeleteCascadesIntoGroups(t *testing.T) {
	d := docWith(domain.GlobalFXID, "A", "B", "C")
	d, gid, err := Group(d, []string{"A", "B"}, "G")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if !slices.Equal(d.LayerOrder, []string{domain.GlobalFXID, "A", "B", "C"}) {
		t.Fatalf("grouping reordered layers: %v", d.LayerOrder)
	}

	d, err = DeleteLayer(d, "A")
	if err != nil {
		t.Fatalf("DeleteLayer A: %v", err)
	}
	g, _, ok := d.GroupByID(gid)
	if !ok || !slices.Equal(g.LayerIDs, []string{"B"}) {
		t.Fatalf("group after deleting A = %+v (found %v)", g, ok)
	}
	mustValid(t, d)

	d, err = DeleteLayer(d, "B")
	if err != nil {
		t.Fatalf("DeleteLayer B: %v", err)
	}
	if _, _, ok := d.GroupByID(gid); ok {
		t.Fatalf("empty group still exists")
	}
	mustValid(t, d)
}

func TestGroupValidation(t *testing.T) {
	d := docWith(domain.GlobalFXID, "A", "B")
	if _, _, err := Group(d, []string{"A"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("single member err = %v", err)
	}
	if _, _, err := Group(d, []string{"A", "A"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("repeated member err = %v", err)
	}
	if _, _, err := Group(d, []string{"A", "X"}, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown member err = %v", err)
	}
}

func TestRegroupMovesMembership(t *testing.T) {
	d := docWith(domain.GlobalFXID, "A", "B", "C")
	d, first, _ := Group(d, []string{"A", "B"}, "")
	d, second, err := Group(d, []string{"B", "C"}, "")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	g1, _, ok := d.GroupByID(first)
	if !ok || !slices.Equal(g1.LayerIDs, []string{"A"}) {
		t.Fatalf("first group = %+v", g1)
	}
	g2, _, _ := d.GroupByID(second)
	if !slices.Equal(g2.LayerIDs, []string{"B", "C"}) {
		t.Fatalf("second group = %+v", g2)
	}
	mustValid(t, d)
}

func TestCascadingToggles(t *testing.T) {
	d := docWith(domain.GlobalFXID, "A", "B", "C")
	d, gid, _ := Group(d, []string{"A", "B"}, "")
	d, err := SetGroupHidden(d, gid, true)
	if err != nil {
		t.Fatalf("SetGroupHidden: %v", err)
	}
	d, err = SetGroupLocked(d, gid, true)
	if err != nil {
		t.Fatalf("SetGroupLocked: %v", err)
	}
	for _, id := range []string{"A", "B"} {
		img, _ := d.Image(id)
		if !img.Hidden || !img.Locked {
			t.Fatalf("%s not cascaded: %+v", id, img.Layer)
		}
	}
	if c, _ := d.Image("C"); c.Hidden || c.Locked {
		t.Fatalf("non-member touched")
	}

	d, err = Ungroup(d, gid)
	if err != nil {
		t.Fatalf("Ungroup: %v", err)
	}
	if a, _ := d.Image("A"); !a.Hidden || !a.Locked {
		t.Fatalf("ungroup reset member flags")
	}
	if len(d.Groups) != 0 {
		t.Fatalf("group survived ungroup")
	}
	if _, err := Ungroup(d, gid); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second ungroup err = %v", err)
	}
}

func TestMergeSplicesAtTopmostMember(t *testing.T) {
	d := docWith(domain.GlobalFXID, "A", "B", "C", "D")
	targets, err := MergeTargets(d, []string{"D", "B"}, "")
	if err != nil {
		t.Fatalf("MergeTargets: %v", err)
	}
	if !slices.Equal(targets, []string{"B", "D"}) {
		t.Fatalf("targets = %v, want bottom to top", targets)
	}
	merged := domain.ImageLayer{Layer: domain.Layer{ID: "M", Width: 10, Height: 10, Opacity: 1}}
	d, err = SpliceMerged(d, targets, merged)
	if err != nil {
		t.Fatalf("SpliceMerged: %v", err)
	}
	if want := []string{domain.GlobalFXID, "A", "C", "M"}; !slices.Equal(d.LayerOrder, want) {
		t.Fatalf("order = %v, want %v", d.LayerOrder, want)
	}
	if _, _, ok := d.Resolve("B"); ok {
		t.Fatalf("merged original still present")
	}
	mustValid(t, d)
}

func TestMergeGroupDeletesGroup(t *testing.T) {
	d := docWith(domain.GlobalFXID, "A", "B", "C")
	d, gid, _ := Group(d, []string{"C", "A"}, "")
	targets, err := MergeTargets(d, nil, gid)
	if err != nil {
		t.Fatalf("MergeTargets: %v", err)
	}
	d, err = SpliceMerged(d, targets, domain.ImageLayer{Layer: domain.Layer{ID: "M", Width: 1, Height: 1}})
	if err != nil {
		t.Fatalf("SpliceMerged: %v", err)
	}
	if len(d.Groups) != 0 {
		t.Fatalf("merged group still exists: %+v", d.Groups)
	}
	if want := []string{domain.GlobalFXID, "B", "M"}; !slices.Equal(d.LayerOrder, want) {
		t.Fatalf("order = %v, want %v", d.LayerOrder, want)
	}
	if _, err := MergeTargets(d, []string{"B"}, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("single target err = %v", err)
	}
}
