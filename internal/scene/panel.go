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

import "canvasstudio/internal/domain"

// Panel identifies the editor panel a selection opens.
type Panel string

const (
	PanelLayers     Panel = "layers"
	PanelCanvas     Panel = "canvas"
	PanelImage      Panel = "image"
	PanelTypography Panel = "typography"
	PanelShapes     Panel = "shapes"
	PanelFX         Panel = "fx"
)

// PanelFor maps the selected id to the panel that edits it. Nothing selected opens the
// canvas panel; a stale id or a group id falls back to the layer list.
func PanelFor(selectedID string, d domain.Document) Panel {
	if selectedID == "" {
		return PanelCanvas
	}
	_, kind, ok := d.Resolve(selectedID)
	if !ok {
		return PanelLayers
	}
	switch kind {
	case domain.KindGlobalFX:
		return PanelFX
	case domain.KindImage:
		return PanelImage
	case domain.KindText:
		return PanelTypography
	case domain.KindShape:
		return PanelShapes
	}
	return PanelLayers
}
