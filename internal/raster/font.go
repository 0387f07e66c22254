/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package raster

import (
	"fmt"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	fontsErr  error
)

func loadFonts() {
	if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
		fontsErr = fmt.Errorf("parse regular font: %w", fontsErr)
		return
	}
	if bold, fontsErr = truetype.Parse(gobold.TTF); fontsErr != nil {
		fontsErr = fmt.Errorf("parse bold font: %w", fontsErr)
	}
}

// Face returns a face of the bundled Go font. Weights of 600 and up use the bold cut.
// Document font families are not embedded; every family renders with this face.
func Face(size float64, weight int) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}
	f := regular
	if weight >= 600 {
		f = bold
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}), nil
}
