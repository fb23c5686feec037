// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package upload

import (
	"fmt"
	"strings"
)

const (
	collageColumns  = 2
	collageTileSize = 400
	collageMaxTiles = 12
)

// CollageURL assembles a Cloudinary transformation URL that renders the
// team's photos as a grid collage. The first public ID becomes the base
// layer, the rest are stacked as positioned overlays. At most
// collageMaxTiles photos are included; an empty input yields "".
//
// Layer references replace the / in a public ID with : per Cloudinary's
// overlay syntax.
func CollageURL(cloudName string, publicIDs []string) string {
	if cloudName == "" || len(publicIDs) == 0 {
		return ""
	}
	if len(publicIDs) > collageMaxTiles {
		publicIDs = publicIDs[:collageMaxTiles]
	}

	rows := (len(publicIDs) + collageColumns - 1) / collageColumns
	canvasW := collageTileSize * collageColumns
	canvasH := collageTileSize * rows

	var b strings.Builder
	fmt.Fprintf(&b, "https://res.cloudinary.com/%s/image/upload/", cloudName)
	// Base canvas: first photo cropped to its tile, padded onto the grid.
	fmt.Fprintf(&b, "w_%d,h_%d,c_fill/", collageTileSize, collageTileSize)
	fmt.Fprintf(&b, "w_%d,h_%d,c_pad,b_black,g_north_west/", canvasW, canvasH)

	for i, id := range publicIDs[1:] {
		idx := i + 1
		x := (idx % collageColumns) * collageTileSize
		y := (idx / collageColumns) * collageTileSize
		fmt.Fprintf(&b, "l_%s,w_%d,h_%d,c_fill/fl_layer_apply,g_north_west,x_%d,y_%d/",
			layerRef(id), collageTileSize, collageTileSize, x, y)
	}

	b.WriteString(publicIDs[0])
	b.WriteString(".jpg")
	return b.String()
}

func layerRef(publicID string) string {
	return strings.ReplaceAll(publicID, "/", ":")
}
