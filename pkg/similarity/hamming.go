// Glance Core
// Copyright (c) 2025 The Glance Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Glance Core.
//
// Glance Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Glance Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Glance Core.  If not, see <http://www.gnu.org/licenses/>.

// Package similarity groups entries by perceptual hash distance and
// resolves duplicate groups. Hashes are computed by the capture pipeline;
// this package only compares them.
package similarity

import (
	"math"
	"math/bits"

	"github.com/GlanceProject/glance-core/pkg/database"
)

// Distance returns the Hamming distance between two perceptual hashes.
// Hashes of different lengths come from different hash configurations and
// are never considered close.
func Distance(a, b []byte) int {
	if len(a) != len(b) {
		return math.MaxInt
	}
	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist
}

// GroupSimilar partitions hashes into groups whose members are within
// threshold of the group's first member. A single greedy pass in input
// order keeps grouping deterministic. Only groups with at least two
// members are returned.
func GroupSimilar(hashes []database.PerceptualHash, threshold int) [][]string {
	used := make([]bool, len(hashes))
	var groups [][]string

	for i := range hashes {
		if used[i] || len(hashes[i].Hash) == 0 {
			continue
		}
		group := []string{hashes[i].Path}
		for j := i + 1; j < len(hashes); j++ {
			if used[j] {
				continue
			}
			if Distance(hashes[i].Hash, hashes[j].Hash) <= threshold {
				group = append(group, hashes[j].Path)
				used[j] = true
			}
		}
		if len(group) >= 2 {
			used[i] = true
			groups = append(groups, group)
		}
	}

	return groups
}
