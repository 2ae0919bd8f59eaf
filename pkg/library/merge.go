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

package library

import "strings"

// MergeText combines an Entry's stored text with newly reported text for the
// same artifact. OCR passes are noisy and a later pass is not guaranteed to
// be better, so the policy favors never losing captured text: the longer
// transcription wins outright, and a shorter one can only append tokens the
// stored text is missing.
func MergeText(oldText, newText string) string {
	oldText = strings.TrimSpace(oldText)
	newText = strings.TrimSpace(newText)

	if oldText == "" {
		return newText
	}
	if len(newText) > len(oldText) {
		return newText
	}

	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(oldText)) {
		seen[tok] = struct{}{}
	}

	var unique []string
	for _, tok := range strings.Fields(strings.ToLower(newText)) {
		if _, ok := seen[tok]; !ok {
			unique = append(unique, tok)
			seen[tok] = struct{}{}
		}
	}

	if len(unique) == 0 {
		return oldText
	}

	return strings.TrimSpace(oldText + " " + strings.Join(unique, " "))
}
