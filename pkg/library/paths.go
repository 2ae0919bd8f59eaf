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

import (
	"path/filepath"
	"strings"
)

// NormalizePath canonicalizes a path for identity use: surrounding
// whitespace is trimmed, separators become forward slashes, runs of
// separators collapse to one, and a single trailing separator is stripped.
// Display case is preserved. An empty path stays empty and never matches a
// real Entry.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}

	p := strings.ReplaceAll(path, "\\", "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}

	return p
}

// PathKey returns the case-folded normalized form used for identity
// comparisons and grouping. Display paths keep their original casing.
func PathKey(path string) string {
	return strings.ToLower(NormalizePath(path))
}

// PathsEqual reports whether two paths identify the same artifact. Empty
// paths never match anything, including each other.
func PathsEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return PathKey(a) == PathKey(b)
}

// PathExt returns the lowercased extension of a path, including the dot.
func PathExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
