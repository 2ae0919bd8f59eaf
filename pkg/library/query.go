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
	"slices"
	"strings"
)

// Query is a filter tuple evaluated against the canonical set.
type Query struct {
	Text       string
	Collection string
	PinnedOnly bool
}

// RunQuery filters entries by collection/pin state first, then by free text.
// A free-text match is a plain OR: path substring, raw text substring (both
// case-insensitive), or normalized text containing the normalized query.
// There is no ranking; results come back newest first.
func RunQuery(entries []Entry, q Query) []Entry {
	filtered := make([]Entry, 0, len(entries))
	for i := range entries {
		if q.PinnedOnly && !entries[i].Pinned {
			continue
		}
		if q.Collection != "" && !hasCollection(&entries[i], q.Collection) {
			continue
		}
		filtered = append(filtered, entries[i])
	}

	text := strings.TrimSpace(q.Text)
	if text != "" {
		lower := strings.ToLower(text)
		normalized := NormalizeSearchText(text)

		matched := filtered[:0]
		for i := range filtered {
			if matchesText(&filtered[i], lower, normalized) {
				matched = append(matched, filtered[i])
			}
		}
		filtered = matched
	}

	SortEntries(filtered)
	return filtered
}

func hasCollection(e *Entry, collection string) bool {
	if slices.Contains(e.Tags, collection) {
		return true
	}
	return slices.Contains(e.CustomTags, collection)
}

func matchesText(e *Entry, lowerQuery, normalizedQuery string) bool {
	if strings.Contains(strings.ToLower(e.Path), lowerQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Text), lowerQuery) {
		return true
	}
	return normalizedQuery != "" &&
		strings.Contains(NormalizeSearchText(e.Text), normalizedQuery)
}

// Navigate returns the index reached by moving delta steps (usually +1 or -1)
// from the entry at currentPath, wrapping around at either end. If
// currentPath is not in the list the cursor defaults to index 0. Returns
// false only when the list is empty.
func Navigate(entries []Entry, currentPath string, delta int) (int, bool) {
	if len(entries) == 0 {
		return 0, false
	}

	current := -1
	for i := range entries {
		if PathsEqual(entries[i].Path, currentPath) {
			current = i
			break
		}
	}
	if current < 0 {
		return 0, true
	}

	n := len(entries)
	return ((current+delta)%n + n) % n, true
}
