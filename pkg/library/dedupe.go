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

// Dedupe collapses entries sharing a normalized path down to one per path,
// keeping the entry with the longest text. Ties keep the earliest-seen entry
// so repeated passes are deterministic. Input order is otherwise preserved
// and the function is idempotent: a set that is already unique comes back
// unchanged.
func Dedupe(entries []Entry) []Entry {
	if len(entries) < 2 {
		return entries
	}

	best := make(map[string]int, len(entries))
	for i := range entries {
		key := PathKey(entries[i].Path)
		kept, ok := best[key]
		if !ok {
			best[key] = i
			continue
		}
		if len(entries[i].Text) > len(entries[kept].Text) {
			best[key] = i
		}
	}

	if len(best) == len(entries) {
		return entries
	}

	unique := make([]Entry, 0, len(best))
	for i := range entries {
		if best[PathKey(entries[i].Path)] == i {
			unique = append(unique, entries[i])
		}
	}

	return unique
}
