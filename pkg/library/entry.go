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

// Package library holds the reconciliation core: the canonical screenshot
// record type and the pure functions that fold incoming OCR events into a
// single, de-duplicated, queryable record set.
package library

import (
	"sort"
	"time"
)

// Entry is the canonical record for one screenshot on disk. There is at most
// one Entry per normalized path, and CreatedAt never changes once the Entry
// exists, even across renames.
type Entry struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Path       string
	Text       string
	Tags       []string
	URLs       []string
	Emails     []string
	CustomTags []string
	Pinned     bool
}

// SortEntries orders entries newest first, ties broken by path ascending so
// the ordering is total and stable across passes.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

// CloneEntries returns a copy of the slice so callers can hand out snapshots
// without sharing the backing array.
func CloneEntries(entries []Entry) []Entry {
	cloned := make([]Entry, len(entries))
	copy(cloned, entries)
	return cloned
}
