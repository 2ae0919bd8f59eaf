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
	"sort"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// ============================================================================
// Generators
// ============================================================================

// entryGen generates entries with paths drawn from a small pool so that
// duplicates and near-duplicates (case, separator variants) occur often.
func entryGen() *rapid.Generator[Entry] {
	return rapid.Custom(func(t *rapid.T) Entry {
		path := rapid.SampledFrom([]string{
			"/shots/a.png",
			"/shots/A.png",
			"/shots//a.png",
			`\shots\a.png`,
			"/shots/b.jpg",
			"/shots/c.webp",
			"/other/d.png",
		}).Draw(t, "path")

		createdUnix := rapid.Int64Range(1_600_000_000, 1_800_000_000).Draw(t, "createdUnix")

		return Entry{
			Path:      path,
			Text:      rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, "text"),
			CreatedAt: time.Unix(createdUnix, 0),
			Pinned:    rapid.Bool().Draw(t, "pinned"),
		}
	})
}

func entriesGen() *rapid.Generator[[]Entry] {
	return rapid.SliceOfN(entryGen(), 0, 12)
}

// ============================================================================
// Dedupe Property Tests
// ============================================================================

// TestPropertyDedupeUniqueKeys verifies no two survivors share a path key.
func TestPropertyDedupeUniqueKeys(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		entries := entriesGen().Draw(t, "entries")
		out := Dedupe(entries)

		seen := make(map[string]bool, len(out))
		for _, e := range out {
			key := PathKey(e.Path)
			if seen[key] {
				t.Fatalf("duplicate key %q after dedupe", key)
			}
			seen[key] = true
		}
	})
}

// TestPropertyDedupeIdempotent verifies a second pass changes nothing.
func TestPropertyDedupeIdempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		entries := entriesGen().Draw(t, "entries")
		once := Dedupe(entries)
		twice := Dedupe(once)

		if len(once) != len(twice) {
			t.Fatalf("second dedupe changed length: %d != %d", len(once), len(twice))
		}
		for i := range once {
			if once[i].Path != twice[i].Path || once[i].Text != twice[i].Text {
				t.Fatalf("second dedupe changed entry %d", i)
			}
		}
	})
}

// TestPropertyDedupeKeepsLongestText verifies survivors carry the longest
// text seen for their key.
func TestPropertyDedupeKeepsLongestText(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		entries := entriesGen().Draw(t, "entries")
		out := Dedupe(entries)

		longest := make(map[string]int)
		for _, e := range entries {
			key := PathKey(e.Path)
			if n := len(e.Text); n > longest[key] {
				longest[key] = n
			}
		}
		for _, e := range out {
			if len(e.Text) != longest[PathKey(e.Path)] {
				t.Fatalf("kept text of length %d for %q, longest was %d",
					len(e.Text), e.Path, longest[PathKey(e.Path)])
			}
		}
	})
}

// ============================================================================
// MergeText Property Tests
// ============================================================================

// TestPropertyMergeKeepsOldTokens verifies augmentation never drops tokens
// from the kept text.
func TestPropertyMergeKeepsOldTokens(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		oldText := rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, "oldText")
		newText := rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, "newText")

		merged := MergeText(oldText, newText)
		if len(strings.TrimSpace(newText)) > len(strings.TrimSpace(oldText)) {
			// longer new text replaces outright, old tokens may go
			return
		}
		mergedTokens := make(map[string]bool)
		for _, tok := range strings.Fields(strings.ToLower(merged)) {
			mergedTokens[tok] = true
		}
		for _, tok := range strings.Fields(strings.ToLower(oldText)) {
			if !mergedTokens[tok] {
				t.Fatalf("token %q from old text missing in merge result %q", tok, merged)
			}
		}
	})
}

// TestPropertyMergeNeverShrinks verifies the result is at least as long as
// the shorter input.
func TestPropertyMergeNeverShrinks(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		oldText := rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, "oldText")
		newText := rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, "newText")

		merged := MergeText(oldText, newText)
		minLen := len(strings.TrimSpace(oldText))
		if n := len(strings.TrimSpace(newText)); n < minLen {
			minLen = n
		}
		if len(merged) < minLen {
			t.Fatalf("merge of %q and %q shrank to %q", oldText, newText, merged)
		}
	})
}

// ============================================================================
// SortEntries Property Tests
// ============================================================================

// TestPropertySortOrder verifies newest-first order with path tiebreak.
func TestPropertySortOrder(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		entries := entriesGen().Draw(t, "entries")
		SortEntries(entries)

		for i := 1; i < len(entries); i++ {
			prev, cur := entries[i-1], entries[i]
			if cur.CreatedAt.After(prev.CreatedAt) {
				t.Fatalf("entry %d is newer than entry %d", i, i-1)
			}
			if cur.CreatedAt.Equal(prev.CreatedAt) && cur.Path < prev.Path {
				t.Fatalf("tie at %d not broken by path", i)
			}
		}
	})
}

// TestPropertySortPermutation verifies sorting never adds or drops entries.
func TestPropertySortPermutation(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		entries := entriesGen().Draw(t, "entries")
		before := make([]string, 0, len(entries))
		for _, e := range entries {
			before = append(before, e.Path+"|"+e.Text)
		}
		SortEntries(entries)
		after := make([]string, 0, len(entries))
		for _, e := range entries {
			after = append(after, e.Path+"|"+e.Text)
		}
		sort.Strings(before)
		sort.Strings(after)
		for i := range before {
			if before[i] != after[i] {
				t.Fatalf("sort changed multiset of entries")
			}
		}
	})
}
