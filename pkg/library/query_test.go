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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFixture() []Entry {
	return []Entry{
		{
			Path:      "/shots/meeting-notes.png",
			Text:      "quarterly planning meeting",
			Tags:      []string{"Documents"},
			CreatedAt: time.UnixMilli(4000),
		},
		{
			Path:      "/shots/error.png",
			Text:      "panic: runtime error",
			Tags:      []string{"Errors"},
			CreatedAt: time.UnixMilli(3000),
			Pinned:    true,
		},
		{
			Path:       "/shots/chat.png",
			Text:       "iol that was funny",
			Tags:       []string{"Messages"},
			CustomTags: []string{"friends"},
			CreatedAt:  time.UnixMilli(2000),
		},
	}
}

func TestRunQueryNoFilters(t *testing.T) {
	t.Parallel()

	results := RunQuery(queryFixture(), Query{})
	require.Len(t, results, 3)
	// newest first
	assert.Equal(t, "/shots/meeting-notes.png", results[0].Path)
	assert.Equal(t, "/shots/chat.png", results[2].Path)
}

func TestRunQueryCollectionFilter(t *testing.T) {
	t.Parallel()

	results := RunQuery(queryFixture(), Query{Collection: "Errors"})
	require.Len(t, results, 1)
	assert.Equal(t, "/shots/error.png", results[0].Path)

	// custom tags act as collections too
	results = RunQuery(queryFixture(), Query{Collection: "friends"})
	require.Len(t, results, 1)
	assert.Equal(t, "/shots/chat.png", results[0].Path)
}

func TestRunQueryPinnedOnly(t *testing.T) {
	t.Parallel()

	results := RunQuery(queryFixture(), Query{PinnedOnly: true})
	require.Len(t, results, 1)
	assert.Equal(t, "/shots/error.png", results[0].Path)
}

func TestRunQueryFreeTextMatchesPathAndText(t *testing.T) {
	t.Parallel()

	// path substring, case-insensitive
	results := RunQuery(queryFixture(), Query{Text: "MEETING-notes"})
	require.Len(t, results, 1)
	assert.Equal(t, "/shots/meeting-notes.png", results[0].Path)

	// raw text substring
	results = RunQuery(queryFixture(), Query{Text: "runtime"})
	require.Len(t, results, 1)
	assert.Equal(t, "/shots/error.png", results[0].Path)
}

func TestRunQueryMatchesOcrConfusedText(t *testing.T) {
	t.Parallel()

	// stored text says "iol" but the user searches for "lol"
	results := RunQuery(queryFixture(), Query{Text: "lol"})
	require.Len(t, results, 1)
	assert.Equal(t, "/shots/chat.png", results[0].Path)
}

func TestRunQueryCombinedFilters(t *testing.T) {
	t.Parallel()

	results := RunQuery(queryFixture(), Query{Text: "lol", Collection: "Documents"})
	assert.Empty(t, results, "filter applies before text match")
}

func TestNavigate(t *testing.T) {
	t.Parallel()

	entries := queryFixture()

	idx, ok := Navigate(entries, "/shots/error.png", 1)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	// wraparound forward
	idx, ok = Navigate(entries, "/shots/chat.png", 1)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// wraparound backward
	idx, ok = Navigate(entries, "/shots/meeting-notes.png", -1)
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	// unknown current defaults to 0
	idx, ok = Navigate(entries, "/gone.png", 1)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// empty list
	_, ok = Navigate(nil, "/shots/chat.png", 1)
	assert.False(t, ok)
}
