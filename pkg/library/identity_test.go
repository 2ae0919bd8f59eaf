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

func TestResolveIdentityExactMatch(t *testing.T) {
	t.Parallel()

	base := time.UnixMilli(1000)
	entries := []Entry{
		{Path: "/a/1.png", CreatedAt: base},
		{Path: "/a/2.png", CreatedAt: base.Add(time.Hour)},
	}

	idx, ok := ResolveIdentity(entries, "/a/2.png", time.Time{})
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	// normalized and case-folded forms still match exactly
	idx, ok = ResolveIdentity(entries, "/A//1.PNG", time.Time{})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestResolveIdentityRenameInference(t *testing.T) {
	t.Parallel()

	base := time.UnixMilli(2000)
	entries := []Entry{
		{Path: "/a/2.png", CreatedAt: base},
	}

	// same creation time within window, same extension, different path
	idx, ok := ResolveIdentity(entries, "/a/2-renamed.png", base.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// outside the window is a new artifact
	_, ok = ResolveIdentity(entries, "/a/2-renamed.png", base.Add(3*time.Second))
	assert.False(t, ok)

	// extension mismatch is a new artifact
	_, ok = ResolveIdentity(entries, "/a/2-renamed.jpg", base.Add(time.Second))
	assert.False(t, ok)
}

func TestResolveIdentityNoCreatedAtNoInference(t *testing.T) {
	t.Parallel()

	entries := []Entry{
		{Path: "/a/1.png", CreatedAt: time.UnixMilli(1000)},
	}

	_, ok := ResolveIdentity(entries, "/a/other.png", time.Time{})
	assert.False(t, ok)
}

func TestResolveIdentityAmbiguityKeepsEarliest(t *testing.T) {
	t.Parallel()

	base := time.UnixMilli(5000)
	entries := []Entry{
		{Path: "/a/first.png", CreatedAt: base},
		{Path: "/a/second.png", CreatedAt: base.Add(500 * time.Millisecond)},
	}

	// both qualify as rename targets; the earliest index wins deterministically
	idx, ok := ResolveIdentity(entries, "/a/renamed.png", base.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestResolveIdentityEmptyPath(t *testing.T) {
	t.Parallel()

	entries := []Entry{{Path: "/a/1.png", CreatedAt: time.UnixMilli(1000)}}
	_, ok := ResolveIdentity(entries, "", time.UnixMilli(1000))
	assert.False(t, ok)
}
