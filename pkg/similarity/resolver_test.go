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

package similarity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/GlanceProject/glance-core/pkg/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeShot(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func watchedResolver(t *testing.T, watchDir string) *Resolver {
	t.Helper()
	defaults := config.BaseDefaults
	defaults.Library.WatchDirs = []string{watchDir}
	cfg, err := config.NewConfig(t.TempDir(), defaults)
	require.NoError(t, err)
	return NewResolver(cfg)
}

func TestResolveKeepNewest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolver := watchedResolver(t, dir)

	older := writeShot(t, dir, "older.png", 10)
	newer := writeShot(t, dir, "newer.png", 10)

	group := []library.Entry{
		{Path: older, CreatedAt: time.Unix(1000, 0)},
		{Path: newer, CreatedAt: time.Unix(2000, 0)},
	}

	summary, err := resolver.Resolve([][]library.Entry{group}, StrategyKeepNewest)
	require.NoError(t, err)

	require.Len(t, summary.Groups, 1)
	assert.Equal(t, newer, summary.Groups[0].Kept)
	assert.Equal(t, []string{older}, summary.Groups[0].Deleted)
	assert.Equal(t, 1, summary.DeletedCount)
	assert.Zero(t, summary.FailedCount)
	assert.NoFileExists(t, older)
	assert.FileExists(t, newer)
}

func TestResolveDeleteAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolver := watchedResolver(t, dir)

	a := writeShot(t, dir, "a.png", 5)
	b := writeShot(t, dir, "b.png", 5)

	group := []library.Entry{
		{Path: a, CreatedAt: time.Unix(1000, 0)},
		{Path: b, CreatedAt: time.Unix(2000, 0)},
	}

	summary, err := resolver.Resolve([][]library.Entry{group}, StrategyDeleteAll)
	require.NoError(t, err)

	require.Len(t, summary.Groups, 1)
	assert.Empty(t, summary.Groups[0].Kept)
	assert.ElementsMatch(t, []string{a, b}, summary.Groups[0].Deleted)
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
}

func TestResolveIsolatesGroupFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolver := watchedResolver(t, dir)

	// first group tries to delete a path outside the watch dir
	outside := filepath.Join(t.TempDir(), "outside.png")
	keepA := writeShot(t, dir, "keep-a.png", 5)
	badGroup := []library.Entry{
		{Path: outside, CreatedAt: time.Unix(1000, 0)},
		{Path: keepA, CreatedAt: time.Unix(2000, 0)},
	}

	// second group should still resolve
	older := writeShot(t, dir, "older.png", 5)
	newer := writeShot(t, dir, "newer.png", 5)
	goodGroup := []library.Entry{
		{Path: older, CreatedAt: time.Unix(1000, 0)},
		{Path: newer, CreatedAt: time.Unix(2000, 0)},
	}

	summary, err := resolver.Resolve([][]library.Entry{badGroup, goodGroup}, StrategyKeepNewest)
	require.NoError(t, err)

	require.Len(t, summary.Groups, 2)
	assert.Contains(t, summary.Groups[0].Failed, outside)
	assert.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, []string{older}, summary.Groups[1].Deleted)
	assert.NoFileExists(t, older)
}

func TestResolveUnknownStrategy(t *testing.T) {
	t.Parallel()

	resolver := watchedResolver(t, t.TempDir())
	_, err := resolver.Resolve(nil, "keep-oldest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resolution strategy")
}

func TestResolveSkipsSingletonGroups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolver := watchedResolver(t, dir)
	only := writeShot(t, dir, "only.png", 5)

	summary, err := resolver.Resolve([][]library.Entry{
		{{Path: only, CreatedAt: time.Unix(1000, 0)}},
	}, StrategyKeepNewest)
	require.NoError(t, err)

	assert.Empty(t, summary.Groups)
	assert.FileExists(t, only)
}

func TestEstimateSavings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	resolver := watchedResolver(t, dir)

	older := writeShot(t, dir, "older.png", 100)
	newer := writeShot(t, dir, "newer.png", 250)
	missing := filepath.Join(dir, "missing.png")

	groups := [][]library.Entry{
		{
			{Path: older, CreatedAt: time.Unix(1000, 0)},
			{Path: newer, CreatedAt: time.Unix(2000, 0)},
			{Path: missing, CreatedAt: time.Unix(500, 0)},
		},
		// singleton groups contribute nothing
		{{Path: newer, CreatedAt: time.Unix(2000, 0)}},
	}

	// keep newer (250), reclaim older (100), missing counts as zero
	assert.Equal(t, int64(100), resolver.EstimateSavings(groups))
}
