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

package config

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultDedupeInterval is the minimum gap between periodic dedupe passes.
	DefaultDedupeInterval = 60 * time.Second
	// DefaultDedupeThreshold is the store size above which the periodic
	// dedupe safety net starts running.
	DefaultDedupeThreshold = 100
	// DefaultErrorDisplay is how long a transient producer error stays
	// visible before it is auto-cleared.
	DefaultErrorDisplay = 5 * time.Second
)

type Library struct {
	WatchDirs       []string `toml:"watch_dirs,omitempty,multiline"`
	Extensions      []string `toml:"extensions,omitempty"`
	DedupeThreshold *int     `toml:"dedupe_threshold,omitempty"`
	DedupeIntervalS *int     `toml:"dedupe_interval_s,omitempty"`
	ErrorDisplayS   *int     `toml:"error_display_s,omitempty"`
}

type Similarity struct {
	Threshold *int `toml:"threshold,omitempty"`
}

// DefaultSimilarityThreshold is the maximum Hamming distance between two
// perceptual hashes for them to be grouped as near-duplicates.
const DefaultSimilarityThreshold = 10

func (c *Instance) WatchDirs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dirs := make([]string, len(c.vals.Library.WatchDirs))
	copy(dirs, c.vals.Library.WatchDirs)
	return dirs
}

func (c *Instance) SetWatchDirs(dirs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.WatchDirs = dirs
}

// IsWatchedPath reports whether path sits under one of the configured watch
// dirs. Destructive file operations are restricted to watched dirs.
func (c *Instance) IsWatchedPath(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cleaned := filepath.Clean(path)
	for _, dir := range c.vals.Library.WatchDirs {
		dir = filepath.Clean(dir)
		if dir == "" {
			continue
		}
		if cleaned == dir || strings.HasPrefix(cleaned, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// IsLibraryExtension reports whether a file extension belongs to the set of
// screenshot formats the library tracks. Comparison is case-insensitive.
func (c *Instance) IsLibraryExtension(ext string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ext = strings.ToLower(ext)
	for _, e := range c.vals.Library.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (c *Instance) DedupeThreshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.DedupeThreshold == nil {
		return DefaultDedupeThreshold
	}
	return *c.vals.Library.DedupeThreshold
}

func (c *Instance) DedupeInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.DedupeIntervalS == nil {
		return DefaultDedupeInterval
	}
	return time.Duration(*c.vals.Library.DedupeIntervalS) * time.Second
}

func (c *Instance) ErrorDisplay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.ErrorDisplayS == nil {
		return DefaultErrorDisplay
	}
	return time.Duration(*c.vals.Library.ErrorDisplayS) * time.Second
}

func (c *Instance) SimilarityThreshold() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Similarity.Threshold == nil {
		return DefaultSimilarityThreshold
	}
	return *c.vals.Similarity.Threshold
}
