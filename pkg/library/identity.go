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
	"time"

	"github.com/rs/zerolog/log"
)

// RenameWindow is the creation-time tolerance for treating an event under a
// new path as a rename of an existing Entry. Producers that rename files
// shortly after creation preserve the original creation timestamp, so two
// reports within this window with matching extensions are the same artifact.
const RenameWindow = 2 * time.Second

// ResolveIdentity decides whether an incoming event for path refers to an
// existing Entry. Exact normalized-path equality wins first; otherwise an
// Entry whose CreatedAt is within RenameWindow of createdAt, whose path
// differs, and whose extension matches is treated as the same artifact under
// a new name. Returns the index of the matching Entry, or false if the event
// describes a new artifact.
func ResolveIdentity(entries []Entry, path string, createdAt time.Time) (int, bool) {
	if path == "" {
		return 0, false
	}

	key := PathKey(path)
	for i := range entries {
		if PathKey(entries[i].Path) == key {
			return i, true
		}
	}

	if createdAt.IsZero() {
		return 0, false
	}

	ext := PathExt(path)
	matched := -1
	for i := range entries {
		if PathKey(entries[i].Path) == key {
			continue
		}
		if PathExt(entries[i].Path) != ext {
			continue
		}

		delta := createdAt.Sub(entries[i].CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta >= RenameWindow {
			continue
		}

		if matched >= 0 {
			// Two unrelated files created within the window are
			// indistinguishable here. Keep the first match so the outcome is
			// deterministic, but record that it was a guess.
			log.Warn().
				Str("path", path).
				Str("kept", entries[matched].Path).
				Str("alsoMatched", entries[i].Path).
				Msg("ambiguous rename candidates, keeping earliest")
			continue
		}
		matched = i
	}

	if matched >= 0 {
		return matched, true
	}
	return 0, false
}
