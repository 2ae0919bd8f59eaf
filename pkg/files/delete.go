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

package files

import (
	"os"

	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/rs/zerolog/log"
)

type DeleteOutcome struct {
	Failed  map[string]string
	Deleted []string
}

// DeleteFiles removes the given files from disk. A file that is already
// gone counts as deleted, since the goal state is reached either way.
// Paths outside the configured watch directories are refused.
func DeleteFiles(cfg *config.Instance, paths []string) DeleteOutcome {
	outcome := DeleteOutcome{Failed: make(map[string]string)}
	for _, path := range paths {
		if !cfg.IsWatchedPath(path) {
			outcome.Failed[path] = "path is outside the watched directories"
			continue
		}

		err := os.Remove(path)
		switch {
		case err == nil:
			outcome.Deleted = append(outcome.Deleted, path)
		case os.IsNotExist(err):
			log.Debug().Str("path", path).Msg("file already missing, treating as deleted")
			outcome.Deleted = append(outcome.Deleted, path)
		default:
			log.Warn().Err(err).Str("path", path).Msg("failed to delete file")
			outcome.Failed[path] = err.Error()
		}
	}
	return outcome
}
