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

package methods

import (
	"os"
	"runtime"

	"github.com/GlanceProject/glance-core/pkg/api/models"
	"github.com/GlanceProject/glance-core/pkg/api/models/requests"
	"github.com/GlanceProject/glance-core/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/disk"
)

func HandleStats(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received stats request")

	resp := models.StatsResponse{
		TagCounts: make(map[string]int),
		WatchDirs: make([]models.WatchDirUsage, 0),
	}

	entries := env.State.Entries()
	resp.Entries = len(entries)
	for i := range entries {
		if entries[i].Pinned {
			resp.Pinned++
		}
		for _, tag := range entries[i].Tags {
			resp.TagCounts[tag]++
		}
	}

	for _, dir := range env.Config.WatchDirs() {
		usage, err := disk.Usage(dir)
		if err != nil {
			log.Debug().Err(err).Str("dir", dir).Msg("skipping disk usage for watch dir")
			continue
		}
		resp.WatchDirs = append(resp.WatchDirs, models.WatchDirUsage{
			Path:       dir,
			FreeBytes:  usage.Free,
			TotalBytes: usage.Total,
		})
	}

	if info, err := os.Stat(env.Database.Library.GetDBPath()); err == nil {
		resp.DBSizeBytes = info.Size()
	}

	return resp, nil
}

func HandleVersion(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version:  config.AppVersion,
		Platform: runtime.GOOS,
	}, nil
}
